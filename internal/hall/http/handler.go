package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/nekogravitycat/venue-booking-backend/internal/auth"
	"github.com/nekogravitycat/venue-booking-backend/internal/hall"
	"github.com/nekogravitycat/venue-booking-backend/internal/media"
	"github.com/nekogravitycat/venue-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/venue-booking-backend/internal/pkg/response"
)

// maxPhotoBytes caps a single hall photo upload.
const maxPhotoBytes = 8 << 20

type Handler struct {
	service      hall.Service
	mediaService media.Service
}

func NewHandler(service hall.Service, mediaService media.Service) *Handler {
	return &Handler{
		service:      service,
		mediaService: mediaService,
	}
}

func (h *Handler) List(c *gin.Context) {
	var req ListHallsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}

	filter := hall.Filter{
		Name:      strings.TrimSpace(req.Name),
		Page:      req.Page,
		PageSize:  req.PageSize,
		SortBy:    req.SortBy,
		SortOrder: strings.ToUpper(req.SortOrder),
	}

	halls, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]HallResponse, len(halls))
	for i, item := range halls {
		items[i] = NewHallResponse(item)
	}

	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}

func (h *Handler) Get(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid hall id", err)
		return
	}

	res, err := h.service.GetByID(c.Request.Context(), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewHallResponse(res))
}

func (h *Handler) Availability(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid hall id", err)
		return
	}
	var q AvailabilityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "from and to must be YYYY-MM-DD", err)
		return
	}

	// Formats were validated by the binding tags.
	from, _ := hall.ParseDate(q.From)
	to, _ := hall.ParseDate(q.To)

	entries, err := h.service.ListAvailability(c.Request.Context(), uri.ID, from, to)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]AvailabilityResponse, len(entries))
	for i, e := range entries {
		items[i] = NewAvailabilityResponse(e)
	}

	c.JSON(http.StatusOK, gin.H{"hall_id": uri.ID, "entries": items})
}

func (h *Handler) Rent(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid hall id", err)
		return
	}
	var q RentQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "date must be YYYY-MM-DD", err)
		return
	}
	date, _ := hall.ParseDate(q.Date)

	rent, err := h.service.Rent(c.Request.Context(), uri.ID, date)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, RentResponse{
		HallID:    rent.HallID,
		Date:      rent.Date.Format(hall.DateLayout),
		Price:     rent.Price,
		Available: !rent.Booked,
	})
}

func (h *Handler) Create(c *gin.Context) {
	var body CreateHallRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	res, err := h.service.Create(c.Request.Context(), hall.CreateRequest{
		Name:     body.Name,
		Location: body.Location,
		Capacity: body.Capacity,
		Price:    *body.Price,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewHallResponse(res))
}

func (h *Handler) Update(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid hall id", err)
		return
	}
	var body UpdateHallRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	res, err := h.service.Update(c.Request.Context(), uri.ID, hall.UpdateRequest{
		Name:     body.Name,
		Location: body.Location,
		Capacity: body.Capacity,
		Price:    body.Price,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewHallResponse(res))
}

func (h *Handler) Delete(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid hall id", err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), uri.ID); err != nil {
		response.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) SetEntry(c *gin.Context) {
	var uri EntryURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid hall id or date", err)
		return
	}
	var body SetEntryRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}
	date, _ := hall.ParseDate(uri.Date)

	if err := h.service.SetEntry(c.Request.Context(), uri.ID, date, hall.AvailabilityStatus(body.Status)); err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, AvailabilityResponse{Date: uri.Date, Status: body.Status})
}

func (h *Handler) ClearEntry(c *gin.Context) {
	var uri EntryURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid hall id or date", err)
		return
	}
	date, _ := hall.ParseDate(uri.Date)

	if err := h.service.ClearEntry(c.Request.Context(), uri.ID, date); err != nil {
		response.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// UploadPhoto stores a new hall photo and drops the previous one.
func (h *Handler) UploadPhoto(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid hall id", err)
		return
	}
	ctx := c.Request.Context()

	existing, err := h.service.GetByID(ctx, uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	m, err := h.mediaService.Upload(ctx, media.UploadInput{
		FileHeader:   fileHeader,
		UploaderID:   auth.GetUserID(c),
		MaxSizeBytes: maxPhotoBytes,
		AllowedTypes: media.DefaultImageTypes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	updated, err := h.service.SetPhoto(ctx, uri.ID, m.ID)
	if err != nil {
		// Roll back the orphaned upload.
		_ = h.mediaService.Delete(ctx, m.ID)
		response.Error(c, err)
		return
	}

	if existing.PhotoID != nil && *existing.PhotoID != m.ID {
		if err := h.mediaService.Delete(ctx, *existing.PhotoID); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("media_id", *existing.PhotoID).Msg("failed to remove previous hall photo")
		}
	}

	c.JSON(http.StatusOK, PhotoUploadResponse{
		Hall:         NewHallResponse(updated),
		MediaID:      m.ID,
		URL:          media.URL(m.ID),
		ThumbnailURL: media.ThumbnailURL(m.ID),
	})
}
