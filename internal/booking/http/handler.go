package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/venue-booking-backend/internal/auth"
	"github.com/nekogravitycat/venue-booking-backend/internal/booking"
	"github.com/nekogravitycat/venue-booking-backend/internal/hall"
	"github.com/nekogravitycat/venue-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/venue-booking-backend/internal/pkg/response"
)

type Handler struct {
	service booking.Service
}

func NewHandler(service booking.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) List(c *gin.Context) {
	var req ListBookingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}
	from, to, err := req.Validate()
	if err != nil {
		response.Error(c, err)
		return
	}

	filter := booking.Filter{
		UserID:    req.UserID,
		HallID:    req.HallID,
		Status:    req.Status,
		DateFrom:  from,
		DateTo:    to,
		Page:      req.Page,
		PageSize:  req.PageSize,
		SortBy:    req.SortBy,
		SortOrder: strings.ToUpper(req.SortOrder),
	}

	bookings, total, err := h.service.List(c.Request.Context(), filter, auth.GetUserID(c), auth.IsAdmin(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]BookingResponse, len(bookings))
	for i, b := range bookings {
		items[i] = NewBookingResponse(b)
	}

	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}

func (h *Handler) Create(c *gin.Context) {
	var body CreateBookingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}
	date, _ := hall.ParseDate(body.Date)

	b, err := h.service.Create(c.Request.Context(), booking.CreateRequest{
		UserID: auth.GetUserID(c),
		HallID: body.HallID,
		Date:   date,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewBookingResponse(b))
}

func (h *Handler) Get(c *gin.Context) {
	var uri request.ByCodeRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid booking code", err)
		return
	}

	b, err := h.service.Get(c.Request.Context(), uri.Code, auth.GetUserID(c), auth.IsAdmin(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) Edit(c *gin.Context) {
	var uri request.ByCodeRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid booking code", err)
		return
	}
	var body EditBookingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	req := booking.EditRequest{HallID: body.HallID}
	if body.Date != nil {
		date, _ := hall.ParseDate(*body.Date)
		req.Date = &date
	}

	b, err := h.service.Edit(c.Request.Context(), uri.Code, req, auth.GetUserID(c), auth.IsAdmin(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) Cancel(c *gin.Context) {
	h.transition(c, func(c *gin.Context, code string) (*booking.Booking, error) {
		return h.service.Cancel(c.Request.Context(), code, auth.GetUserID(c), auth.IsAdmin(c))
	})
}

func (h *Handler) Allow(c *gin.Context) {
	var uri request.ByCodeRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid booking code", err)
		return
	}

	b, err := h.service.Allow(c.Request.Context(), uri.Code)
	if errors.Is(err, booking.ErrAllowConflict) && b != nil {
		c.JSON(http.StatusConflict, gin.H{
			"error":   booking.ErrAllowConflict.Message,
			"booking": NewBookingResponse(b),
		})
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) ForceStatus(c *gin.Context) {
	var uri request.ByCodeRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid booking code", err)
		return
	}
	var body ForceStatusRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}
	status, err := booking.ParseStatus(body.Status)
	if err != nil {
		response.Error(c, booking.ErrInvalidStatus)
		return
	}

	b, err := h.service.ForceStatus(c.Request.Context(), uri.Code, status, auth.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) Delete(c *gin.Context) {
	var uri request.ByCodeRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid booking code", err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), uri.Code, auth.GetUserID(c)); err != nil {
		response.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) RequestRefund(c *gin.Context) {
	h.transition(c, func(c *gin.Context, code string) (*booking.Booking, error) {
		return h.service.RequestRefund(c.Request.Context(), code, auth.GetUserID(c), auth.IsAdmin(c))
	})
}

func (h *Handler) ProcessRefund(c *gin.Context) {
	h.transition(c, func(c *gin.Context, code string) (*booking.Booking, error) {
		return h.service.ProcessRefund(c.Request.Context(), code, auth.GetUserID(c))
	})
}

func (h *Handler) RejectRefund(c *gin.Context) {
	h.transition(c, func(c *gin.Context, code string) (*booking.Booking, error) {
		return h.service.RejectRefund(c.Request.Context(), code, auth.GetUserID(c))
	})
}

func (h *Handler) GetRefund(c *gin.Context) {
	var uri request.ByCodeRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid booking code", err)
		return
	}

	info, err := h.service.GetRefundStatus(c.Request.Context(), uri.Code, auth.GetUserID(c), auth.IsAdmin(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewRefundResponse(info))
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewStatsResponse(stats))
}

// transition runs a bodiless action on the booking named in the path.
func (h *Handler) transition(c *gin.Context, fn func(c *gin.Context, code string) (*booking.Booking, error)) {
	var uri request.ByCodeRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid booking code", err)
		return
	}

	b, err := fn(c, uri.Code)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}
