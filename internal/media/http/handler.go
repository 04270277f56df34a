package http

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/venue-booking-backend/internal/media"
	"github.com/nekogravitycat/venue-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/venue-booking-backend/internal/pkg/response"
	"github.com/rs/zerolog"
)

type Handler struct {
	service media.Service
}

func NewHandler(service media.Service) *Handler {
	return &Handler{service: service}
}

// Serve streams the stored photo.
func (h *Handler) Serve(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		response.BadRequest(c, "invalid media id", err)
		return
	}

	rc, m, err := h.service.Open(c.Request.Context(), req.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer rc.Close()

	stream(c, rc, m.ContentType, m.Filename)
}

// ServeThumbnail streams the JPEG thumbnail.
func (h *Handler) ServeThumbnail(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		response.BadRequest(c, "invalid media id", err)
		return
	}

	rc, m, err := h.service.OpenThumbnail(c.Request.Context(), req.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer rc.Close()

	stream(c, rc, "image/jpeg", m.Filename+"_thumb.jpg")
}

func stream(c *gin.Context, rc io.Reader, contentType, filename string) {
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", "inline; filename=\""+filename+"\"")
	c.Header("Cache-Control", "public, max-age=86400")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		// Headers are already sent.
		zerolog.Ctx(c.Request.Context()).Warn().Err(err).Msg("media stream interrupted")
	}
}
