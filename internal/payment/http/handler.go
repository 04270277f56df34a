package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/nekogravitycat/venue-booking-backend/internal/auth"
	"github.com/nekogravitycat/venue-booking-backend/internal/payment"
	"github.com/nekogravitycat/venue-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/venue-booking-backend/internal/pkg/response"
)

type Handler struct {
	service payment.Service
}

func NewHandler(service payment.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Initiate(c *gin.Context) {
	var uri request.ByCodeRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid booking code", err)
		return
	}

	in, err := h.service.Initiate(c.Request.Context(), uri.Code, auth.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewInitiateResponse(in))
}

// Return receives the gateway's form post. The gateway only needs to know
// the post arrived, so every outcome is answered with 200.
func (h *Handler) Return(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		c.JSON(http.StatusOK, ReceiptResponse{Status: "rejected", Message: "unreadable payment response"})
		return
	}
	fields := make(map[string]string, len(c.Request.PostForm))
	for k, v := range c.Request.PostForm {
		if len(v) > 0 {
			fields[k] = v[0]
		}
	}

	receipt, err := h.service.HandleReturn(c.Request.Context(), fields)
	switch {
	case errors.Is(err, payment.ErrIntegrity):
		c.JSON(http.StatusOK, ReceiptResponse{Status: "rejected", Message: payment.ErrIntegrity.Message})
	case err != nil:
		zerolog.Ctx(c.Request.Context()).Error().Err(err).
			Str("reference", fields["ReferenceNo"]).
			Msg("payment return not applied")
		c.JSON(http.StatusOK, ReceiptResponse{
			Status:    "error",
			Reference: fields["ReferenceNo"],
			Message:   "Payment response received but could not be applied. Please verify the payment later.",
		})
	default:
		c.JSON(http.StatusOK, ReceiptResponse{
			Status:      string(receipt.Outcome),
			Reference:   receipt.Reference,
			BookingCode: receipt.BookingCode,
			Message:     receipt.Message,
		})
	}
}

func (h *Handler) Verify(c *gin.Context) {
	var uri ReferenceRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid payment reference", err)
		return
	}

	res, err := h.service.Verify(c.Request.Context(), uri.Reference, auth.GetUserID(c), auth.IsAdmin(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewVerifyResponse(res))
}
