package http

import (
	bookingHttp "github.com/nekogravitycat/venue-booking-backend/internal/booking/http"
	"github.com/nekogravitycat/venue-booking-backend/internal/payment"
)

type ReferenceRequest struct {
	Reference string `uri:"reference" binding:"required,max=64"`
}

type InitiateResponse struct {
	Reference   string `json:"reference"`
	BookingCode string `json:"booking_code"`
	Amount      int64  `json:"amount"`
	RedirectURL string `json:"redirect_url"`
}

func NewInitiateResponse(in *payment.Initiation) InitiateResponse {
	return InitiateResponse{
		Reference:   in.Reference,
		BookingCode: in.BookingCode,
		Amount:      in.Amount,
		RedirectURL: in.RedirectURL,
	}
}

// ReceiptResponse is returned to the gateway callback whatever happened.
type ReceiptResponse struct {
	Status      string `json:"status"`
	Reference   string `json:"reference,omitempty"`
	BookingCode string `json:"booking_code,omitempty"`
	Message     string `json:"message"`
}

type VerifyResponse struct {
	Reference string                      `json:"reference"`
	Outcome   string                      `json:"outcome"`
	RawStatus string                      `json:"gateway_status"`
	Booking   bookingHttp.BookingResponse `json:"booking"`
}

func NewVerifyResponse(v *payment.VerifyResult) VerifyResponse {
	return VerifyResponse{
		Reference: v.Reference,
		Outcome:   string(v.Outcome),
		RawStatus: v.RawStatus,
		Booking:   bookingHttp.NewBookingResponse(v.Booking),
	}
}
