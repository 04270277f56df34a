package http

import (
	"time"

	"github.com/nekogravitycat/venue-booking-backend/internal/booking"
	"github.com/nekogravitycat/venue-booking-backend/internal/hall"
	"github.com/nekogravitycat/venue-booking-backend/internal/pkg/request"
)

// ListBookingsRequest defines query parameters for listing bookings.
// UserID is honoured for admins only.
type ListBookingsRequest struct {
	request.ListParams
	HallID   string `form:"hall_id" binding:"omitempty,uuid"`
	UserID   string `form:"user_id" binding:"omitempty,uuid"`
	Status   string `form:"status" binding:"omitempty,oneof=Pending-Approval AwaitingPayment Payment-Processing Payment-Failed Confirmed Refund-Pending Cancelled"`
	DateFrom string `form:"date_from" binding:"omitempty,datetime=2006-01-02"`
	DateTo   string `form:"date_to" binding:"omitempty,datetime=2006-01-02"`
	SortBy   string `form:"sort_by" binding:"omitempty,oneof=event_date amount status created_at updated_at"`
}

// Validate performs custom validation for ListBookingsRequest.
func (r *ListBookingsRequest) Validate() (from, to *time.Time, err error) {
	if r.DateFrom != "" {
		d, _ := hall.ParseDate(r.DateFrom)
		from = &d
	}
	if r.DateTo != "" {
		d, _ := hall.ParseDate(r.DateTo)
		to = &d
	}
	if from != nil && to != nil && from.After(*to) {
		return nil, nil, hall.ErrInvalidRange
	}
	return from, to, nil
}

type BookingResponse struct {
	Code              string     `json:"code"`
	UserID            string     `json:"user_id"`
	UserEmail         string     `json:"user_email,omitempty"`
	HallID            string     `json:"hall_id"`
	HallName          string     `json:"hall_name"`
	Date              string     `json:"date"`
	Amount            int64      `json:"amount"`
	IsAllowed         bool       `json:"is_allowed"`
	IsPaid            bool       `json:"is_paid"`
	TransactionID     *string    `json:"transaction_id"`
	Status            string     `json:"status"`
	RefundStatus      string     `json:"refund_status"`
	RefundAmount      int64      `json:"refund_amount"`
	RefundProcessedAt *time.Time `json:"refund_processed_at"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func NewBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		Code:              b.Code,
		UserID:            b.UserID,
		UserEmail:         b.UserEmail,
		HallID:            b.HallID,
		HallName:          b.HallName,
		Date:              b.Date.Format(hall.DateLayout),
		Amount:            b.Amount,
		IsAllowed:         b.IsAllowed,
		IsPaid:            b.IsPaid,
		TransactionID:     b.TransactionID,
		Status:            string(b.Status),
		RefundStatus:      string(b.RefundStatus),
		RefundAmount:      b.RefundAmount,
		RefundProcessedAt: b.RefundProcessedAt,
		CreatedAt:         b.CreatedAt,
		UpdatedAt:         b.UpdatedAt,
	}
}

type RefundResponse struct {
	Code         string     `json:"code"`
	Status       string     `json:"status"`
	IsPaid       bool       `json:"is_paid"`
	RefundStatus string     `json:"refund_status"`
	RefundAmount int64      `json:"refund_amount"`
	ProcessedAt  *time.Time `json:"processed_at"`
}

func NewRefundResponse(r *booking.RefundInfo) RefundResponse {
	return RefundResponse{
		Code:         r.Code,
		Status:       string(r.Status),
		IsPaid:       r.IsPaid,
		RefundStatus: string(r.RefundStatus),
		RefundAmount: r.RefundAmount,
		ProcessedAt:  r.ProcessedAt,
	}
}

type StatsResponse struct {
	TotalBookings       int            `json:"total_bookings"`
	ByStatus            map[string]int `json:"by_status"`
	Revenue             int64          `json:"revenue"`
	RefundsPending      int            `json:"refunds_pending"`
	RefundPendingAmount int64          `json:"refund_pending_amount"`
	RefundedAmount      int64          `json:"refunded_amount"`
	Halls               int            `json:"halls"`
	Users               int            `json:"users"`
}

func NewStatsResponse(s *booking.Stats) StatsResponse {
	byStatus := make(map[string]int, len(s.ByStatus))
	for status, n := range s.ByStatus {
		byStatus[string(status)] = n
	}
	return StatsResponse{
		TotalBookings:       s.TotalBookings,
		ByStatus:            byStatus,
		Revenue:             s.Revenue,
		RefundsPending:      s.RefundsPending,
		RefundPendingAmount: s.RefundPendingAmount,
		RefundedAmount:      s.RefundedAmount,
		Halls:               s.Halls,
		Users:               s.Users,
	}
}

type CreateBookingRequest struct {
	HallID string `json:"hall_id" binding:"required,uuid"`
	Date   string `json:"date" binding:"required,datetime=2006-01-02"`
}

type EditBookingRequest struct {
	HallID *string `json:"hall_id" binding:"omitempty,uuid"`
	Date   *string `json:"date" binding:"omitempty,datetime=2006-01-02"`
}

type ForceStatusRequest struct {
	Status string `json:"status" binding:"required"`
}
