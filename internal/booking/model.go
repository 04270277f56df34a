package booking

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/venue-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound          = apperror.New(http.StatusNotFound, "booking not found")
	ErrHallNotFound      = apperror.New(http.StatusNotFound, "hall not found")
	ErrHallRequired      = apperror.New(http.StatusBadRequest, "hall_id is required")
	ErrDateRequired      = apperror.New(http.StatusBadRequest, "date is required")
	ErrDateInPast        = apperror.New(http.StatusBadRequest, "cannot book a date in the past")
	ErrInvalidStatus     = apperror.New(http.StatusBadRequest, "invalid booking status")
	ErrPermissionDenied  = apperror.New(http.StatusForbidden, "permission denied")
	ErrSlotBooked        = apperror.New(http.StatusConflict, "hall is already booked on this date")
	ErrDuplicateBooking  = apperror.New(http.StatusConflict, "you already have an active booking for this hall and date")
	ErrInvalidTransition = apperror.New(http.StatusConflict, "booking status does not allow this action")
	ErrNotEditable       = apperror.New(http.StatusConflict, "booking can only be edited while pending approval")
	ErrAllowConflict     = apperror.New(http.StatusConflict, "hall was booked by another booking; this booking has been cancelled")
	ErrStaleBooking      = apperror.New(http.StatusConflict, "booking was modified concurrently, please retry")
	ErrRefundNotAllowed  = apperror.New(http.StatusConflict, "refund is not available for this booking")

	errCodeTaken = apperror.New(http.StatusConflict, "booking code already exists")
)

// Booking is one user's request for one hall on one date.
type Booking struct {
	ID        string
	Code      string
	UserID    string
	UserEmail string
	HallID    string
	HallName  string
	Date      time.Time

	// Amount is the hall price copied at creation; later price changes do not touch it.
	Amount            int64
	IsAllowed         bool
	IsPaid            bool
	TransactionID     *string
	Status            Status
	RefundStatus      RefundStatus
	RefundAmount      int64
	RefundProcessedAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (b *Booking) ownedBy(userID string) bool {
	return userID != "" && b.UserID == userID
}

// expect is the state a compare-and-set update requires the row to still hold.
type expect struct {
	Status       Status
	RefundStatus RefundStatus
}

func expectOf(b *Booking) expect {
	return expect{Status: b.Status, RefundStatus: b.RefundStatus}
}

// RefundInfo is the read model behind GetRefundStatus.
type RefundInfo struct {
	Code         string
	Status       Status
	IsPaid       bool
	RefundStatus RefundStatus
	RefundAmount int64
	ProcessedAt  *time.Time
}

type Filter struct {
	UserID    string
	HallID    string
	Status    string
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Stats is the admin dashboard summary.
type Stats struct {
	TotalBookings       int
	ByStatus            map[Status]int
	Revenue             int64
	RefundsPending      int
	RefundPendingAmount int64
	RefundedAmount      int64
	Halls               int
	Users               int
}
