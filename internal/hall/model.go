package hall

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/venue-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound           = apperror.New(http.StatusNotFound, "hall not found")
	ErrEmptyName          = apperror.New(http.StatusBadRequest, "name cannot be empty")
	ErrInvalidPrice       = apperror.New(http.StatusBadRequest, "price must not be negative")
	ErrInvalidCapacity    = apperror.New(http.StatusBadRequest, "capacity must not be negative")
	ErrInvalidRange       = apperror.New(http.StatusBadRequest, "invalid date range")
	ErrInvalidEntryStatus = apperror.New(http.StatusBadRequest, "invalid availability status")
	ErrSlotTaken          = apperror.New(http.StatusConflict, "date is already booked for this hall")
	ErrBookedEntry        = apperror.New(http.StatusConflict, "booked dates are managed through bookings")
	ErrHasBookings        = apperror.New(http.StatusConflict, "hall has bookings and cannot be deleted")
)

// DateLayout is the wire format for calendar days.
const DateLayout = "2006-01-02"

// maxRangeDays bounds one availability query.
const maxRangeDays = 366

// Hall is a bookable venue with a single day rate.
type Hall struct {
	ID        string
	Name      string
	Location  string
	Capacity  int
	Price     int64
	PhotoID   *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AvailabilityStatus is the state of one calendar day for a hall.
type AvailabilityStatus string

const (
	StatusAvailable   AvailabilityStatus = "available"
	StatusPreliminary AvailabilityStatus = "preliminary"
	StatusBooked      AvailabilityStatus = "booked"
	StatusBlocked     AvailabilityStatus = "blocked"
	StatusSpecial     AvailabilityStatus = "special"
)

func (s AvailabilityStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusPreliminary, StatusBooked, StatusBlocked, StatusSpecial:
		return true
	}
	return false
}

// AvailabilityEntry is one ledger row. BookingRef is set only when booked.
type AvailabilityEntry struct {
	HallID     string
	Date       time.Time
	Status     AvailabilityStatus
	BookingRef *string
	UpdatedAt  time.Time
}

// Rent is the price quote for a hall on a given day.
type Rent struct {
	HallID string
	Date   time.Time
	Price  int64
	Booked bool
}

// Filter defines parameters for listing halls.
type Filter struct {
	Name      string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// NormalizeDate truncates t to its calendar day in UTC.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a normalized day.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return NormalizeDate(t), nil
}
