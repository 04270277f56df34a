package hall

import (
	"context"
	"time"
)

// Ledger is the per-hall day calendar the booking engine claims and frees.
// A booked day belongs to exactly one booking reference.
type Ledger interface {
	IsBooked(ctx context.Context, hallID string, date time.Time) (bool, error)
	// MarkBooked claims the day for ref, overwriting any non-booked status.
	// It returns ErrSlotTaken when another reference holds the day.
	MarkBooked(ctx context.Context, hallID string, date time.Time, ref string) error
	// Release removes the day only when ref holds it.
	Release(ctx context.Context, hallID string, date time.Time, ref string) error
}
