package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nekogravitycat/venue-booking-backend/internal/hall"
	"github.com/nekogravitycat/venue-booking-backend/internal/notify"
)

type ledgerKey struct {
	hallID string
	day    string
}

// memLedger mirrors the conditional upsert of the SQL ledger.
type memLedger struct {
	mu      sync.Mutex
	entries map[ledgerKey]string
}

func newMemLedger() *memLedger {
	return &memLedger{entries: make(map[ledgerKey]string)}
}

func keyOf(hallID string, date time.Time) ledgerKey {
	return ledgerKey{hallID: hallID, day: date.Format(hall.DateLayout)}
}

func (l *memLedger) IsBooked(_ context.Context, hallID string, date time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.entries[keyOf(hallID, date)]
	return ok, nil
}

func (l *memLedger) MarkBooked(_ context.Context, hallID string, date time.Time, ref string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := keyOf(hallID, date)
	if held, ok := l.entries[k]; ok && held != ref {
		return hall.ErrSlotTaken
	}
	l.entries[k] = ref
	return nil
}

func (l *memLedger) Release(_ context.Context, hallID string, date time.Time, ref string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := keyOf(hallID, date)
	if l.entries[k] == ref {
		delete(l.entries, k)
	}
	return nil
}

func (l *memLedger) holder(hallID string, date time.Time) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entries[keyOf(hallID, date)]
}

// memRepo is a Repository with the same compare-and-set semantics as the SQL one.
type memRepo struct {
	mu       sync.Mutex
	bookings map[string]Booking
	seq      int
}

func newMemRepo() *memRepo {
	return &memRepo{bookings: make(map[string]Booking)}
}

func (r *memRepo) Create(_ context.Context, b *Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[b.Code]; ok {
		return errCodeTaken
	}
	r.seq++
	b.ID = fmt.Sprintf("id-%d", r.seq)
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	r.bookings[b.Code] = *b
	return nil
}

func (r *memRepo) GetByCode(_ context.Context, code string) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[code]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (r *memRepo) List(_ context.Context, filter Filter) ([]*Booking, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Booking
	for _, b := range r.bookings {
		if filter.UserID != "" && b.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && string(b.Status) != filter.Status {
			continue
		}
		cp := b
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (r *memRepo) Update(_ context.Context, b *Booking, prev expect) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.bookings[b.Code]
	if !ok || cur.Status != prev.Status || cur.RefundStatus != prev.RefundStatus {
		return ErrStaleBooking
	}
	if b.Status == StatusConfirmed {
		for code, other := range r.bookings {
			if code != b.Code && other.Status == StatusConfirmed && other.HallID == b.HallID && other.Date.Equal(b.Date) {
				return ErrSlotBooked
			}
		}
	}
	b.UpdatedAt = time.Now()
	r.bookings[b.Code] = *b
	return nil
}

func (r *memRepo) Delete(_ context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[code]; !ok {
		return ErrNotFound
	}
	delete(r.bookings, code)
	return nil
}

func (r *memRepo) HasActive(_ context.Context, userID, hallID string, date time.Time, excludeCode string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for code, b := range r.bookings {
		if code == excludeCode {
			continue
		}
		if b.UserID == userID && b.HallID == hallID && b.Date.Equal(date) && b.Status.IsActive() {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRepo) Stats(_ context.Context) (*Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := &Stats{ByStatus: make(map[Status]int)}
	for _, b := range r.bookings {
		st.TotalBookings++
		st.ByStatus[b.Status]++
	}
	return st, nil
}

func (r *memRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bookings)
}

type memHalls map[string]*hall.Hall

func (m memHalls) GetByID(_ context.Context, id string) (*hall.Hall, error) {
	h, ok := m[id]
	if !ok {
		return nil, hall.ErrNotFound
	}
	cp := *h
	return &cp, nil
}

type recordingNotifier struct {
	sent chan notify.Message
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{sent: make(chan notify.Message, 64)}
}

func (n *recordingNotifier) Notify(_ context.Context, msg notify.Message) error {
	n.sent <- msg
	return nil
}
