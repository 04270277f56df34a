package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/nekogravitycat/venue-booking-backend/internal/hall"
	"github.com/nekogravitycat/venue-booking-backend/internal/metrics"
	"github.com/nekogravitycat/venue-booking-backend/internal/notify"
)

type CreateRequest struct {
	UserID string
	HallID string
	Date   time.Time
}

// EditRequest changes the hall or the date of a pending booking. Nil fields stay as they are.
type EditRequest struct {
	HallID *string
	Date   *time.Time
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Booking, error)
	Get(ctx context.Context, code, actorID string, isAdmin bool) (*Booking, error)
	List(ctx context.Context, filter Filter, actorID string, isAdmin bool) ([]*Booking, int, error)
	Edit(ctx context.Context, code string, req EditRequest, actorID string, isAdmin bool) (*Booking, error)
	// Allow approves a pending booking. When the date was booked in the
	// meantime it cancels the booking instead and returns it with ErrAllowConflict.
	Allow(ctx context.Context, code string) (*Booking, error)
	Cancel(ctx context.Context, code, actorID string, isAdmin bool) (*Booking, error)
	ForceStatus(ctx context.Context, code string, status Status, actorID string) (*Booking, error)
	Delete(ctx context.Context, code, actorID string) error

	AttachTransaction(ctx context.Context, code, ref string) (*Booking, error)
	RecordPayment(ctx context.Context, code, ref string) (*Booking, error)
	MarkPaymentFailed(ctx context.Context, code, ref string) (*Booking, error)
	MarkPaymentProcessing(ctx context.Context, code, ref string) (*Booking, error)

	RequestRefund(ctx context.Context, code, actorID string, isAdmin bool) (*Booking, error)
	ProcessRefund(ctx context.Context, code, actorID string) (*Booking, error)
	RejectRefund(ctx context.Context, code, actorID string) (*Booking, error)
	GetRefundStatus(ctx context.Context, code, actorID string, isAdmin bool) (*RefundInfo, error)

	Stats(ctx context.Context) (*Stats, error)
}

// HallLookup resolves halls for validation and price snapshots.
type HallLookup interface {
	GetByID(ctx context.Context, id string) (*hall.Hall, error)
}

const maxCodeAttempts = 3

type service struct {
	repo     Repository
	ledger   hall.Ledger
	halls    HallLookup
	notifier notify.Notifier
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(repo Repository, ledger hall.Ledger, halls HallLookup, notifier notify.Notifier, logger zerolog.Logger) Service {
	return &service{
		repo:     repo,
		ledger:   ledger,
		halls:    halls,
		notifier: notifier,
		logger:   logger.With().Str("component", "booking").Logger(),
		now:      time.Now,
	}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Booking, error) {
	if req.HallID == "" {
		return nil, ErrHallRequired
	}
	if req.Date.IsZero() {
		return nil, ErrDateRequired
	}
	date := hall.NormalizeDate(req.Date)
	if s.isPast(date) {
		return nil, ErrDateInPast
	}

	h, err := s.lookupHall(ctx, req.HallID)
	if err != nil {
		return nil, err
	}
	if err := s.checkSlot(ctx, req.UserID, h.ID, date, ""); err != nil {
		return nil, err
	}

	b := &Booking{
		UserID:       req.UserID,
		HallID:       h.ID,
		HallName:     h.Name,
		Date:         date,
		Amount:       h.Price,
		Status:       StatusPendingApproval,
		RefundStatus: RefundNone,
	}

	for attempt := 1; ; attempt++ {
		b.Code, err = NewCode(s.now())
		if err != nil {
			return nil, fmt.Errorf("generate booking code: %w", err)
		}
		err = s.repo.Create(ctx, b)
		if err == nil {
			break
		}
		if !errors.Is(err, errCodeTaken) || attempt == maxCodeAttempts {
			return nil, err
		}
	}

	s.logger.Info().
		Str("booking_code", b.Code).
		Str("user_id", b.UserID).
		Str("hall_id", b.HallID).
		Str("date", b.Date.Format(hall.DateLayout)).
		Int64("amount", b.Amount).
		Msg("booking created")
	return b, nil
}

func (s *service) Get(ctx context.Context, code, actorID string, isAdmin bool) (*Booking, error) {
	return s.getAuthorized(ctx, code, actorID, isAdmin)
}

func (s *service) List(ctx context.Context, filter Filter, actorID string, isAdmin bool) ([]*Booking, int, error) {
	if !isAdmin {
		filter.UserID = actorID
	}
	return s.repo.List(ctx, filter)
}

func (s *service) Edit(ctx context.Context, code string, req EditRequest, actorID string, isAdmin bool) (*Booking, error) {
	b, err := s.getAuthorized(ctx, code, actorID, isAdmin)
	if err != nil {
		return nil, err
	}
	// Approval and the price snapshot are tied to the original request.
	if b.Status != StatusPendingApproval {
		return nil, ErrNotEditable
	}

	prev := expectOf(b)
	hallID, date := b.HallID, b.Date

	if req.Date != nil {
		date = hall.NormalizeDate(*req.Date)
		if s.isPast(date) {
			return nil, ErrDateInPast
		}
	}
	if req.HallID != nil {
		if *req.HallID == "" {
			return nil, ErrHallRequired
		}
		hallID = *req.HallID
	}
	if hallID == b.HallID && date.Equal(b.Date) {
		return b, nil
	}

	if hallID != b.HallID {
		h, err := s.lookupHall(ctx, hallID)
		if err != nil {
			return nil, err
		}
		b.HallName = h.Name
		b.Amount = h.Price
	}
	if err := s.checkSlot(ctx, b.UserID, hallID, date, b.Code); err != nil {
		return nil, err
	}

	b.HallID, b.Date = hallID, date
	if err := s.save(ctx, b, prev); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *service) Allow(ctx context.Context, code string) (*Booking, error) {
	b, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if b.Status != StatusPendingApproval {
		return nil, ErrInvalidTransition
	}
	prev := expectOf(b)

	// Creation and approval are separate requests; the date may have been
	// taken since this booking was checked.
	booked, err := s.ledger.IsBooked(ctx, b.HallID, b.Date)
	if err != nil {
		return nil, err
	}
	if booked {
		b.Status = StatusCancelled
		if err := s.save(ctx, b, prev); err != nil {
			return nil, err
		}
		s.logger.Warn().Str("booking_code", b.Code).Msg("allow found the date booked; booking cancelled")
		s.notify(ctx, b, notify.KindBookingCancelled,
			fmt.Sprintf("Your booking %s was cancelled because %s is no longer available on %s.",
				b.Code, b.HallName, b.Date.Format(hall.DateLayout)))
		return b, ErrAllowConflict
	}

	b.IsAllowed = true
	b.Status = StatusAwaitingPayment
	if err := s.save(ctx, b, prev); err != nil {
		return nil, err
	}

	s.notify(ctx, b, notify.KindBookingAllowed,
		fmt.Sprintf("Your booking %s for %s on %s was approved. Please complete the payment of %d.",
			b.Code, b.HallName, b.Date.Format(hall.DateLayout), b.Amount))
	return b, nil
}

func (s *service) Cancel(ctx context.Context, code, actorID string, isAdmin bool) (*Booking, error) {
	b, err := s.getAuthorized(ctx, code, actorID, isAdmin)
	if err != nil {
		return nil, err
	}
	if !b.Status.CanTransitionTo(StatusCancelled) {
		return nil, ErrInvalidTransition
	}

	prev := expectOf(b)
	held := b.Status == StatusConfirmed

	b.Status = StatusCancelled
	// A failed release may leave a stale ledger entry, but never a Confirmed
	// booking without one.
	if err := s.save(ctx, b, prev); err != nil {
		return nil, err
	}
	if held {
		s.release(ctx, b)
	}

	if isAdmin && !b.ownedBy(actorID) {
		s.notify(ctx, b, notify.KindBookingCancelled,
			fmt.Sprintf("Your booking %s for %s on %s was cancelled by an administrator.",
				b.Code, b.HallName, b.Date.Format(hall.DateLayout)))
	}
	return b, nil
}

func (s *service) ForceStatus(ctx context.Context, code string, status Status, actorID string) (*Booking, error) {
	if !status.IsValid() {
		return nil, ErrInvalidStatus
	}
	b, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if b.Status == status {
		return b, nil
	}

	s.logger.Warn().
		Str("booking_code", b.Code).
		Str("actor_id", actorID).
		Str("from", string(b.Status)).
		Str("to", string(status)).
		Msg("admin forcing booking status")

	if status == StatusConfirmed {
		return s.settle(ctx, b, "", false)
	}

	prev := expectOf(b)
	held := b.Status == StatusConfirmed
	b.Status = status
	if err := s.save(ctx, b, prev); err != nil {
		return nil, err
	}
	if held {
		s.release(ctx, b)
	}
	return b, nil
}

func (s *service) Delete(ctx context.Context, code, actorID string) error {
	b, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return err
	}

	if b.Status == StatusConfirmed {
		if err := s.ledger.Release(ctx, b.HallID, b.Date, b.Code); err != nil {
			return err
		}
	}
	if err := s.repo.Delete(ctx, code); err != nil {
		return err
	}

	s.logger.Warn().
		Str("booking_code", b.Code).
		Str("actor_id", actorID).
		Str("status", string(b.Status)).
		Msg("booking deleted")
	return nil
}

func (s *service) Stats(ctx context.Context) (*Stats, error) {
	return s.repo.Stats(ctx)
}

func (s *service) getAuthorized(ctx context.Context, code, actorID string, isAdmin bool) (*Booking, error) {
	b, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !isAdmin && !b.ownedBy(actorID) {
		return nil, ErrPermissionDenied
	}
	return b, nil
}

func (s *service) lookupHall(ctx context.Context, id string) (*hall.Hall, error) {
	h, err := s.halls.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, hall.ErrNotFound) {
			return nil, ErrHallNotFound
		}
		return nil, err
	}
	return h, nil
}

// checkSlot rejects a date the ledger shows booked and a second active
// request by the same user.
func (s *service) checkSlot(ctx context.Context, userID, hallID string, date time.Time, excludeCode string) error {
	booked, err := s.ledger.IsBooked(ctx, hallID, date)
	if err != nil {
		return err
	}
	if booked {
		return ErrSlotBooked
	}

	dup, err := s.repo.HasActive(ctx, userID, hallID, date, excludeCode)
	if err != nil {
		return err
	}
	if dup {
		return ErrDuplicateBooking
	}
	return nil
}

func (s *service) isPast(date time.Time) bool {
	return date.Before(hall.NormalizeDate(s.now()))
}

// save persists b against prev and records the transition.
func (s *service) save(ctx context.Context, b *Booking, prev expect) error {
	if err := s.repo.Update(ctx, b, prev); err != nil {
		return err
	}
	if b.Status != prev.Status {
		metrics.ObserveTransition(string(prev.Status), string(b.Status))
		s.logger.Info().
			Str("booking_code", b.Code).
			Str("from", string(prev.Status)).
			Str("to", string(b.Status)).
			Msg("booking transition")
	}
	return nil
}

// release frees the ledger entry held by b. Failures are only logged; the
// date then stays blocked until the entry is cleared by hand.
func (s *service) release(ctx context.Context, b *Booking) {
	if err := s.ledger.Release(ctx, b.HallID, b.Date, b.Code); err != nil {
		s.logger.Error().Err(err).
			Str("booking_code", b.Code).
			Str("hall_id", b.HallID).
			Str("date", b.Date.Format(hall.DateLayout)).
			Msg("failed to release hall date")
	}
}

func (s *service) notify(ctx context.Context, b *Booking, kind notify.Kind, text string) {
	notify.Dispatch(ctx, s.notifier, s.logger, notify.Message{
		Kind:        kind,
		UserID:      b.UserID,
		Email:       b.UserEmail,
		BookingCode: b.Code,
		Text:        text,
		Data: map[string]string{
			"hall_id": b.HallID,
			"date":    b.Date.Format(hall.DateLayout),
			"status":  string(b.Status),
		},
	})
}
