package booking

import (
	"context"
	"errors"

	"github.com/nekogravitycat/venue-booking-backend/internal/hall"
)

// AttachTransaction records the gateway reference of a new payment attempt.
// A failed booking moves back to AwaitingPayment for the retry.
func (s *service) AttachTransaction(ctx context.Context, code, ref string) (*Booking, error) {
	b, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	prev := expectOf(b)
	switch b.Status {
	case StatusAwaitingPayment:
	case StatusPaymentFailed:
		b.Status = StatusAwaitingPayment
	default:
		return nil, ErrInvalidTransition
	}

	b.TransactionID = &ref
	if err := s.save(ctx, b, prev); err != nil {
		return nil, err
	}
	return b, nil
}

// RecordPayment applies a successful payment. Repeating it for a booking
// that is already settled is a no-op.
func (s *service) RecordPayment(ctx context.Context, code, ref string) (*Booking, error) {
	b, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	switch {
	case b.Status.IsPayable():
		return s.settle(ctx, b, ref, true)
	case b.Status == StatusConfirmed, b.Status == StatusRefundPending && b.IsPaid:
		if b.TransactionID != nil && *b.TransactionID != ref {
			s.logger.Warn().
				Str("booking_code", b.Code).
				Str("transaction_id", *b.TransactionID).
				Str("ref", ref).
				Msg("payment success for a booking already settled by another transaction")
		}
		return b, nil
	default:
		s.logger.Error().
			Str("booking_code", b.Code).
			Str("status", string(b.Status)).
			Str("ref", ref).
			Msg("payment success for a booking that is not awaiting payment")
		return nil, ErrInvalidTransition
	}
}

// settle is the single confirmation path shared by RecordPayment and
// ForceStatus(Confirmed). It claims the ledger before writing the booking.
// With moneyTaken, a date held by another booking turns the booking into
// Refund-Pending; without it the caller gets ErrSlotBooked.
func (s *service) settle(ctx context.Context, b *Booking, ref string, moneyTaken bool) (*Booking, error) {
	prev := expectOf(b)

	claimErr := s.ledger.MarkBooked(ctx, b.HallID, b.Date, b.Code)
	switch {
	case claimErr == nil:
		b.Status = StatusConfirmed
		b.IsAllowed = true
		b.IsPaid = true
	case errors.Is(claimErr, hall.ErrSlotTaken):
		if !moneyTaken {
			return nil, ErrSlotBooked
		}
		b.Status = StatusRefundPending
		b.IsPaid = true
		b.RefundStatus = RefundPending
		b.RefundAmount = b.Amount
		s.logger.Warn().
			Str("booking_code", b.Code).
			Str("hall_id", b.HallID).
			Str("date", b.Date.Format(hall.DateLayout)).
			Msg("payment received for a date booked by another booking; refund required")
	default:
		return nil, claimErr
	}
	if ref != "" {
		b.TransactionID = &ref
	}

	err := s.save(ctx, b, prev)
	if err == nil {
		return b, nil
	}
	if claimErr != nil {
		return nil, err
	}

	// The claim is ours but the booking write lost. A concurrent duplicate
	// may already have confirmed it; otherwise give the date back.
	if errors.Is(err, ErrStaleBooking) {
		current, getErr := s.repo.GetByCode(ctx, b.Code)
		if getErr == nil && current.Status == StatusConfirmed {
			return current, nil
		}
	}
	s.release(ctx, b)
	return nil, err
}

// MarkPaymentFailed applies a failed payment. Outcomes that arrive after
// the booking moved on, or for a superseded attempt, are ignored.
func (s *service) MarkPaymentFailed(ctx context.Context, code, ref string) (*Booking, error) {
	b, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if !b.Status.IsPayable() {
		if b.Status != StatusPaymentFailed {
			s.logger.Info().
				Str("booking_code", b.Code).
				Str("status", string(b.Status)).
				Str("ref", ref).
				Msg("ignoring payment failure for booking not awaiting payment")
		}
		return b, nil
	}
	if isSuperseded(b, ref) {
		s.logger.Info().Str("booking_code", b.Code).Str("ref", ref).Msg("ignoring failure of superseded payment attempt")
		return b, nil
	}

	prev := expectOf(b)
	b.Status = StatusPaymentFailed
	b.TransactionID = nil
	if err := s.save(ctx, b, prev); err != nil {
		return nil, err
	}
	return b, nil
}

// MarkPaymentProcessing records that the gateway still has the payment in
// flight. The ledger is not touched.
func (s *service) MarkPaymentProcessing(ctx context.Context, code, ref string) (*Booking, error) {
	b, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if b.Status == StatusPaymentProcessing || !b.Status.CanTransitionTo(StatusPaymentProcessing) {
		return b, nil
	}
	if isSuperseded(b, ref) {
		return b, nil
	}

	prev := expectOf(b)
	b.Status = StatusPaymentProcessing
	if ref != "" {
		b.TransactionID = &ref
	}
	if err := s.save(ctx, b, prev); err != nil {
		return nil, err
	}
	return b, nil
}

// isSuperseded reports whether ref belongs to an older attempt than the one attached.
func isSuperseded(b *Booking, ref string) bool {
	return ref != "" && b.TransactionID != nil && *b.TransactionID != ref
}
