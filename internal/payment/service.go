package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/nekogravitycat/venue-booking-backend/internal/booking"
	"github.com/nekogravitycat/venue-booking-backend/internal/metrics"
)

const (
	// responseSuccess is the gateway's code for a captured payment.
	responseSuccess = "E000"
	referenceSuffix = 6
)

// Bookings is the part of the booking engine the reconciler drives.
type Bookings interface {
	Get(ctx context.Context, code, actorID string, isAdmin bool) (*booking.Booking, error)
	AttachTransaction(ctx context.Context, code, ref string) (*booking.Booking, error)
	RecordPayment(ctx context.Context, code, ref string) (*booking.Booking, error)
	MarkPaymentFailed(ctx context.Context, code, ref string) (*booking.Booking, error)
	MarkPaymentProcessing(ctx context.Context, code, ref string) (*booking.Booking, error)
}

// Initiation is a started payment the caller redirects the payer for.
type Initiation struct {
	Reference   string
	BookingCode string
	Amount      int64
	RedirectURL string
}

// VerifyResult is the gateway's view of an attempt plus the booking after it was applied.
type VerifyResult struct {
	Reference string
	Outcome   Outcome
	RawStatus string
	Booking   *booking.Booking
}

type Service interface {
	Initiate(ctx context.Context, code, actorID string) (*Initiation, error)
	// HandleReturn applies the signed fields the gateway posts back.
	// A bad signature yields ErrIntegrity and changes nothing.
	HandleReturn(ctx context.Context, fields map[string]string) (*Receipt, error)
	Verify(ctx context.Context, reference, actorID string, isAdmin bool) (*VerifyResult, error)
}

type service struct {
	repo     Repository
	gateway  Gateway
	bookings Bookings
	logger   zerolog.Logger
}

func NewService(repo Repository, gateway Gateway, bookings Bookings, logger zerolog.Logger) Service {
	return &service{
		repo:     repo,
		gateway:  gateway,
		bookings: bookings,
		logger:   logger.With().Str("component", "payment").Logger(),
	}
}

func (s *service) Initiate(ctx context.Context, code, actorID string) (*Initiation, error) {
	// Only the owner pays for a booking.
	b, err := s.bookings.Get(ctx, code, actorID, false)
	if err != nil {
		return nil, err
	}
	if b.Status != booking.StatusAwaitingPayment && b.Status != booking.StatusPaymentFailed {
		return nil, ErrNotPayable
	}

	suffix, err := booking.RandomSuffix(referenceSuffix)
	if err != nil {
		return nil, fmt.Errorf("generate payment reference: %w", err)
	}
	a := &Attempt{
		Reference:   b.Code + "-" + suffix,
		BookingCode: b.Code,
		Amount:      b.Amount,
		Status:      AttemptInitiated,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	if _, err := s.bookings.AttachTransaction(ctx, b.Code, a.Reference); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("booking_code", b.Code).
		Str("reference", a.Reference).
		Int64("amount", a.Amount).
		Msg("payment initiated")

	return &Initiation{
		Reference:   a.Reference,
		BookingCode: b.Code,
		Amount:      a.Amount,
		RedirectURL: s.gateway.PaymentURL(a.Reference, b.Code, a.Amount),
	}, nil
}

func (s *service) HandleReturn(ctx context.Context, fields map[string]string) (*Receipt, error) {
	ref := fields["ReferenceNo"]
	if !s.gateway.Authentic(fields) {
		metrics.IncSignatureMismatch()
		s.logger.Warn().
			Str("reference", ref).
			Str("response_code", fields["Response_Code"]).
			Msg("payment signature mismatch; possible tampering")
		return nil, ErrIntegrity
	}

	a, err := s.repo.GetByReference(ctx, ref)
	if err != nil {
		return nil, err
	}

	outcome := OutcomeFailed
	if fields["Response_Code"] == responseSuccess {
		outcome = OutcomeSuccess
	}
	if err := s.apply(ctx, a, outcome, fields["Unique_Ref_Number"], fields["Response_Code"], "return"); err != nil {
		return nil, err
	}

	receipt := &Receipt{Reference: a.Reference, BookingCode: a.BookingCode, Outcome: outcome}
	if outcome == OutcomeSuccess {
		receipt.Message = "Payment received."
	} else {
		receipt.Message = "Payment was not completed. You can retry from your booking."
	}
	return receipt, nil
}

func (s *service) Verify(ctx context.Context, reference, actorID string, isAdmin bool) (*VerifyResult, error) {
	a, err := s.repo.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if _, err := s.bookings.Get(ctx, a.BookingCode, actorID, isAdmin); err != nil {
		if errors.Is(err, booking.ErrPermissionDenied) {
			return nil, ErrPermissionDenied
		}
		return nil, err
	}

	v, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		s.logger.Warn().Err(err).Str("reference", reference).Msg("payment verification failed")
		return nil, err
	}
	if err := s.apply(ctx, a, v.Outcome, v.GatewayTxnID, v.RawStatus, "verify"); err != nil {
		return nil, err
	}

	b, err := s.bookings.Get(ctx, a.BookingCode, actorID, isAdmin)
	if err != nil {
		return nil, err
	}
	return &VerifyResult{Reference: reference, Outcome: v.Outcome, RawStatus: v.RawStatus, Booking: b}, nil
}

// apply pushes an outcome into the booking and then records it on the
// attempt. An attempt that already has its final outcome is not replayed.
func (s *service) apply(ctx context.Context, a *Attempt, outcome Outcome, txnID, responseCode, source string) error {
	if a.Status.IsFinal() {
		if a.Status != outcome.attemptStatus() {
			s.logger.Warn().
				Str("reference", a.Reference).
				Str("recorded", string(a.Status)).
				Str("reported", string(outcome)).
				Str("source", source).
				Msg("gateway outcome differs from the recorded one; keeping the recorded outcome")
		}
		return nil
	}

	var err error
	switch outcome {
	case OutcomeSuccess:
		_, err = s.bookings.RecordPayment(ctx, a.BookingCode, a.Reference)
	case OutcomeFailed:
		_, err = s.bookings.MarkPaymentFailed(ctx, a.BookingCode, a.Reference)
	default:
		_, err = s.bookings.MarkPaymentProcessing(ctx, a.BookingCode, a.Reference)
	}
	if err != nil {
		s.logger.Error().Err(err).
			Str("reference", a.Reference).
			Str("booking_code", a.BookingCode).
			Str("outcome", string(outcome)).
			Msg("failed to apply payment outcome")
		return err
	}

	a.Status = outcome.attemptStatus()
	if txnID != "" {
		a.GatewayTxnID = &txnID
	}
	if responseCode != "" {
		a.ResponseCode = &responseCode
	}
	updated, err := s.repo.UpdateOutcome(ctx, a)
	if err != nil {
		return err
	}
	if updated {
		metrics.ObservePaymentOutcome(source, string(outcome))
		s.logger.Info().
			Str("reference", a.Reference).
			Str("booking_code", a.BookingCode).
			Str("outcome", string(outcome)).
			Str("source", source).
			Msg("payment outcome recorded")
	}
	return nil
}
