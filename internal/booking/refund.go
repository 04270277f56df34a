package booking

import (
	"context"
)

// RequestRefund opens a refund for a paid booking that left the happy path.
// The booking status itself is unchanged.
func (s *service) RequestRefund(ctx context.Context, code, actorID string, isAdmin bool) (*Booking, error) {
	b, err := s.getAuthorized(ctx, code, actorID, isAdmin)
	if err != nil {
		return nil, err
	}
	if b.RefundStatus == RefundPending {
		return b, nil
	}
	if !b.IsPaid || !b.RefundStatus.CanTransitionTo(RefundPending) {
		return nil, ErrRefundNotAllowed
	}
	if b.Status != StatusCancelled && b.Status != StatusRefundPending {
		return nil, ErrRefundNotAllowed
	}

	prev := expectOf(b)
	b.RefundStatus = RefundPending
	b.RefundAmount = b.Amount
	if err := s.save(ctx, b, prev); err != nil {
		return nil, err
	}

	s.logger.Info().Str("booking_code", b.Code).Int64("amount", b.RefundAmount).Msg("refund requested")
	return b, nil
}

// ProcessRefund records that the money was returned out of band.
func (s *service) ProcessRefund(ctx context.Context, code, actorID string) (*Booking, error) {
	return s.closeRefund(ctx, code, actorID, RefundProcessed)
}

func (s *service) RejectRefund(ctx context.Context, code, actorID string) (*Booking, error) {
	return s.closeRefund(ctx, code, actorID, RefundRejected)
}

func (s *service) closeRefund(ctx context.Context, code, actorID string, to RefundStatus) (*Booking, error) {
	b, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if b.RefundStatus == to {
		return b, nil
	}
	if !b.RefundStatus.CanTransitionTo(to) {
		return nil, ErrRefundNotAllowed
	}

	prev := expectOf(b)
	b.RefundStatus = to
	if to == RefundProcessed {
		now := s.now().UTC()
		b.RefundProcessedAt = &now
	}
	if err := s.save(ctx, b, prev); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("booking_code", b.Code).
		Str("actor_id", actorID).
		Str("refund_status", string(to)).
		Int64("amount", b.RefundAmount).
		Msg("refund closed")
	return b, nil
}

func (s *service) GetRefundStatus(ctx context.Context, code, actorID string, isAdmin bool) (*RefundInfo, error) {
	b, err := s.getAuthorized(ctx, code, actorID, isAdmin)
	if err != nil {
		return nil, err
	}
	return &RefundInfo{
		Code:         b.Code,
		Status:       b.Status,
		IsPaid:       b.IsPaid,
		RefundStatus: b.RefundStatus,
		RefundAmount: b.RefundAmount,
		ProcessedAt:  b.RefundProcessedAt,
	}, nil
}
