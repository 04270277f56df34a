package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Create(ctx context.Context, a *Attempt) error
	GetByReference(ctx context.Context, reference string) (*Attempt, error)
	// UpdateOutcome records the gateway result. Attempts that already hold a
	// final status are left alone and reported as not updated.
	UpdateOutcome(ctx context.Context, a *Attempt) (bool, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) Create(ctx context.Context, a *Attempt) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.payment_attempts").
		Columns("reference", "booking_code", "amount", "status").
		Values(a.Reference, a.BookingCode, a.Amount, string(a.Status)).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create attempt query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&a.CreatedAt, &a.UpdatedAt); err != nil {
		return fmt.Errorf("create payment attempt failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByReference(ctx context.Context, reference string) (*Attempt, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(
		"reference", "booking_code", "amount", "status", "gateway_txn_id",
		"response_code", "created_at", "updated_at",
	).
		From("public.payment_attempts").
		Where(squirrel.Eq{"reference": reference}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get attempt query failed: %w", err)
	}

	var a Attempt
	err = r.pool.QueryRow(ctx, query, args...).Scan(
		&a.Reference, &a.BookingCode, &a.Amount, &a.Status, &a.GatewayTxnID,
		&a.ResponseCode, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("get payment attempt failed: %w", err)
	}
	return &a, nil
}

func (r *pgxRepository) UpdateOutcome(ctx context.Context, a *Attempt) (bool, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.payment_attempts").
		Set("status", string(a.Status)).
		Set("gateway_txn_id", a.GatewayTxnID).
		Set("response_code", a.ResponseCode).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"reference": a.Reference}).
		Where(squirrel.NotEq{"status": []string{string(AttemptSuccess), string(AttemptFailed)}}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build update attempt query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("update payment attempt failed: %w", err)
	}
	return true, nil
}
