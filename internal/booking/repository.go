package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Create(ctx context.Context, b *Booking) error
	GetByCode(ctx context.Context, code string) (*Booking, error)
	List(ctx context.Context, filter Filter) ([]*Booking, int, error)
	// Update writes b only while the stored row still matches prev.
	// A lost race returns ErrStaleBooking.
	Update(ctx context.Context, b *Booking, prev expect) error
	Delete(ctx context.Context, code string) error

	// HasActive reports whether the user already holds a booking that is
	// neither cancelled nor failed for the hall and date. excludeCode is
	// ignored so an edit does not conflict with itself.
	HasActive(ctx context.Context, userID, hallID string, date time.Time, excludeCode string) (bool, error)
	Stats(ctx context.Context) (*Stats, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var bookingColumns = []string{
	"b.id", "b.code", "b.user_id", "u.email", "b.hall_id", "h.name", "b.event_date", "b.amount",
	"b.is_allowed", "b.is_paid", "b.transaction_id", "b.status", "b.refund_status",
	"b.refund_amount", "b.refund_processed_at", "b.created_at", "b.updated_at",
}

func (r *pgxRepository) selectBookings(columns ...string) squirrel.SelectBuilder {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	return psql.Select(append(append([]string{}, bookingColumns...), columns...)...).
		From("public.bookings b").
		Join("public.users u ON b.user_id = u.id").
		Join("public.halls h ON b.hall_id = h.id")
}

func bookingDest(b *Booking) []any {
	return []any{
		&b.ID, &b.Code, &b.UserID, &b.UserEmail, &b.HallID, &b.HallName, &b.Date, &b.Amount,
		&b.IsAllowed, &b.IsPaid, &b.TransactionID, &b.Status, &b.RefundStatus,
		&b.RefundAmount, &b.RefundProcessedAt, &b.CreatedAt, &b.UpdatedAt,
	}
}

func (r *pgxRepository) Create(ctx context.Context, b *Booking) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.bookings").
		Columns("code", "user_id", "hall_id", "event_date", "amount", "status", "refund_status").
		Values(b.Code, b.UserID, b.HallID, b.Date, b.Amount, string(b.Status), string(b.RefundStatus)).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create booking query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return errCodeTaken
		}
		return fmt.Errorf("create booking failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByCode(ctx context.Context, code string) (*Booking, error) {
	query, args, err := r.selectBookings().
		Where(squirrel.Eq{"b.code": code}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get booking query failed: %w", err)
	}

	var b Booking
	if err := r.pool.QueryRow(ctx, query, args...).Scan(bookingDest(&b)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking failed: %w", err)
	}
	return &b, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Booking, int, error) {
	query := r.selectBookings("count(*) OVER() AS total_count")

	if filter.UserID != "" {
		query = query.Where(squirrel.Eq{"b.user_id": filter.UserID})
	}
	if filter.HallID != "" {
		query = query.Where(squirrel.Eq{"b.hall_id": filter.HallID})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"b.status": filter.Status})
	}
	if filter.DateFrom != nil {
		query = query.Where(squirrel.GtOrEq{"b.event_date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		query = query.Where(squirrel.LtOrEq{"b.event_date": *filter.DateTo})
	}

	// Sorting
	orderBy := "b.created_at"
	switch filter.SortBy {
	case "event_date", "amount", "status", "created_at", "updated_at":
		orderBy = "b." + filter.SortBy
	}
	orderDir := "DESC"
	if filter.SortOrder == "ASC" {
		orderDir = "ASC"
	}
	query = query.OrderBy(orderBy + " " + orderDir)

	// Pagination
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize
	query = query.Limit(uint64(filter.PageSize)).Offset(uint64(offset))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list bookings query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings failed: %w", err)
	}
	defer rows.Close()

	var bookings []*Booking
	var total int

	for rows.Next() {
		var b Booking
		if err := rows.Scan(append(bookingDest(&b), &total)...); err != nil {
			return nil, 0, fmt.Errorf("scan booking failed: %w", err)
		}
		bookings = append(bookings, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate bookings failed: %w", err)
	}

	return bookings, total, nil
}

func (r *pgxRepository) Update(ctx context.Context, b *Booking, prev expect) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.bookings").
		Set("hall_id", b.HallID).
		Set("event_date", b.Date).
		Set("amount", b.Amount).
		Set("is_allowed", b.IsAllowed).
		Set("is_paid", b.IsPaid).
		Set("transaction_id", b.TransactionID).
		Set("status", string(b.Status)).
		Set("refund_status", string(b.RefundStatus)).
		Set("refund_amount", b.RefundAmount).
		Set("refund_processed_at", b.RefundProcessedAt).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{
			"code":          b.Code,
			"status":        string(prev.Status),
			"refund_status": string(prev.RefundStatus),
		}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update booking query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrStaleBooking
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			// bookings_one_confirmed_idx: another booking is already Confirmed.
			return ErrSlotBooked
		}
		return fmt.Errorf("update booking failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) Delete(ctx context.Context, code string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Delete("public.bookings").
		Where(squirrel.Eq{"code": code}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete booking query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete booking failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) HasActive(ctx context.Context, userID, hallID string, date time.Time, excludeCode string) (bool, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	subQuery := psql.Select("1").
		From("public.bookings").
		Where(squirrel.Eq{"user_id": userID, "hall_id": hallID, "event_date": date}).
		Where(squirrel.NotEq{"status": []string{string(StatusCancelled), string(StatusPaymentFailed)}})

	if excludeCode != "" {
		subQuery = subQuery.Where(squirrel.NotEq{"code": excludeCode})
	}

	sql, args, err := subQuery.ToSql()
	if err != nil {
		return false, fmt.Errorf("build active booking query failed: %w", err)
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, "SELECT EXISTS ("+sql+")", args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("check active booking failed: %w", err)
	}
	return exists, nil
}

func (r *pgxRepository) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{ByStatus: make(map[Status]int)}

	rows, err := r.pool.Query(ctx, `SELECT status, count(*) FROM public.bookings GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count bookings by status failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status Status
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan booking stats failed: %w", err)
		}
		stats.ByStatus[status] = n
		stats.TotalBookings += n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate booking stats failed: %w", err)
	}

	const totals = `
		SELECT
			COALESCE(sum(amount) FILTER (WHERE status = 'Confirmed'), 0),
			count(*) FILTER (WHERE refund_status = 'Pending'),
			COALESCE(sum(refund_amount) FILTER (WHERE refund_status = 'Pending'), 0),
			COALESCE(sum(refund_amount) FILTER (WHERE refund_status = 'Processed'), 0),
			(SELECT count(*) FROM public.halls),
			(SELECT count(*) FROM public.users)
		FROM public.bookings
	`
	if err := r.pool.QueryRow(ctx, totals).Scan(
		&stats.Revenue, &stats.RefundsPending, &stats.RefundPendingAmount,
		&stats.RefundedAmount, &stats.Halls, &stats.Users,
	); err != nil {
		return nil, fmt.Errorf("booking totals failed: %w", err)
	}

	return stats, nil
}
