package hall

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
	Ledger

	Create(ctx context.Context, h *Hall) error
	GetByID(ctx context.Context, id string) (*Hall, error)
	List(ctx context.Context, filter Filter) ([]*Hall, int, error)
	Update(ctx context.Context, h *Hall) error
	Delete(ctx context.Context, id string) error

	ListAvailability(ctx context.Context, hallID string, from, to time.Time) ([]*AvailabilityEntry, error)
	SetEntry(ctx context.Context, hallID string, date time.Time, status AvailabilityStatus) error
	ClearEntry(ctx context.Context, hallID string, date time.Time) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var hallColumns = []string{"id", "name", "location", "capacity", "price", "photo_id", "created_at", "updated_at"}

func scanHall(row pgx.Row) (*Hall, error) {
	var h Hall
	err := row.Scan(&h.ID, &h.Name, &h.Location, &h.Capacity, &h.Price, &h.PhotoID, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *pgxRepository) Create(ctx context.Context, h *Hall) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.halls").
		Columns("name", "location", "capacity", "price").
		Values(h.Name, h.Location, h.Capacity, h.Price).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create hall query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&h.ID, &h.CreatedAt, &h.UpdatedAt); err != nil {
		return fmt.Errorf("create hall failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Hall, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(hallColumns...).
		From("public.halls").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get hall query failed: %w", err)
	}

	h, err := scanHall(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get hall failed: %w", err)
	}
	return h, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Hall, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	qb := psql.Select(append(hallColumns, "count(*) OVER() AS total_count")...).
		From("public.halls")

	if filter.Name != "" {
		qb = qb.Where(squirrel.ILike{"name": "%" + filter.Name + "%"})
	}

	sortBy := "created_at"
	switch filter.SortBy {
	case "name", "price", "capacity", "created_at":
		sortBy = filter.SortBy
	}
	sortOrder := "DESC"
	if filter.SortOrder == "ASC" {
		sortOrder = "ASC"
	}
	qb = qb.OrderBy(sortBy + " " + sortOrder)

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	qb = qb.Limit(uint64(filter.PageSize)).Offset(uint64((filter.Page - 1) * filter.PageSize))

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list halls query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list halls failed: %w", err)
	}
	defer rows.Close()

	var result []*Hall
	var total int
	for rows.Next() {
		var h Hall
		if err := rows.Scan(
			&h.ID, &h.Name, &h.Location, &h.Capacity, &h.Price, &h.PhotoID, &h.CreatedAt, &h.UpdatedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan hall failed: %w", err)
		}
		result = append(result, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate halls failed: %w", err)
	}

	return result, total, nil
}

func (r *pgxRepository) Update(ctx context.Context, h *Hall) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.halls").
		Set("name", h.Name).
		Set("location", h.Location).
		Set("capacity", h.Capacity).
		Set("price", h.Price).
		Set("photo_id", h.PhotoID).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": h.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update hall query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&h.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update hall failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM public.halls WHERE id = $1`
	ct, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return ErrHasBookings
		}
		return fmt.Errorf("delete hall failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) IsBooked(ctx context.Context, hallID string, date time.Time) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM public.hall_availability
			WHERE hall_id = $1 AND day = $2 AND status = 'booked'
		)
	`
	var booked bool
	if err := r.pool.QueryRow(ctx, query, hallID, NormalizeDate(date)).Scan(&booked); err != nil {
		return false, fmt.Errorf("check hall availability failed: %w", err)
	}
	return booked, nil
}

func (r *pgxRepository) MarkBooked(ctx context.Context, hallID string, date time.Time, ref string) error {
	// The conflict target serializes writers on (hall_id, day). The WHERE
	// clause turns a foreign booked row into zero affected rows.
	const query = `
		INSERT INTO public.hall_availability (hall_id, day, status, booking_ref)
		VALUES ($1, $2, 'booked', $3)
		ON CONFLICT (hall_id, day) DO UPDATE
		SET status = 'booked', booking_ref = EXCLUDED.booking_ref, updated_at = now()
		WHERE public.hall_availability.status <> 'booked'
		   OR public.hall_availability.booking_ref = EXCLUDED.booking_ref
	`
	ct, err := r.pool.Exec(ctx, query, hallID, NormalizeDate(date), ref)
	if err != nil {
		return fmt.Errorf("mark hall booked failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrSlotTaken
	}
	return nil
}

func (r *pgxRepository) Release(ctx context.Context, hallID string, date time.Time, ref string) error {
	const query = `
		DELETE FROM public.hall_availability
		WHERE hall_id = $1 AND day = $2 AND status = 'booked' AND booking_ref = $3
	`
	if _, err := r.pool.Exec(ctx, query, hallID, NormalizeDate(date), ref); err != nil {
		return fmt.Errorf("release hall day failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) ListAvailability(ctx context.Context, hallID string, from, to time.Time) ([]*AvailabilityEntry, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select("hall_id", "day", "status", "booking_ref", "updated_at").
		From("public.hall_availability").
		Where(squirrel.Eq{"hall_id": hallID}).
		Where(squirrel.GtOrEq{"day": NormalizeDate(from)}).
		Where(squirrel.LtOrEq{"day": NormalizeDate(to)}).
		OrderBy("day ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list availability query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list availability failed: %w", err)
	}
	defer rows.Close()

	var result []*AvailabilityEntry
	for rows.Next() {
		var e AvailabilityEntry
		if err := rows.Scan(&e.HallID, &e.Date, &e.Status, &e.BookingRef, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan availability failed: %w", err)
		}
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate availability failed: %w", err)
	}
	return result, nil
}

func (r *pgxRepository) SetEntry(ctx context.Context, hallID string, date time.Time, status AvailabilityStatus) error {
	const query = `
		INSERT INTO public.hall_availability (hall_id, day, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (hall_id, day) DO UPDATE
		SET status = EXCLUDED.status, updated_at = now()
		WHERE public.hall_availability.status <> 'booked'
	`
	ct, err := r.pool.Exec(ctx, query, hallID, NormalizeDate(date), string(status))
	if err != nil {
		return fmt.Errorf("set availability failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrBookedEntry
	}
	return nil
}

func (r *pgxRepository) ClearEntry(ctx context.Context, hallID string, date time.Time) error {
	const query = `
		DELETE FROM public.hall_availability
		WHERE hall_id = $1 AND day = $2 AND status <> 'booked'
	`
	ct, err := r.pool.Exec(ctx, query, hallID, NormalizeDate(date))
	if err != nil {
		return fmt.Errorf("clear availability failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		booked, err := r.IsBooked(ctx, hallID, date)
		if err != nil {
			return err
		}
		if booked {
			return ErrBookedEntry
		}
	}
	return nil
}
