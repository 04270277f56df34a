package hall

import (
	"context"
	"strings"
	"time"
)

type CreateRequest struct {
	Name     string
	Location string
	Capacity int
	Price    int64
}

type UpdateRequest struct {
	Name     *string
	Location *string
	Capacity *int
	Price    *int64
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Hall, error)
	GetByID(ctx context.Context, id string) (*Hall, error)
	List(ctx context.Context, filter Filter) ([]*Hall, int, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*Hall, error)
	Delete(ctx context.Context, id string) error
	SetPhoto(ctx context.Context, id, mediaID string) (*Hall, error)

	Rent(ctx context.Context, id string, date time.Time) (*Rent, error)
	ListAvailability(ctx context.Context, id string, from, to time.Time) ([]*AvailabilityEntry, error)
	SetEntry(ctx context.Context, id string, date time.Time, status AvailabilityStatus) error
	ClearEntry(ctx context.Context, id string, date time.Time) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Hall, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, ErrEmptyName
	}
	if req.Price < 0 {
		return nil, ErrInvalidPrice
	}
	if req.Capacity < 0 {
		return nil, ErrInvalidCapacity
	}

	h := &Hall{
		Name:     strings.TrimSpace(req.Name),
		Location: strings.TrimSpace(req.Location),
		Capacity: req.Capacity,
		Price:    req.Price,
	}
	if err := s.repo.Create(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Hall, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Hall, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *service) Update(ctx context.Context, id string, req UpdateRequest) (*Hall, error) {
	h, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, ErrEmptyName
		}
		h.Name = strings.TrimSpace(*req.Name)
	}
	if req.Location != nil {
		h.Location = strings.TrimSpace(*req.Location)
	}
	if req.Capacity != nil {
		if *req.Capacity < 0 {
			return nil, ErrInvalidCapacity
		}
		h.Capacity = *req.Capacity
	}
	// Existing bookings keep the amount they were created with.
	if req.Price != nil {
		if *req.Price < 0 {
			return nil, ErrInvalidPrice
		}
		h.Price = *req.Price
	}

	if err := s.repo.Update(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *service) SetPhoto(ctx context.Context, id, mediaID string) (*Hall, error) {
	h, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	h.PhotoID = &mediaID
	if err := s.repo.Update(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

func (s *service) Rent(ctx context.Context, id string, date time.Time) (*Rent, error) {
	h, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	day := NormalizeDate(date)
	booked, err := s.repo.IsBooked(ctx, id, day)
	if err != nil {
		return nil, err
	}
	return &Rent{HallID: h.ID, Date: day, Price: h.Price, Booked: booked}, nil
}

func (s *service) ListAvailability(ctx context.Context, id string, from, to time.Time) ([]*AvailabilityEntry, error) {
	from, to = NormalizeDate(from), NormalizeDate(to)
	if to.Before(from) || to.Sub(from) > maxRangeDays*24*time.Hour {
		return nil, ErrInvalidRange
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListAvailability(ctx, id, from, to)
}

func (s *service) SetEntry(ctx context.Context, id string, date time.Time, status AvailabilityStatus) error {
	if !status.Valid() || status == StatusBooked {
		return ErrInvalidEntryStatus
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.SetEntry(ctx, id, date, status)
}

func (s *service) ClearEntry(ctx context.Context, id string, date time.Time) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.ClearEntry(ctx, id, date)
}
