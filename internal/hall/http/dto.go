package http

import (
	"time"

	"github.com/nekogravitycat/venue-booking-backend/internal/hall"
	"github.com/nekogravitycat/venue-booking-backend/internal/media"
	"github.com/nekogravitycat/venue-booking-backend/internal/pkg/request"
)

type HallResponse struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Location          string    `json:"location"`
	Capacity          int       `json:"capacity"`
	Price             int64     `json:"price"`
	PhotoURL          *string   `json:"photo_url"`
	PhotoThumbnailURL *string   `json:"photo_thumbnail_url"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func NewHallResponse(h *hall.Hall) HallResponse {
	resp := HallResponse{
		ID:        h.ID,
		Name:      h.Name,
		Location:  h.Location,
		Capacity:  h.Capacity,
		Price:     h.Price,
		CreatedAt: h.CreatedAt,
		UpdatedAt: h.UpdatedAt,
	}
	if h.PhotoID != nil {
		url := media.URL(*h.PhotoID)
		thumb := media.ThumbnailURL(*h.PhotoID)
		resp.PhotoURL = &url
		resp.PhotoThumbnailURL = &thumb
	}
	return resp
}

type AvailabilityResponse struct {
	Date      string    `json:"date"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewAvailabilityResponse(e *hall.AvailabilityEntry) AvailabilityResponse {
	// The booking reference stays internal; the public calendar only needs the status.
	return AvailabilityResponse{
		Date:      e.Date.Format(hall.DateLayout),
		Status:    string(e.Status),
		UpdatedAt: e.UpdatedAt,
	}
}

type RentResponse struct {
	HallID    string `json:"hall_id"`
	Date      string `json:"date"`
	Price     int64  `json:"price"`
	Available bool   `json:"available"`
}

type ListHallsRequest struct {
	request.ListParams
	Name   string `form:"name"`
	SortBy string `form:"sort_by" binding:"omitempty,oneof=name price capacity created_at"`
}

type AvailabilityQuery struct {
	From string `form:"from" binding:"required,datetime=2006-01-02"`
	To   string `form:"to" binding:"required,datetime=2006-01-02"`
}

type RentQuery struct {
	Date string `form:"date" binding:"required,datetime=2006-01-02"`
}

type EntryURI struct {
	ID   string `uri:"id" binding:"required,uuid"`
	Date string `uri:"date" binding:"required,datetime=2006-01-02"`
}

type SetEntryRequest struct {
	Status string `json:"status" binding:"required,oneof=available preliminary blocked special"`
}

type CreateHallRequest struct {
	Name     string `json:"name" binding:"required"`
	Location string `json:"location"`
	Capacity int    `json:"capacity" binding:"min=0"`
	Price    *int64 `json:"price" binding:"required,min=0"`
}

type UpdateHallRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=1"`
	Location *string `json:"location"`
	Capacity *int    `json:"capacity" binding:"omitempty,min=0"`
	Price    *int64  `json:"price" binding:"omitempty,min=0"`
}

type PhotoUploadResponse struct {
	Hall         HallResponse `json:"hall"`
	MediaID      string       `json:"media_id"`
	URL          string       `json:"url"`
	ThumbnailURL string       `json:"thumbnail_url"`
}
