package media

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/venue-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound         = apperror.New(http.StatusNotFound, "media not found")
	ErrNoThumbnail      = apperror.New(http.StatusNotFound, "thumbnail not available")
	ErrTooLarge         = apperror.New(http.StatusRequestEntityTooLarge, "file too large")
	ErrUnsupportedType  = apperror.New(http.StatusUnsupportedMediaType, "unsupported file type")
	ErrUnreadableUpload = apperror.New(http.StatusBadRequest, "could not read uploaded file")
)

// Media is an uploaded image, currently used for hall photos.
type Media struct {
	ID            string
	UploaderID    string
	Filename      string
	StoragePath   string
	ThumbnailPath *string
	ContentType   string
	Size          int64
	CreatedAt     time.Time
}

// URL returns the public path serving the original file.
func URL(id string) string {
	return "/v1/media/" + id
}

// ThumbnailURL returns the public path serving the thumbnail.
func ThumbnailURL(id string) string {
	return "/v1/media/" + id + "/thumbnail"
}
