package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"slices"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultImageTypes are the content types accepted for hall photos.
var DefaultImageTypes = []string{"image/jpeg", "image/png", "image/gif"}

// UploadInput describes one upload and its limits.
type UploadInput struct {
	FileHeader   *multipart.FileHeader
	UploaderID   string
	MaxSizeBytes int64
	AllowedTypes []string
}

type Service interface {
	Upload(ctx context.Context, in UploadInput) (*Media, error)
	Get(ctx context.Context, id string) (*Media, error)
	Open(ctx context.Context, id string) (io.ReadCloser, *Media, error)
	OpenThumbnail(ctx context.Context, id string) (io.ReadCloser, *Media, error)
	Delete(ctx context.Context, id string) error
}

type service struct {
	repo    Repository
	storage Storage
	logger  zerolog.Logger
}

func NewService(repo Repository, storage Storage, logger zerolog.Logger) Service {
	return &service{
		repo:    repo,
		storage: storage,
		logger:  logger.With().Str("component", "media").Logger(),
	}
}

func (s *service) Upload(ctx context.Context, in UploadInput) (*Media, error) {
	if in.FileHeader == nil {
		return nil, ErrUnreadableUpload
	}
	if in.MaxSizeBytes > 0 && in.FileHeader.Size > in.MaxSizeBytes {
		return nil, ErrTooLarge
	}

	src, err := in.FileHeader.Open()
	if err != nil {
		return nil, ErrUnreadableUpload
	}
	defer src.Close()

	raw, err := io.ReadAll(src)
	if err != nil {
		return nil, ErrUnreadableUpload
	}

	// Sniff instead of trusting the client's Content-Type.
	contentType := http.DetectContentType(raw)
	allowed := in.AllowedTypes
	if len(allowed) == 0 {
		allowed = DefaultImageTypes
	}
	if !slices.Contains(allowed, contentType) {
		return nil, ErrUnsupportedType
	}

	photo, err := fit(bytes.NewReader(raw), photoMaxSide, photoMaxSide)
	if err != nil {
		return nil, ErrUnsupportedType
	}
	thumb, err := fit(bytes.NewReader(raw), thumbnailWidth, thumbnailHeight)
	if err != nil {
		return nil, ErrUnsupportedType
	}

	id := uuid.New().String()
	shard := id[:2]
	storagePath := fmt.Sprintf("halls/%s/%s.jpg", shard, id)
	thumbPath := fmt.Sprintf("halls/%s/%s_thumb.jpg", shard, id)
	size := int64(photo.Len())

	if err := s.storage.Save(ctx, storagePath, photo); err != nil {
		return nil, err
	}
	if err := s.storage.Save(ctx, thumbPath, thumb); err != nil {
		_ = s.storage.Remove(ctx, storagePath)
		return nil, err
	}

	m := &Media{
		ID:            id,
		UploaderID:    in.UploaderID,
		Filename:      in.FileHeader.Filename,
		StoragePath:   storagePath,
		ThumbnailPath: &thumbPath,
		ContentType:   "image/jpeg",
		Size:          size,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		_ = s.storage.Remove(ctx, storagePath)
		_ = s.storage.Remove(ctx, thumbPath)
		return nil, err
	}

	s.logger.Info().Str("media_id", id).Int64("size", size).Msg("media uploaded")
	return m, nil
}

func (s *service) Get(ctx context.Context, id string) (*Media, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) Open(ctx context.Context, id string) (io.ReadCloser, *Media, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.storage.Open(ctx, m.StoragePath)
	if err != nil {
		return nil, nil, err
	}
	return rc, m, nil
}

func (s *service) OpenThumbnail(ctx context.Context, id string) (io.ReadCloser, *Media, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if m.ThumbnailPath == nil {
		return nil, nil, ErrNoThumbnail
	}
	rc, err := s.storage.Open(ctx, *m.ThumbnailPath)
	if err != nil {
		return nil, nil, err
	}
	return rc, m, nil
}

// Delete removes the metadata row first; orphaned bytes are only logged.
func (s *service) Delete(ctx context.Context, id string) error {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if err := s.storage.Remove(ctx, m.StoragePath); err != nil {
		s.logger.Warn().Err(err).Str("media_id", id).Msg("failed to remove media file")
	}
	if m.ThumbnailPath != nil {
		if err := s.storage.Remove(ctx, *m.ThumbnailPath); err != nil {
			s.logger.Warn().Err(err).Str("media_id", id).Msg("failed to remove thumbnail")
		}
	}
	return nil
}
