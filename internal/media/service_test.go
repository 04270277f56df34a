package media

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	mu    sync.Mutex
	items map[string]*Media
}

func newMemRepo() *memRepo {
	return &memRepo{items: map[string]*Media{}}
}

func (r *memRepo) Create(_ context.Context, m *Media) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.items[m.ID] = &cp
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id string) (*Media, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *memRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func formFile(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["file"][0]
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestService(t *testing.T) (Service, *memRepo) {
	t.Helper()
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo := newMemRepo()
	return NewService(repo, store, zerolog.Nop()), repo
}

func TestUploadAndOpen(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	m, err := svc.Upload(ctx, UploadInput{
		FileHeader: formFile(t, "hall.png", pngBytes(t, 800, 600)),
		UploaderID: "admin-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", m.ContentType)
	require.NotNil(t, m.ThumbnailPath)
	assert.Len(t, repo.items, 1)

	rc, got, err := svc.OpenThumbnail(ctx, m.ID)
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, m.ID, got.ID)

	thumb, _, err := image.Decode(rc)
	require.NoError(t, err)
	assert.LessOrEqual(t, thumb.Bounds().Dx(), thumbnailWidth)
	assert.LessOrEqual(t, thumb.Bounds().Dy(), thumbnailHeight)
}

func TestUploadRejects(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	_, err := svc.Upload(ctx, UploadInput{
		FileHeader: formFile(t, "notes.txt", []byte("plain text, not an image")),
	})
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = svc.Upload(ctx, UploadInput{
		FileHeader:   formFile(t, "big.png", pngBytes(t, 64, 64)),
		MaxSizeBytes: 10,
	})
	assert.ErrorIs(t, err, ErrTooLarge)

	assert.Empty(t, repo.items)
}

func TestDelete(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	m, err := svc.Upload(ctx, UploadInput{FileHeader: formFile(t, "a.png", pngBytes(t, 32, 32))})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, m.ID))

	_, _, err = svc.Open(ctx, m.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, m.ID), ErrNotFound)
}

func TestLocalStorageMissingFile(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Open(context.Background(), "nope.jpg")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, store.Remove(context.Background(), "nope.jpg"))

	require.NoError(t, store.Save(context.Background(), "a/b.txt", bytes.NewBufferString("hi")))
	rc, err := store.Open(context.Background(), "a/b.txt")
	require.NoError(t, err)
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	assert.Equal(t, "hi", string(b))
}
