package services

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"frames/internal/domain/models"
	"frames/internal/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// memRepo хранит альбомы в памяти и повторяет правила видимости Postgres.
type memRepo struct {
	mu        sync.Mutex
	albums    map[uuid.UUID]models.Album
	photos    map[uuid.UUID][]models.Photo
	commitErr error
}

func newMemRepo() *memRepo {
	return &memRepo{
		albums: make(map[uuid.UUID]models.Album),
		photos: make(map[uuid.UUID][]models.Photo),
	}
}

func (r *memRepo) CreateAlbum(_ context.Context, album models.Album) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.albums {
		if a.Slug == album.Slug {
			return storage.ErrSlugExists
		}
	}
	r.albums[album.ID] = album
	return nil
}

func (r *memRepo) CommitAlbum(ctx context.Context, albumID uuid.UUID, photos []models.Photo) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.commitErr != nil {
		return r.commitErr
	}

	album, ok := r.albums[albumID]
	if !ok {
		return storage.ErrAlbumNotFound
	}
	album.Status = models.AlbumStatusCommitted
	r.albums[albumID] = album
	r.photos[albumID] = append([]models.Photo(nil), photos...)
	return nil
}

func (r *memRepo) DeleteAlbum(_ context.Context, albumID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.albums[albumID]; !ok {
		return storage.ErrAlbumNotFound
	}
	delete(r.albums, albumID)
	delete(r.photos, albumID)
	return nil
}

func (r *memRepo) GetAlbumBySlug(_ context.Context, slug string) (*models.AlbumWithPhotos, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, a := range r.albums {
		if a.Slug == slug && a.Status == models.AlbumStatusCommitted {
			return &models.AlbumWithPhotos{Album: a, Photos: append([]models.Photo(nil), r.photos[id]...)}, nil
		}
	}
	return nil, storage.ErrAlbumNotFound
}

// stored альбом в любом статусе вместе с фотографиями.
func (r *memRepo) stored(albumID uuid.UUID) (*models.AlbumWithPhotos, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.albums[albumID]
	if !ok {
		return nil, storage.ErrAlbumNotFound
	}
	return &models.AlbumWithPhotos{Album: a, Photos: append([]models.Photo(nil), r.photos[albumID]...)}, nil
}

func (r *memRepo) ListAlbums(_ context.Context, page, perPage int) ([]models.Album, int, error) {
	all := r.committed(func(models.Album) bool { return true })

	from := (page - 1) * perPage
	if from > len(all) {
		from = len(all)
	}
	to := from + perPage
	if to > len(all) {
		to = len(all)
	}
	return all[from:to], len(all), nil
}

func (r *memRepo) ListAlbumsByOwner(_ context.Context, ownerID string) ([]models.Album, error) {
	return r.committed(func(a models.Album) bool { return a.OwnerID == ownerID }), nil
}

func (r *memRepo) DeleteStaleProvisional(_ context.Context, before time.Time) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ids []uuid.UUID
	for id, a := range r.albums {
		if a.Status == models.AlbumStatusProvisional && a.CreatedAt.Before(before) {
			ids = append(ids, id)
			delete(r.albums, id)
		}
	}
	return ids, nil
}

func (r *memRepo) committed(keep func(models.Album) bool) []models.Album {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.Album
	for _, a := range r.albums {
		if a.Status == models.AlbumStatusCommitted && keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *memRepo) albumCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.albums)
}

// memFiles хранилище файлов в памяти.
type memFiles struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	failKey func(key string) bool
}

func newMemFiles() *memFiles {
	return &memFiles{blobs: make(map[string][]byte)}
}

func (f *memFiles) Save(ctx context.Context, key string, r io.Reader, _ string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if f.failKey != nil && f.failKey(key) {
		return 0, fmt.Errorf("disk full")
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[key] = data
	return int64(len(data)), nil
}

func (f *memFiles) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.blobs[key]; !ok {
		return storage.ErrFileNotFound
	}
	delete(f.blobs, key)
	return nil
}

func (f *memFiles) URL(key string) string {
	return "/uploads/" + key
}

func (f *memFiles) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.blobs)
}

// failingTranscoder отдает ошибку для одного имени файла.
type failingTranscoder struct {
	inner    ImageTranscoder
	filename string
	err      error
}

func (t *failingTranscoder) Transcode(ctx context.Context, filename string, data []byte) (*models.TranscodedImage, error) {
	if filename == t.filename {
		return nil, t.err
	}
	return t.inner.Transcode(ctx, filename, data)
}

type MockAlbumCache struct {
	mock.Mock
}

func (m *MockAlbumCache) Get(ctx context.Context, slug string) (*models.AlbumWithPhotos, error) {
	args := m.Called(ctx, slug)
	album, _ := args.Get(0).(*models.AlbumWithPhotos)
	return album, args.Error(1)
}

func (m *MockAlbumCache) Set(ctx context.Context, album *models.AlbumWithPhotos) error {
	args := m.Called(ctx, album)
	return args.Error(0)
}

func (m *MockAlbumCache) Delete(ctx context.Context, slug string) error {
	args := m.Called(ctx, slug)
	return args.Error(0)
}

type MockAlbumRepository struct {
	mock.Mock
}

func (m *MockAlbumRepository) CreateAlbum(ctx context.Context, album models.Album) error {
	args := m.Called(ctx, album)
	return args.Error(0)
}

func (m *MockAlbumRepository) CommitAlbum(ctx context.Context, albumID uuid.UUID, photos []models.Photo) error {
	args := m.Called(ctx, albumID, photos)
	return args.Error(0)
}

func (m *MockAlbumRepository) DeleteAlbum(ctx context.Context, albumID uuid.UUID) error {
	args := m.Called(ctx, albumID)
	return args.Error(0)
}

func (m *MockAlbumRepository) GetAlbumBySlug(ctx context.Context, slug string) (*models.AlbumWithPhotos, error) {
	args := m.Called(ctx, slug)
	album, _ := args.Get(0).(*models.AlbumWithPhotos)
	return album, args.Error(1)
}

func (m *MockAlbumRepository) ListAlbums(ctx context.Context, page, perPage int) ([]models.Album, int, error) {
	args := m.Called(ctx, page, perPage)
	return args.Get(0).([]models.Album), args.Int(1), args.Error(2)
}

func (m *MockAlbumRepository) ListAlbumsByOwner(ctx context.Context, ownerID string) ([]models.Album, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).([]models.Album), args.Error(1)
}

func (m *MockAlbumRepository) DeleteStaleProvisional(ctx context.Context, before time.Time) ([]uuid.UUID, error) {
	args := m.Called(ctx, before)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}
