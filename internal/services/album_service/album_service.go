package services

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"frames/internal/domain/models"
	"frames/internal/lib/logger/sl"
	"frames/internal/lib/slug"
	"frames/internal/metrics"
	"frames/internal/repository"
	"frames/internal/storage"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"
)

const (
	slugAttempts           = 5
	defaultWorkers         = 4
	defaultRollbackTimeout = 30 * time.Second
	defaultPerPage         = 20
	maxPerPage             = 100
)

var ErrSlugUnavailable = errors.New("could not allocate album slug")

type UploadValidator interface {
	Validate(input models.CreateAlbumInput) (models.UploadBatch, error)
}

type TimestampResolver interface {
	Resolve(file models.UploadedFile, data []byte, receivedAt time.Time) models.CaptureTime
}

type ImageTranscoder interface {
	Transcode(ctx context.Context, filename string, data []byte) (*models.TranscodedImage, error)
}

type FileStorage interface {
	Save(ctx context.Context, key string, r io.Reader, contentType string) (int64, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// AlbumCache кэш опубликованных альбомов по slug. Промах возвращает storage.ErrCacheMiss.
type AlbumCache interface {
	Get(ctx context.Context, slug string) (*models.AlbumWithPhotos, error)
	Set(ctx context.Context, album *models.AlbumWithPhotos) error
	Delete(ctx context.Context, slug string) error
}

type Options struct {
	Workers         int
	RollbackTimeout time.Duration
}

type AlbumService struct {
	log             *slog.Logger
	repo            repository.AlbumRepository
	files           FileStorage
	cache           AlbumCache
	validator       UploadValidator
	resolver        TimestampResolver
	transcoder      ImageTranscoder
	workers         int
	rollbackTimeout time.Duration
}

// NewAlbumService собирает конвейер загрузки альбома. cache может быть nil.
func NewAlbumService(
	log *slog.Logger,
	repo repository.AlbumRepository,
	files FileStorage,
	cache AlbumCache,
	validator UploadValidator,
	resolver TimestampResolver,
	transcoder ImageTranscoder,
	opts Options,
) *AlbumService {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.RollbackTimeout <= 0 {
		opts.RollbackTimeout = defaultRollbackTimeout
	}

	return &AlbumService{
		log:             log,
		repo:            repo,
		files:           files,
		cache:           cache,
		validator:       validator,
		resolver:        resolver,
		transcoder:      transcoder,
		workers:         opts.Workers,
		rollbackTimeout: opts.RollbackTimeout,
	}
}

// CreateAlbum проверяет запрос, обрабатывает все файлы и публикует альбом.
// Альбом становится виден только целиком: при любой ошибке, в том числе при
// отмене ctx, все записанное удаляется.
func (s *AlbumService) CreateAlbum(ctx context.Context, input models.CreateAlbumInput) (*models.Album, error) {
	const op = "services.AlbumService.CreateAlbum"

	log := s.log.With(
		slog.String("op", op),
		slog.String("owner_id", input.OwnerID),
		slog.Int("files", len(input.Files)),
	)

	start := time.Now()
	defer func() {
		metrics.AlbumIngestionDuration.Observe(time.Since(start).Seconds())
	}()

	if input.OwnerID == "" {
		metrics.AlbumIngestions.WithLabelValues(metrics.ResultRejected).Inc()
		return nil, fmt.Errorf("%s: %w", op, models.ErrUnauthenticated)
	}

	batch, err := s.validator.Validate(input)
	if err != nil {
		metrics.AlbumIngestions.WithLabelValues(metrics.ResultRejected).Inc()
		log.Warn("upload rejected", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	album, err := s.createProvisional(ctx, batch)
	if err != nil {
		metrics.AlbumIngestions.WithLabelValues(metrics.ResultRolledBack).Inc()
		log.Error("failed to create album", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log = log.With(slog.String("album_id", album.ID.String()), slog.String("slug", album.Slug))
	log.Debug("album state", slog.String("state", string(models.IngestionCreated)))

	var (
		mu    sync.Mutex
		saved []string
	)

	photos := make([]models.Photo, batch.Len())

	log.Debug("album state", slog.String("state", string(models.IngestionProcessing)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i := 0; i < batch.Len(); i++ {
		file := batch.File(i)

		g.Go(func() error {
			photo, keys, err := s.processFile(gctx, album.ID, i, file, batch.ReceivedAt())

			mu.Lock()
			saved = append(saved, keys...)
			mu.Unlock()

			if err != nil {
				return models.NewFileError(i, file.Filename, err)
			}

			photos[i] = photo
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("failed to process photos", sl.Err(err))
		s.rollback(ctx, log, album.ID, saved)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for i := range photos {
		photos[i].Order = i
		photos[i].CreatedAt = album.CreatedAt.Add(time.Duration(i) * time.Microsecond)
	}

	if err := s.repo.CommitAlbum(ctx, album.ID, photos); err != nil {
		log.Error("failed to commit album", sl.Err(err))
		s.rollback(ctx, log, album.ID, saved)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	album.Status = models.AlbumStatusCommitted

	metrics.AlbumIngestions.WithLabelValues(metrics.ResultCommitted).Inc()
	log.Info("album committed",
		slog.String("state", string(models.IngestionCommitted)),
		slog.Duration("took", time.Since(start)),
	)

	return album, nil
}

func (s *AlbumService) createProvisional(ctx context.Context, batch models.UploadBatch) (*models.Album, error) {
	album := models.Album{
		ID:          uuid.New(),
		OwnerID:     batch.OwnerID(),
		Title:       batch.Title(),
		Description: batch.Description(),
		Status:      models.AlbumStatusProvisional,
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}

	for attempt := 0; attempt < slugAttempts; attempt++ {
		value, err := slug.New(slug.DefaultLength)
		if err != nil {
			return nil, err
		}
		album.Slug = value

		err = s.repo.CreateAlbum(ctx, album)
		if err == nil {
			return &album, nil
		}
		if !errors.Is(err, storage.ErrSlugExists) {
			return nil, err
		}
	}

	return nil, ErrSlugUnavailable
}

// processFile обрабатывает один файл и возвращает ключи всего, что успел записать.
func (s *AlbumService) processFile(
	ctx context.Context,
	albumID uuid.UUID,
	index int,
	file models.UploadedFile,
	receivedAt time.Time,
) (models.Photo, []string, error) {
	if err := ctx.Err(); err != nil {
		return models.Photo{}, nil, err
	}

	data, err := file.ReadAll()
	if err != nil {
		return models.Photo{}, nil, fmt.Errorf("read upload: %w", err)
	}

	capture := s.resolver.Resolve(file, data, receivedAt)

	img, err := s.transcoder.Transcode(ctx, file.Filename, data)
	if err != nil {
		return models.Photo{}, nil, err
	}

	var keys []string

	key := blobKey(albumID, img.Data)
	if _, err := s.files.Save(ctx, key, bytes.NewReader(img.Data), "image/jpeg"); err != nil {
		return models.Photo{}, keys, fmt.Errorf("store photo: %w", err)
	}
	keys = append(keys, key)

	photo := models.Photo{
		ID:            uuid.New(),
		AlbumID:       albumID,
		URL:           s.files.URL(key),
		StorageKey:    key,
		Order:         index,
		TakenAt:       &capture.Time,
		TakenAtSource: capture.Source,
		Width:         img.Width,
		Height:        img.Height,
		SizeBytes:     int64(len(img.Data)),
	}

	if len(img.Thumbnail) > 0 {
		thumbKey := strings.TrimSuffix(key, ".jpg") + "_thumb.jpg"
		if _, err := s.files.Save(ctx, thumbKey, bytes.NewReader(img.Thumbnail), "image/jpeg"); err != nil {
			return models.Photo{}, keys, fmt.Errorf("store thumbnail: %w", err)
		}
		keys = append(keys, thumbKey)

		photo.ThumbnailKey = thumbKey
		photo.ThumbnailURL = s.files.URL(thumbKey)
	}

	metrics.PhotosTranscoded.WithLabelValues(strconv.Itoa(img.Passes)).Inc()
	metrics.TakenAtSources.WithLabelValues(string(capture.Source)).Inc()

	return photo, keys, nil
}

// rollback удаляет альбом и файлы. Выполняется и после отмены ctx.
func (s *AlbumService) rollback(ctx context.Context, log *slog.Logger, albumID uuid.UUID, keys []string) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.rollbackTimeout)
	defer cancel()

	if err := s.repo.DeleteAlbum(rctx, albumID); err != nil && !errors.Is(err, storage.ErrAlbumNotFound) {
		log.Error("rollback: failed to delete album", sl.Err(err))
	}

	s.deleteBlobs(rctx, log, keys)

	metrics.AlbumIngestions.WithLabelValues(metrics.ResultRolledBack).Inc()
	log.Warn("album rolled back",
		slog.String("state", string(models.IngestionRolledBack)),
		slog.Int("blobs", len(keys)),
	)
}

func (s *AlbumService) deleteBlobs(ctx context.Context, log *slog.Logger, keys []string) {
	seen := make(map[string]struct{}, len(keys))

	for _, key := range keys {
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		if err := s.files.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrFileNotFound) {
			log.Error("failed to delete blob", slog.String("key", key), sl.Err(err))
		}
	}
}

// blobKey ключ зависит от содержимого, одинаковые фото в альбоме делят один файл.
func blobKey(albumID uuid.UUID, data []byte) string {
	sum, _ := blake2b.New(16, nil)
	sum.Write(data)

	return fmt.Sprintf("albums/%s/%s.jpg", albumID, hex.EncodeToString(sum.Sum(nil)))
}

// GetAlbum возвращает опубликованный альбом с фотографиями в хронологическом порядке.
func (s *AlbumService) GetAlbum(ctx context.Context, albumSlug string) (*models.AlbumWithPhotos, error) {
	const op = "services.AlbumService.GetAlbum"

	log := s.log.With(
		slog.String("op", op),
		slog.String("slug", albumSlug),
	)

	if s.cache != nil {
		album, err := s.cache.Get(ctx, albumSlug)
		if err == nil {
			return album, nil
		}
		if !errors.Is(err, storage.ErrCacheMiss) {
			log.Warn("cache read failed", sl.Err(err))
		}
	}

	album, err := s.repo.GetAlbumBySlug(ctx, albumSlug)
	if err != nil {
		if !errors.Is(err, storage.ErrAlbumNotFound) {
			log.Error("failed to get album", sl.Err(err))
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	models.SortPhotos(album.Photos)

	if s.cache != nil {
		if err := s.cache.Set(ctx, album); err != nil {
			log.Warn("cache write failed", sl.Err(err))
		}
	}

	return album, nil
}

// ListAlbums опубликованные альбомы, новые первыми.
func (s *AlbumService) ListAlbums(ctx context.Context, page, perPage int) ([]models.Album, int, error) {
	const op = "services.AlbumService.ListAlbums"

	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	albums, total, err := s.repo.ListAlbums(ctx, page, perPage)
	if err != nil {
		s.log.Error("failed to list albums", slog.String("op", op), sl.Err(err))
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	return albums, total, nil
}

func (s *AlbumService) ListOwnerAlbums(ctx context.Context, ownerID string) ([]models.Album, error) {
	const op = "services.AlbumService.ListOwnerAlbums"

	if ownerID == "" {
		return nil, fmt.Errorf("%s: %w", op, models.ErrUnauthenticated)
	}

	albums, err := s.repo.ListAlbumsByOwner(ctx, ownerID)
	if err != nil {
		s.log.Error("failed to list owner albums", slog.String("op", op), slog.String("owner_id", ownerID), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return albums, nil
}

// DeleteAlbum удаляет альбом владельца вместе с файлами.
func (s *AlbumService) DeleteAlbum(ctx context.Context, ownerID, albumSlug string) error {
	const op = "services.AlbumService.DeleteAlbum"

	log := s.log.With(
		slog.String("op", op),
		slog.String("owner_id", ownerID),
		slog.String("slug", albumSlug),
	)

	if ownerID == "" {
		return fmt.Errorf("%s: %w", op, models.ErrUnauthenticated)
	}

	album, err := s.repo.GetAlbumBySlug(ctx, albumSlug)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if album.OwnerID != ownerID {
		log.Warn("delete by non-owner")
		return fmt.Errorf("%s: %w", op, models.ErrForbidden)
	}

	if err := s.repo.DeleteAlbum(ctx, album.ID); err != nil {
		log.Error("failed to delete album", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	keys := make([]string, 0, 2*len(album.Photos))
	for _, p := range album.Photos {
		keys = append(keys, p.StorageKey, p.ThumbnailKey)
	}
	s.deleteBlobs(ctx, log, keys)

	if s.cache != nil {
		if err := s.cache.Delete(ctx, albumSlug); err != nil {
			log.Warn("cache invalidation failed", sl.Err(err))
		}
	}

	log.Info("album deleted", slog.Int("photos", len(album.Photos)))

	return nil
}

// SweepProvisional удаляет черновики альбомов, оставшиеся после падения процесса.
func (s *AlbumService) SweepProvisional(ctx context.Context, olderThan time.Duration) (int, error) {
	const op = "services.AlbumService.SweepProvisional"

	ids, err := s.repo.DeleteStaleProvisional(ctx, time.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if len(ids) > 0 {
		s.log.Info("stale provisional albums removed", slog.String("op", op), slog.Int("count", len(ids)))
	}

	return len(ids), nil
}
