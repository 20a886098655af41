package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"frames/internal/domain/models"
	"frames/internal/pipeline"
	"frames/internal/pipeline/pipelinetest"
	uploads "frames/internal/services/upload_service"
	"frames/internal/storage"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTranscoder() *pipeline.Transcoder {
	opts := pipeline.DefaultTranscodeOptions()
	opts.ThumbSize = 8
	return pipeline.NewTranscoder(discardLogger(), opts)
}

func newTestService(repo *memRepo, files *memFiles, transcoder ImageTranscoder, workers int) *AlbumService {
	log := discardLogger()
	if transcoder == nil {
		transcoder = testTranscoder()
	}

	return NewAlbumService(
		log,
		repo,
		files,
		nil,
		uploads.NewValidator(log, uploads.Limits{MaxFiles: models.MaxAlbumPhotos, MaxFileSize: 10 << 20}),
		pipeline.NewResolver(log),
		transcoder,
		Options{Workers: workers},
	)
}

// photo генерирует уникальное изображение: размер зависит от i.
func photo(i int, taken string) models.UploadedFile {
	var x *pipelinetest.Exif
	if taken != "" {
		x = &pipelinetest.Exif{DateTimeOriginal: taken}
	}

	name := fmt.Sprintf("IMG_%04d.jpg", i)
	return models.FileFromBytes(name, "image/jpeg", pipelinetest.JPEG(16+i, 12, x), time.Time{})
}

func input(files ...models.UploadedFile) models.CreateAlbumInput {
	return models.CreateAlbumInput{
		OwnerID:     "user-1",
		Title:       gofakeit.Sentence(3),
		Description: gofakeit.Sentence(8),
		Files:       files,
		ReceivedAt:  time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestAlbumService_CreateAlbum_Sizes(t *testing.T) {
	for _, n := range []int{1, 2, 12, models.MaxAlbumPhotos} {
		t.Run(fmt.Sprintf("%d files", n), func(t *testing.T) {
			repo, files := newMemRepo(), newMemFiles()
			svc := newTestService(repo, files, nil, 4)

			batch := make([]models.UploadedFile, n)
			for i := range batch {
				batch[i] = photo(i, "")
			}

			album, err := svc.CreateAlbum(context.Background(), input(batch...))
			require.NoError(t, err)
			assert.Equal(t, models.AlbumStatusCommitted, album.Status)
			assert.NotEmpty(t, album.Slug)

			stored, err := repo.stored(album.ID)
			require.NoError(t, err)
			require.Len(t, stored.Photos, n)

			for i, p := range stored.Photos {
				assert.Equal(t, i, p.Order)
				assert.Equal(t, album.ID, p.AlbumID)
				assert.Equal(t, album.CreatedAt.Add(time.Duration(i)*time.Microsecond), p.CreatedAt)
				assert.Contains(t, p.StorageKey, "albums/"+album.ID.String()+"/")
				assert.Equal(t, "/uploads/"+p.StorageKey, p.URL)
				assert.NotEmpty(t, p.ThumbnailKey)
				require.NotNil(t, p.TakenAt)
				assert.Equal(t, models.TakenAtUpload, p.TakenAtSource)
			}

			assert.Equal(t, 2*n, files.count())
		})
	}
}

func TestAlbumService_CreateAlbum_Rejected(t *testing.T) {
	tooMany := make([]models.UploadedFile, models.MaxAlbumPhotos+1)
	for i := range tooMany {
		tooMany[i] = photo(i, "")
	}

	noTitle := input(photo(0, ""))
	noTitle.Title = "   "

	anonymous := input(photo(0, ""))
	anonymous.OwnerID = ""

	tests := []struct {
		name    string
		input   models.CreateAlbumInput
		wantErr error
	}{
		{name: "empty batch", input: input(), wantErr: models.ErrEmptyBatch},
		{name: "too many files", input: input(tooMany...), wantErr: models.ErrTooManyFiles},
		{name: "missing title", input: noTitle, wantErr: models.ErrMissingTitle},
		{name: "no owner", input: anonymous, wantErr: models.ErrUnauthenticated},
		{
			name:    "unsupported type",
			input:   input(models.FileFromBytes("a.gif", "image/gif", []byte("GIF89a"), time.Time{})),
			wantErr: models.ErrUnsupportedType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, files := newMemRepo(), newMemFiles()
			svc := newTestService(repo, files, nil, 4)

			album, err := svc.CreateAlbum(context.Background(), tt.input)
			assert.Nil(t, album)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, models.IsClientError(err))
			assert.Zero(t, repo.albumCount())
			assert.Zero(t, files.count())
		})
	}
}

func TestAlbumService_CreateAlbum_RollsBackOnFileFailure(t *testing.T) {
	repo, files := newMemRepo(), newMemFiles()

	batch := []models.UploadedFile{photo(0, ""), photo(1, ""), photo(2, ""), photo(3, "")}
	transcoder := &failingTranscoder{
		inner:    testTranscoder(),
		filename: batch[3].Filename,
		err:      models.ErrCompressionInsufficient,
	}
	svc := newTestService(repo, files, transcoder, 1)

	album, err := svc.CreateAlbum(context.Background(), input(batch...))
	require.Error(t, err)
	assert.Nil(t, album)
	assert.ErrorIs(t, err, models.ErrCompressionInsufficient)

	var fileErr *models.FileError
	require.True(t, errors.As(err, &fileErr))
	assert.Equal(t, 3, fileErr.Index)
	assert.Equal(t, batch[3].Filename, fileErr.Filename)

	assert.Zero(t, repo.albumCount())
	assert.Zero(t, files.count())

	albums, total, err := svc.ListAlbums(context.Background(), 1, 20)
	require.NoError(t, err)
	assert.Empty(t, albums)
	assert.Zero(t, total)
}

func TestAlbumService_CreateAlbum_RollsBackOnStorageFailure(t *testing.T) {
	repo, files := newMemRepo(), newMemFiles()
	saves := 0
	files.failKey = func(string) bool {
		saves++
		return saves > 3
	}
	svc := newTestService(repo, files, nil, 1)

	_, err := svc.CreateAlbum(context.Background(), input(photo(0, ""), photo(1, ""), photo(2, "")))
	require.Error(t, err)

	assert.Zero(t, repo.albumCount())
	assert.Zero(t, files.count())
}

func TestAlbumService_CreateAlbum_RollsBackOnCommitFailure(t *testing.T) {
	repo, files := newMemRepo(), newMemFiles()
	repo.commitErr = errors.New("connection reset")
	svc := newTestService(repo, files, nil, 2)

	_, err := svc.CreateAlbum(context.Background(), input(photo(0, ""), photo(1, "")))
	require.Error(t, err)
	assert.ErrorIs(t, err, repo.commitErr)
	assert.False(t, models.IsClientError(err))

	assert.Zero(t, repo.albumCount())
	assert.Zero(t, files.count())
}

type cancelingTranscoder struct {
	inner  ImageTranscoder
	cancel context.CancelFunc
}

func (t *cancelingTranscoder) Transcode(ctx context.Context, filename string, data []byte) (*models.TranscodedImage, error) {
	img, err := t.inner.Transcode(ctx, filename, data)
	t.cancel()
	return img, err
}

func TestAlbumService_CreateAlbum_ClientDisconnect(t *testing.T) {
	repo, files := newMemRepo(), newMemFiles()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := newTestService(repo, files, &cancelingTranscoder{inner: testTranscoder(), cancel: cancel}, 1)

	_, err := svc.CreateAlbum(ctx, input(photo(0, ""), photo(1, ""), photo(2, "")))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Zero(t, repo.albumCount())
	assert.Zero(t, files.count())
}

func TestAlbumService_GetAlbum_ChronologicalOrder(t *testing.T) {
	repo, files := newMemRepo(), newMemFiles()
	svc := newTestService(repo, files, nil, 4)

	album, err := svc.CreateAlbum(context.Background(), input(
		photo(0, "2024:05:03 09:00:00"),
		photo(1, "2024:05:02 09:00:00"),
		photo(2, "2024:05:01 09:00:00"),
	))
	require.NoError(t, err)

	got, err := svc.GetAlbum(context.Background(), album.Slug)
	require.NoError(t, err)
	require.Len(t, got.Photos, 3)

	orders := []int{got.Photos[0].Order, got.Photos[1].Order, got.Photos[2].Order}
	assert.Equal(t, []int{2, 1, 0}, orders)
	assert.Equal(t, models.TakenAtExifOriginal, got.Photos[0].TakenAtSource)
}

func TestAlbumService_TripScenario(t *testing.T) {
	repo, files := newMemRepo(), newMemFiles()
	svc := newTestService(repo, files, nil, 2)

	a := photo(0, "2024:01:01 10:00:00")
	b := models.FileFromBytes("20231231_235900-x.jpg", "image/jpeg", pipelinetest.JPEG(20, 14, nil), time.Time{})

	in := input(a, b)
	in.Title = "Trip"

	album, err := svc.CreateAlbum(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "Trip", album.Title)

	got, err := svc.GetAlbum(context.Background(), album.Slug)
	require.NoError(t, err)
	require.Len(t, got.Photos, 2)

	first, second := got.Photos[0], got.Photos[1]

	assert.Equal(t, 1, first.Order)
	assert.Equal(t, models.TakenAtFilename, first.TakenAtSource)
	assert.Equal(t, time.Date(2023, 12, 31, 23, 59, 0, 0, time.UTC), first.TakenAt.UTC())

	assert.Equal(t, 0, second.Order)
	assert.Equal(t, models.TakenAtExifOriginal, second.TakenAtSource)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), second.TakenAt.UTC())
}

func TestAlbumService_GetAlbum_NotFound(t *testing.T) {
	svc := newTestService(newMemRepo(), newMemFiles(), nil, 1)

	_, err := svc.GetAlbum(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrAlbumNotFound)
}

func TestAlbumService_GetAlbum_Cache(t *testing.T) {
	ctx := context.Background()
	repo := new(MockAlbumRepository)
	cache := new(MockAlbumCache)

	svc := NewAlbumService(discardLogger(), repo, newMemFiles(), cache, nil, nil, nil, Options{})

	now := time.Now()
	earlier := now.Add(-time.Hour)
	stored := &models.AlbumWithPhotos{
		Album: models.Album{ID: uuid.New(), Slug: "abc", Status: models.AlbumStatusCommitted},
		Photos: []models.Photo{
			{Order: 0, TakenAt: &now},
			{Order: 1, TakenAt: &earlier},
		},
	}

	cache.On("Get", ctx, "abc").Return(nil, storage.ErrCacheMiss).Once()
	repo.On("GetAlbumBySlug", ctx, "abc").Return(stored, nil).Once()
	cache.On("Set", ctx, mock.MatchedBy(func(a *models.AlbumWithPhotos) bool {
		return a.Photos[0].Order == 1
	})).Return(nil).Once()

	got, err := svc.GetAlbum(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Photos[0].Order)

	cache.On("Get", ctx, "abc").Return(got, nil).Once()

	again, err := svc.GetAlbum(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, got, again)

	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestAlbumService_CreateAlbum_SlugRetry(t *testing.T) {
	ctx := context.Background()
	repo := new(MockAlbumRepository)
	files := newMemFiles()
	log := discardLogger()

	svc := NewAlbumService(log, repo, files, nil,
		uploads.NewValidator(log, uploads.Limits{MaxFileSize: 10 << 20}),
		pipeline.NewResolver(log),
		testTranscoder(),
		Options{Workers: 1},
	)

	repo.On("CreateAlbum", ctx, mock.Anything).Return(storage.ErrSlugExists).Twice()
	repo.On("CreateAlbum", ctx, mock.Anything).Return(nil).Once()
	repo.On("CommitAlbum", ctx, mock.Anything, mock.Anything).Return(nil).Once()

	album, err := svc.CreateAlbum(ctx, input(photo(0, "")))
	require.NoError(t, err)
	assert.Len(t, album.Slug, 10)

	repo.AssertNumberOfCalls(t, "CreateAlbum", 3)
	repo.AssertExpectations(t)
}

func TestAlbumService_CreateAlbum_SlugExhausted(t *testing.T) {
	ctx := context.Background()
	repo := new(MockAlbumRepository)
	files := newMemFiles()
	log := discardLogger()

	svc := NewAlbumService(log, repo, files, nil,
		uploads.NewValidator(log, uploads.Limits{MaxFileSize: 10 << 20}),
		pipeline.NewResolver(log),
		testTranscoder(),
		Options{Workers: 1},
	)

	repo.On("CreateAlbum", ctx, mock.Anything).Return(storage.ErrSlugExists)

	_, err := svc.CreateAlbum(ctx, input(photo(0, "")))
	assert.ErrorIs(t, err, ErrSlugUnavailable)

	repo.AssertNumberOfCalls(t, "CreateAlbum", slugAttempts)
	repo.AssertNotCalled(t, "CommitAlbum", mock.Anything, mock.Anything, mock.Anything)
	assert.Zero(t, files.count())
}

func TestAlbumService_DeleteAlbum(t *testing.T) {
	ctx := context.Background()
	repo, files := newMemRepo(), newMemFiles()
	svc := newTestService(repo, files, nil, 2)

	album, err := svc.CreateAlbum(ctx, input(photo(0, ""), photo(1, "")))
	require.NoError(t, err)
	require.Equal(t, 4, files.count())

	err = svc.DeleteAlbum(ctx, "someone-else", album.Slug)
	assert.ErrorIs(t, err, models.ErrForbidden)
	assert.Equal(t, 4, files.count())

	assert.ErrorIs(t, svc.DeleteAlbum(ctx, "", album.Slug), models.ErrUnauthenticated)
	_, err = svc.ListOwnerAlbums(ctx, "")
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
	assert.Equal(t, 4, files.count())

	require.NoError(t, svc.DeleteAlbum(ctx, "user-1", album.Slug))
	assert.Zero(t, files.count())

	_, err = svc.GetAlbum(ctx, album.Slug)
	assert.ErrorIs(t, err, storage.ErrAlbumNotFound)

	assert.ErrorIs(t, svc.DeleteAlbum(ctx, "user-1", album.Slug), storage.ErrAlbumNotFound)
}

func TestAlbumService_ListAlbums(t *testing.T) {
	ctx := context.Background()
	repo, files := newMemRepo(), newMemFiles()
	svc := newTestService(repo, files, nil, 2)

	for i := 0; i < 3; i++ {
		_, err := svc.CreateAlbum(ctx, input(photo(i, "")))
		require.NoError(t, err)
	}

	other := input(photo(5, ""))
	other.OwnerID = "user-2"
	_, err := svc.CreateAlbum(ctx, other)
	require.NoError(t, err)

	page, total, err := svc.ListAlbums(ctx, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Len(t, page, 2)

	mine, err := svc.ListOwnerAlbums(ctx, "user-2")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "user-2", mine[0].OwnerID)
}

func TestAlbumService_SweepProvisional(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	svc := newTestService(repo, newMemFiles(), nil, 1)

	require.NoError(t, repo.CreateAlbum(ctx, models.Album{
		ID:        uuid.New(),
		Slug:      "orphan0001",
		Status:    models.AlbumStatusProvisional,
		CreatedAt: time.Now().Add(-2 * time.Hour),
	}))
	require.NoError(t, repo.CreateAlbum(ctx, models.Album{
		ID:        uuid.New(),
		Slug:      "inflight01",
		Status:    models.AlbumStatusProvisional,
		CreatedAt: time.Now(),
	}))

	n, err := svc.SweepProvisional(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, repo.albumCount())
}
