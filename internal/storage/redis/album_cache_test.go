package storage_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"frames/internal/domain/models"
	"frames/internal/storage"
	redisstorage "frames/internal/storage/redis"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAlbum() *models.AlbumWithPhotos {
	taken := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	albumID := uuid.New()

	return &models.AlbumWithPhotos{
		Album: models.Album{
			ID:        albumID,
			OwnerID:   "user-1",
			Title:     "Trip",
			Slug:      "abcDEF1234",
			Status:    models.AlbumStatusCommitted,
			CreatedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		},
		Photos: []models.Photo{
			{ID: uuid.New(), AlbumID: albumID, URL: "/uploads/a.jpg", Order: 0, TakenAt: &taken},
		},
	}
}

func TestAlbumCache_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	cache := redisstorage.NewAlbumCache(db, time.Minute)

	album := testAlbum()
	payload, err := json.Marshal(album)
	require.NoError(t, err)

	key := redisstorage.AlbumKey(album.Slug)

	mock.ExpectSet(key, payload, time.Minute).SetVal("OK")
	require.NoError(t, cache.Set(ctx, album))

	mock.ExpectGet(key).SetVal(string(payload))
	got, err := cache.Get(ctx, album.Slug)
	require.NoError(t, err)
	assert.Equal(t, album.ID, got.ID)
	assert.Equal(t, album.Title, got.Title)
	require.Len(t, got.Photos, 1)
	assert.True(t, album.Photos[0].TakenAt.Equal(*got.Photos[0].TakenAt))

	mock.ExpectDel(key).SetVal(1)
	require.NoError(t, cache.Delete(ctx, album.Slug))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAlbumCache_Miss(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	cache := redisstorage.NewAlbumCache(db, time.Minute)

	mock.ExpectGet(redisstorage.AlbumKey("missing")).RedisNil()

	_, err := cache.Get(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrCacheMiss)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAlbumCache_Error(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	cache := redisstorage.NewAlbumCache(db, time.Minute)

	mock.ExpectGet(redisstorage.AlbumKey("x")).SetErr(errors.New("connection refused"))

	_, err := cache.Get(ctx, "x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrCacheMiss)
}
