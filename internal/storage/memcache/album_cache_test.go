package memcache_test

import (
	"context"
	"testing"
	"time"

	"frames/internal/domain/models"
	"frames/internal/storage"
	"frames/internal/storage/memcache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlbumCache(t *testing.T) {
	ctx := context.Background()
	c := memcache.NewAlbumCache(time.Minute)

	_, err := c.Get(ctx, "abc")
	assert.ErrorIs(t, err, storage.ErrCacheMiss)

	album := &models.AlbumWithPhotos{
		Album:  models.Album{Slug: "abc", Title: "Trip"},
		Photos: []models.Photo{{Order: 0}, {Order: 1}},
	}
	require.NoError(t, c.Set(ctx, album))

	album.Photos[0].Order = 99

	got, err := c.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "Trip", got.Title)
	assert.Equal(t, 0, got.Photos[0].Order)

	got.Photos[1].Order = 42
	again, err := c.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, 1, again.Photos[1].Order)

	require.NoError(t, c.Delete(ctx, "abc"))
	_, err = c.Get(ctx, "abc")
	assert.ErrorIs(t, err, storage.ErrCacheMiss)
}

func TestAlbumCache_Expires(t *testing.T) {
	ctx := context.Background()
	c := memcache.NewAlbumCache(20 * time.Millisecond)

	require.NoError(t, c.Set(ctx, &models.AlbumWithPhotos{Album: models.Album{Slug: "x"}}))
	time.Sleep(50 * time.Millisecond)

	_, err := c.Get(ctx, "x")
	assert.ErrorIs(t, err, storage.ErrCacheMiss)
}
