package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"frames/internal/domain/models"
	"frames/internal/storage"

	"github.com/redis/go-redis/v9"
)

const albumKeyPrefix = "album:"

// AlbumCache кэш опубликованных альбомов в Redis.
type AlbumCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewAlbumCache(rdb redis.Cmdable, ttl time.Duration) *AlbumCache {
	return &AlbumCache{
		rdb: rdb,
		ttl: ttl,
	}
}

func AlbumKey(slug string) string {
	return albumKeyPrefix + slug
}

func (c *AlbumCache) Get(ctx context.Context, slug string) (*models.AlbumWithPhotos, error) {
	const op = "storage.redis.AlbumCache.Get"

	raw, err := c.rdb.Get(ctx, AlbumKey(slug)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, storage.ErrCacheMiss
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var album models.AlbumWithPhotos
	if err := json.Unmarshal(raw, &album); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &album, nil
}

func (c *AlbumCache) Set(ctx context.Context, album *models.AlbumWithPhotos) error {
	const op = "storage.redis.AlbumCache.Set"

	raw, err := json.Marshal(album)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := c.rdb.Set(ctx, AlbumKey(album.Slug), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (c *AlbumCache) Delete(ctx context.Context, slug string) error {
	const op = "storage.redis.AlbumCache.Delete"

	if err := c.rdb.Del(ctx, AlbumKey(slug)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
