package memcache

import (
	"context"
	"time"

	"frames/internal/domain/models"
	"frames/internal/storage"

	"github.com/patrickmn/go-cache"
)

// AlbumCache кэш альбомов в памяти процесса для локального запуска.
type AlbumCache struct {
	c *cache.Cache
}

func NewAlbumCache(ttl time.Duration) *AlbumCache {
	return &AlbumCache{
		c: cache.New(ttl, 2*ttl),
	}
}

func (a *AlbumCache) Get(_ context.Context, slug string) (*models.AlbumWithPhotos, error) {
	v, ok := a.c.Get(slug)
	if !ok {
		return nil, storage.ErrCacheMiss
	}

	album := v.(models.AlbumWithPhotos)
	album.Photos = append([]models.Photo(nil), album.Photos...)

	return &album, nil
}

// Set хранит копию, чтобы вызывающий код не мог изменить закэшированное значение.
func (a *AlbumCache) Set(_ context.Context, album *models.AlbumWithPhotos) error {
	cp := *album
	cp.Photos = append([]models.Photo(nil), album.Photos...)

	a.c.SetDefault(album.Slug, cp)

	return nil
}

func (a *AlbumCache) Delete(_ context.Context, slug string) error {
	a.c.Delete(slug)
	return nil
}
