package repository

import (
	"context"
	"time"

	"frames/internal/domain/models"

	"github.com/google/uuid"
)

type AlbumRepository interface {
	CreateAlbum(ctx context.Context, album models.Album) error
	CommitAlbum(ctx context.Context, albumID uuid.UUID, photos []models.Photo) error
	DeleteAlbum(ctx context.Context, albumID uuid.UUID) error
	GetAlbumBySlug(ctx context.Context, slug string) (*models.AlbumWithPhotos, error)
	ListAlbums(ctx context.Context, page, perPage int) ([]models.Album, int, error)
	ListAlbumsByOwner(ctx context.Context, ownerID string) ([]models.Album, error)
	DeleteStaleProvisional(ctx context.Context, createdBefore time.Time) ([]uuid.UUID, error)
}
