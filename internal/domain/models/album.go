package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// MaxAlbumPhotos жесткий лимит фотографий в одном альбоме ("36 кадров").
const MaxAlbumPhotos = 36

type AlbumStatus string

const (
	AlbumStatusProvisional AlbumStatus = "provisional"
	AlbumStatusCommitted   AlbumStatus = "committed"
)

// IngestionState состояние загрузки альбома.
type IngestionState string

const (
	IngestionCreated    IngestionState = "created"
	IngestionProcessing IngestionState = "processing"
	IngestionCommitted  IngestionState = "committed"
	IngestionRolledBack IngestionState = "rolled_back"
)

type Album struct {
	ID          uuid.UUID   `json:"id"`
	OwnerID     string      `json:"owner_id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Slug        string      `json:"slug"`
	Status      AlbumStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
}

// TakenAtSource откуда взято время съемки.
type TakenAtSource string

const (
	TakenAtExifOriginal  TakenAtSource = "exif_original"
	TakenAtExifDigitized TakenAtSource = "exif_digitized"
	TakenAtExifModified  TakenAtSource = "exif_modified"
	TakenAtFilename      TakenAtSource = "filename"
	TakenAtUpload        TakenAtSource = "upload"
)

type Photo struct {
	ID            uuid.UUID     `json:"id"`
	AlbumID       uuid.UUID     `json:"album_id"`
	URL           string        `json:"url"`
	ThumbnailURL  string        `json:"thumbnail_url,omitempty"`
	StorageKey    string        `json:"-"`
	ThumbnailKey  string        `json:"-"`
	Order         int           `json:"order"`
	TakenAt       *time.Time    `json:"taken_at,omitempty"`
	TakenAtSource TakenAtSource `json:"taken_at_source,omitempty"`
	Width         int           `json:"width"`
	Height        int           `json:"height"`
	SizeBytes     int64         `json:"size_bytes"`
	CreatedAt     time.Time     `json:"created_at"`
}

type AlbumWithPhotos struct {
	Album
	Photos []Photo `json:"photos"`
}

// SortPhotos упорядочивает фотографии для показа: taken_at по возрастанию
// (пустые в конце), затем created_at, затем order.
func SortPhotos(photos []Photo) {
	sort.SliceStable(photos, func(i, j int) bool {
		return photoLess(photos[i], photos[j])
	})
}

func photoLess(a, b Photo) bool {
	switch {
	case a.TakenAt != nil && b.TakenAt == nil:
		return true
	case a.TakenAt == nil && b.TakenAt != nil:
		return false
	case a.TakenAt != nil && b.TakenAt != nil && !a.TakenAt.Equal(*b.TakenAt):
		return a.TakenAt.Before(*b.TakenAt)
	}

	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}

	return a.Order < b.Order
}
