package dto

import (
	"time"

	"frames/internal/domain/models"

	"github.com/google/uuid"
)

// AlbumSummary ответ на создание альбома и элемент списков.
type AlbumSummary struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Slug        string    `json:"slug"`
	CreatedAt   time.Time `json:"createdAt"`
}

func NewAlbumSummary(a models.Album) AlbumSummary {
	return AlbumSummary{
		ID:          a.ID,
		Title:       a.Title,
		Description: a.Description,
		Slug:        a.Slug,
		CreatedAt:   a.CreatedAt,
	}
}

func NewAlbumSummaries(albums []models.Album) []AlbumSummary {
	out := make([]AlbumSummary, 0, len(albums))
	for _, a := range albums {
		out = append(out, NewAlbumSummary(a))
	}
	return out
}

type AlbumListResponse struct {
	Albums  []AlbumSummary `json:"albums"`
	Total   int            `json:"total"`
	Page    int            `json:"page"`
	PerPage int            `json:"per_page"`
}

// ListAlbumsQuery параметры пагинации.
type ListAlbumsQuery struct {
	Page    int `query:"page" validate:"omitempty,min=1"`
	PerPage int `query:"per_page" validate:"omitempty,min=1,max=100"`
}
