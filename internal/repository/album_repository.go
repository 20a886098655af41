package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"frames/internal/domain/models"
	"frames/internal/storage"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

var orderColumn = pq.QuoteIdentifier("order")

var albumColumns = []string{
	"id",
	"owner_id",
	"title",
	"description",
	"slug",
	"status",
	"created_at",
}

type AlbumRepo struct {
	db *pgxpool.Pool
	sb sq.StatementBuilderType
}

func NewAlbumRepository(db *pgxpool.Pool) *AlbumRepo {
	return &AlbumRepo{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// CreateAlbum сохраняет альбом в статусе provisional. Такой альбом не виден
// читателям до CommitAlbum.
func (r *AlbumRepo) CreateAlbum(ctx context.Context, album models.Album) error {
	const op = "repository.AlbumRepo.CreateAlbum"

	query, args, err := r.sb.Insert("albums").
		Columns(albumColumns...).
		Values(
			album.ID,
			album.OwnerID,
			album.Title,
			album.Description,
			album.Slug,
			models.AlbumStatusProvisional,
			album.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == "albums_slug_key" {
			return fmt.Errorf("%s: %w", op, storage.ErrSlugExists)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// CommitAlbum в одной транзакции записывает все фотографии и переводит
// альбом в committed.
func (r *AlbumRepo) CommitAlbum(ctx context.Context, albumID uuid.UUID, photos []models.Photo) error {
	const op = "repository.AlbumRepo.CommitAlbum"

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}
	defer tx.Rollback(ctx)

	if len(photos) > 0 {
		insert := r.sb.Insert("photos").Columns(
			"id",
			"album_id",
			"url",
			"thumbnail_url",
			"storage_key",
			"thumbnail_key",
			orderColumn,
			"taken_at",
			"taken_at_source",
			"width",
			"height",
			"size_bytes",
			"created_at",
		)

		for _, p := range photos {
			insert = insert.Values(
				p.ID,
				albumID,
				p.URL,
				p.ThumbnailURL,
				p.StorageKey,
				p.ThumbnailKey,
				p.Order,
				p.TakenAt,
				string(p.TakenAtSource),
				p.Width,
				p.Height,
				p.SizeBytes,
				p.CreatedAt,
			)
		}

		query, args, err := insert.ToSql()
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("%s: insert photos: %w", op, err)
		}
	}

	query, args, err := r.sb.Update("albums").
		Set("status", models.AlbumStatusCommitted).
		Where(sq.Eq{"id": albumID, "status": models.AlbumStatusProvisional}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: update status: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrAlbumNotFound)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}

	return nil
}

// DeleteAlbum удаляет альбом вместе с фотографиями.
func (r *AlbumRepo) DeleteAlbum(ctx context.Context, albumID uuid.UUID) error {
	const op = "repository.AlbumRepo.DeleteAlbum"

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}
	defer tx.Rollback(ctx)

	query, args, err := r.sb.Delete("photos").Where(sq.Eq{"album_id": albumID}).ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: delete photos: %w", op, err)
	}

	query, args, err = r.sb.Delete("albums").Where(sq.Eq{"id": albumID}).ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: delete album: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrAlbumNotFound)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}

	return nil
}

// GetAlbumBySlug возвращает опубликованный альбом с фотографиями в порядке показа.
func (r *AlbumRepo) GetAlbumBySlug(ctx context.Context, slug string) (*models.AlbumWithPhotos, error) {
	const op = "repository.AlbumRepo.GetAlbumBySlug"

	album, err := r.getAlbum(ctx, sq.Eq{"slug": slug, "status": models.AlbumStatusCommitted})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return album, nil
}

func (r *AlbumRepo) getAlbum(ctx context.Context, where sq.Eq) (*models.AlbumWithPhotos, error) {
	query, args, err := r.sb.Select(albumColumns...).
		From("albums").
		Where(where).
		ToSql()
	if err != nil {
		return nil, err
	}

	var album models.AlbumWithPhotos
	err = r.db.QueryRow(ctx, query, args...).Scan(
		&album.ID,
		&album.OwnerID,
		&album.Title,
		&album.Description,
		&album.Slug,
		&album.Status,
		&album.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrAlbumNotFound
		}
		return nil, err
	}

	album.Photos, err = r.photos(ctx, album.ID)
	if err != nil {
		return nil, err
	}

	return &album, nil
}

func (r *AlbumRepo) photos(ctx context.Context, albumID uuid.UUID) ([]models.Photo, error) {
	query, args, err := r.sb.Select(
		"id",
		"album_id",
		"url",
		"thumbnail_url",
		"storage_key",
		"thumbnail_key",
		orderColumn,
		"taken_at",
		"taken_at_source",
		"width",
		"height",
		"size_bytes",
		"created_at",
	).
		From("photos").
		Where(sq.Eq{"album_id": albumID}).
		OrderBy("taken_at ASC NULLS LAST", "created_at ASC", orderColumn+" ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	photos := make([]models.Photo, 0)
	for rows.Next() {
		var (
			p      models.Photo
			source string
		)
		if err := rows.Scan(
			&p.ID,
			&p.AlbumID,
			&p.URL,
			&p.ThumbnailURL,
			&p.StorageKey,
			&p.ThumbnailKey,
			&p.Order,
			&p.TakenAt,
			&source,
			&p.Width,
			&p.Height,
			&p.SizeBytes,
			&p.CreatedAt,
		); err != nil {
			return nil, err
		}
		p.TakenAtSource = models.TakenAtSource(source)
		photos = append(photos, p)
	}

	return photos, rows.Err()
}

// ListAlbums опубликованные альбомы, новые сначала.
func (r *AlbumRepo) ListAlbums(ctx context.Context, page, perPage int) ([]models.Album, int, error) {
	const op = "repository.AlbumRepo.ListAlbums"

	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	countQuery, countArgs, err := r.sb.Select("COUNT(*)").
		From("albums").
		Where(sq.Eq{"status": models.AlbumStatusCommitted}).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	var total int
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%s: count: %w", op, err)
	}

	query, args, err := r.sb.Select(albumColumns...).
		From("albums").
		Where(sq.Eq{"status": models.AlbumStatusCommitted}).
		OrderBy("created_at DESC").
		Limit(uint64(perPage)).
		Offset(uint64((page - 1) * perPage)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	albums, err := r.queryAlbums(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	return albums, total, nil
}

func (r *AlbumRepo) ListAlbumsByOwner(ctx context.Context, ownerID string) ([]models.Album, error) {
	const op = "repository.AlbumRepo.ListAlbumsByOwner"

	query, args, err := r.sb.Select(albumColumns...).
		From("albums").
		Where(sq.Eq{"owner_id": ownerID, "status": models.AlbumStatusCommitted}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	albums, err := r.queryAlbums(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return albums, nil
}

// DeleteStaleProvisional удаляет альбомы, застрявшие в provisional
// (например, после падения процесса во время загрузки).
func (r *AlbumRepo) DeleteStaleProvisional(ctx context.Context, createdBefore time.Time) ([]uuid.UUID, error) {
	const op = "repository.AlbumRepo.DeleteStaleProvisional"

	query, args, err := r.sb.Delete("albums").
		Where(sq.Eq{"status": models.AlbumStatusProvisional}).
		Where(sq.Lt{"created_at": createdBefore}).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return ids, nil
}

func (r *AlbumRepo) queryAlbums(ctx context.Context, query string, args ...interface{}) ([]models.Album, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	albums := make([]models.Album, 0)
	for rows.Next() {
		var a models.Album
		if err := rows.Scan(
			&a.ID,
			&a.OwnerID,
			&a.Title,
			&a.Description,
			&a.Slug,
			&a.Status,
			&a.CreatedAt,
		); err != nil {
			return nil, err
		}
		albums = append(albums, a)
	}

	return albums, rows.Err()
}
