package services

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"frames/internal/domain/models"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
)

const sniffLen = 3072

var DefaultAcceptedTypes = []string{"image/jpeg", "image/jpg", "image/png", "image/webp"}

type Limits struct {
	MaxFiles      int
	MaxFileSize   int64
	AcceptedTypes []string
}

// albumMeta текстовые поля запроса.
type albumMeta struct {
	Title       string `validate:"required,max=200"`
	Description string `validate:"max=2000"`
}

// Validator отклоняет некорректные запросы до начала обработки.
// Проверки идут в фиксированном порядке, поэтому повторная проверка
// одного и того же запроса дает ту же ошибку.
type Validator struct {
	log      *slog.Logger
	limits   Limits
	accepted map[string]struct{}
	validate *validator.Validate
}

func NewValidator(log *slog.Logger, limits Limits) *Validator {
	if limits.MaxFiles <= 0 || limits.MaxFiles > models.MaxAlbumPhotos {
		limits.MaxFiles = models.MaxAlbumPhotos
	}
	if len(limits.AcceptedTypes) == 0 {
		limits.AcceptedTypes = DefaultAcceptedTypes
	}

	accepted := make(map[string]struct{}, len(limits.AcceptedTypes))
	for _, t := range limits.AcceptedTypes {
		accepted[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}

	return &Validator{
		log:      log,
		limits:   limits,
		accepted: accepted,
		validate: validator.New(),
	}
}

func (v *Validator) Validate(input models.CreateAlbumInput) (models.UploadBatch, error) {
	const op = "services.Validator.Validate"

	log := v.log.With(
		slog.String("op", op),
		slog.Int("files", len(input.Files)),
	)

	switch n := len(input.Files); {
	case n == 0:
		log.Warn("empty batch")
		return models.UploadBatch{}, models.ErrEmptyBatch
	case n > v.limits.MaxFiles:
		log.Warn("too many files", slog.Int("max", v.limits.MaxFiles))
		return models.UploadBatch{}, fmt.Errorf("%w: %d files, max %d", models.ErrTooManyFiles, n, v.limits.MaxFiles)
	}

	files := make([]models.UploadedFile, len(input.Files))
	for i, f := range input.Files {
		if v.limits.MaxFileSize > 0 && f.Size > v.limits.MaxFileSize {
			log.Warn("file too large", slog.String("filename", f.Filename), slog.Int64("size", f.Size))
			return models.UploadBatch{}, models.NewFileError(i, f.Filename,
				fmt.Errorf("%w: %d bytes, max %d", models.ErrFileTooLarge, f.Size, v.limits.MaxFileSize))
		}

		contentType, err := v.contentType(f)
		if err != nil {
			log.Warn("unsupported file type", slog.String("filename", f.Filename), slog.String("content_type", f.ContentType))
			return models.UploadBatch{}, models.NewFileError(i, f.Filename, err)
		}

		f.ContentType = contentType
		files[i] = f
	}

	meta := albumMeta{
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
	}

	if meta.Title == "" {
		log.Warn("missing title")
		return models.UploadBatch{}, models.ErrMissingTitle
	}

	if err := v.validate.Struct(meta); err != nil {
		log.Warn("invalid album fields", slog.String("reason", err.Error()))
		return models.UploadBatch{}, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}

	return models.NewUploadBatch(input.OwnerID, meta.Title, meta.Description, files, input.ReceivedAt), nil
}

// contentType нормализует заявленный тип. Если клиент прислал пустой или
// общий тип, он определяется по первым байтам файла.
func (v *Validator) contentType(f models.UploadedFile) (string, error) {
	declared := strings.ToLower(strings.TrimSpace(f.ContentType))
	if i := strings.IndexByte(declared, ';'); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}

	if declared == "" || declared == "application/octet-stream" {
		sniffed, err := sniff(f)
		if err != nil {
			return "", fmt.Errorf("%w: %v", models.ErrUnsupportedType, err)
		}
		declared = sniffed
	}

	if _, ok := v.accepted[declared]; !ok {
		return "", fmt.Errorf("%w: %s", models.ErrUnsupportedType, declared)
	}

	return declared, nil
}

func sniff(f models.UploadedFile) (string, error) {
	if f.Open == nil {
		return "", fmt.Errorf("file is not readable")
	}

	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	head, err := io.ReadAll(io.LimitReader(rc, sniffLen))
	if err != nil {
		return "", err
	}

	mt := mimetype.Detect(head)
	if i := strings.IndexByte(mt.String(), ';'); i >= 0 {
		return mt.String()[:i], nil
	}

	return mt.String(), nil
}
