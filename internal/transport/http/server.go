package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"frames/internal/domain/models"
	"frames/internal/lib/logger/sl"
	"frames/internal/middleware"
	"frames/internal/storage"
	"frames/internal/transport/http/dto"
	"frames/internal/transport/http/dto/response"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	_ "frames/docs"
)

type AlbumService interface {
	CreateAlbum(ctx context.Context, input models.CreateAlbumInput) (*models.Album, error)
	GetAlbum(ctx context.Context, slug string) (*models.AlbumWithPhotos, error)
	ListAlbums(ctx context.Context, page, perPage int) ([]models.Album, int, error)
	ListOwnerAlbums(ctx context.Context, ownerID string) ([]models.Album, error)
	DeleteAlbum(ctx context.Context, ownerID, slug string) error
}

type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type Routers struct {
	log          *slog.Logger
	AlbumService AlbumService
	checkers     []HealthChecker
}

func NewRouter(log *slog.Logger, albumService AlbumService, checkers ...HealthChecker) *Routers {
	return &Routers{
		log:          log,
		AlbumService: albumService,
		checkers:     checkers,
	}
}

type CustomValidator struct {
	validator *validator.Validate
}

func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

const (
	formPhotos       = "photos"
	formLastModified = "lastModified"
	defaultPerPage   = 20
)

// CreateAlbum godoc
// @Summary Создание альбома
// @Description Загружает до 36 фотографий одним запросом. Альбом публикуется только если обработаны все файлы.
// @Tags albums
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "Название альбома"
// @Param description formData string false "Описание альбома"
// @Param photos formData file true "Фотографии (JPEG, PNG, WebP), можно несколько"
// @Param lastModified formData integer false "Время изменения файла в мс, по одному на каждую фотографию"
// @Success 201 {object} response.Response{data=dto.AlbumSummary} "Альбом создан"
// @Failure 400 {object} response.ErrorResponse "Пустой запрос, больше 36 файлов или нет названия"
// @Failure 401 {object} response.ErrorResponse "Требуется авторизация"
// @Failure 413 {object} response.ErrorResponse "Файл слишком большой"
// @Failure 415 {object} response.ErrorResponse "Неподдерживаемый тип файла"
// @Failure 500 {object} response.ErrorResponse "Не удалось обработать файл"
// @Security ApiKeyAuth
// @Router /api/v1/albums [post]
func (r *Routers) CreateAlbum(c echo.Context) error {
	const op = "http.routers.CreateAlbum"

	log := r.log.With(
		slog.String("op", op),
	)

	userID, ok := middleware.UserID(c)
	if !ok {
		return r.albumError(c, log, models.ErrUnauthenticated, response.ErrAlbumCreationFailed)
	}

	form, err := c.MultipartForm()
	if err != nil {
		log.Warn("failed to parse multipart form", sl.Err(err))
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	headers := form.File[formPhotos]
	modTimes := form.Value[formLastModified]

	files := make([]models.UploadedFile, len(headers))
	for i, fh := range headers {
		var modTime time.Time
		if i < len(modTimes) {
			modTime = parseMillis(modTimes[i])
		}
		files[i] = models.FileFromHeader(fh, modTime)
	}

	input := models.CreateAlbumInput{
		OwnerID:     userID,
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		Files:       files,
		ReceivedAt:  time.Now().UTC(),
	}

	album, err := r.AlbumService.CreateAlbum(c.Request().Context(), input)
	if err != nil {
		return r.albumError(c, log, err, response.ErrAlbumCreationFailed)
	}

	log.Info("album created", slog.String("slug", album.Slug), slog.Int("photos", len(files)))

	return c.JSON(http.StatusCreated, response.SuccessResponse(dto.NewAlbumSummary(*album)))
}

// GetAlbum godoc
// @Summary Просмотр альбома
// @Description Возвращает альбом и фотографии по времени съемки
// @Tags albums
// @Produce json
// @Param slug path string true "Короткий идентификатор альбома"
// @Success 200 {object} response.Response{data=models.AlbumWithPhotos} "Альбом"
// @Failure 404 {object} response.ErrorResponse "Альбом не найден"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /api/v1/albums/{slug} [get]
func (r *Routers) GetAlbum(c echo.Context) error {
	const op = "http.routers.GetAlbum"

	log := r.log.With(
		slog.String("op", op),
		slog.String("slug", c.Param("slug")),
	)

	album, err := r.AlbumService.GetAlbum(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return r.albumError(c, log, err, response.ErrInternal)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(album))
}

// ListAlbums godoc
// @Summary Список альбомов
// @Description Опубликованные альбомы, новые первыми
// @Tags albums
// @Produce json
// @Param page query int false "Номер страницы" minimum(1)
// @Param per_page query int false "Размер страницы" minimum(1) maximum(100)
// @Success 200 {object} response.Response{data=dto.AlbumListResponse} "Страница альбомов"
// @Failure 400 {object} response.ErrorResponse "Неверные параметры пагинации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /api/v1/albums [get]
func (r *Routers) ListAlbums(c echo.Context) error {
	const op = "http.routers.ListAlbums"

	log := r.log.With(
		slog.String("op", op),
	)

	var query dto.ListAlbumsQuery
	if err := c.Bind(&query); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	if err := c.Validate(query); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", err.Error()))
	}

	if query.Page == 0 {
		query.Page = 1
	}
	if query.PerPage == 0 {
		query.PerPage = defaultPerPage
	}

	albums, total, err := r.AlbumService.ListAlbums(c.Request().Context(), query.Page, query.PerPage)
	if err != nil {
		return r.albumError(c, log, err, response.ErrInternal)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(dto.AlbumListResponse{
		Albums:  dto.NewAlbumSummaries(albums),
		Total:   total,
		Page:    query.Page,
		PerPage: query.PerPage,
	}))
}

// MyAlbums godoc
// @Summary Мои альбомы
// @Description Альбомы текущего пользователя
// @Tags albums
// @Produce json
// @Success 200 {object} response.Response{data=[]dto.AlbumSummary} "Альбомы пользователя"
// @Failure 401 {object} response.ErrorResponse "Требуется авторизация"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Security ApiKeyAuth
// @Router /api/v1/me/albums [get]
func (r *Routers) MyAlbums(c echo.Context) error {
	const op = "http.routers.MyAlbums"

	userID, ok := middleware.UserID(c)
	if !ok {
		return r.albumError(c, r.log.With(slog.String("op", op)), models.ErrUnauthenticated, response.ErrInternal)
	}

	log := r.log.With(
		slog.String("op", op),
		slog.String("user_id", userID),
	)

	albums, err := r.AlbumService.ListOwnerAlbums(c.Request().Context(), userID)
	if err != nil {
		return r.albumError(c, log, err, response.ErrInternal)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(dto.NewAlbumSummaries(albums)))
}

// DeleteAlbum godoc
// @Summary Удаление альбома
// @Description Удаляет альбом владельца вместе с файлами
// @Tags albums
// @Param slug path string true "Короткий идентификатор альбома"
// @Success 204 "Альбом удален"
// @Failure 401 {object} response.ErrorResponse "Требуется авторизация"
// @Failure 403 {object} response.ErrorResponse "Альбом принадлежит другому пользователю"
// @Failure 404 {object} response.ErrorResponse "Альбом не найден"
// @Security ApiKeyAuth
// @Router /api/v1/albums/{slug} [delete]
func (r *Routers) DeleteAlbum(c echo.Context) error {
	const op = "http.routers.DeleteAlbum"

	userID, ok := middleware.UserID(c)
	if !ok {
		return r.albumError(c, r.log.With(slog.String("op", op)), models.ErrUnauthenticated, response.ErrInternal)
	}

	log := r.log.With(
		slog.String("op", op),
		slog.String("user_id", userID),
		slog.String("slug", c.Param("slug")),
	)

	if err := r.AlbumService.DeleteAlbum(c.Request().Context(), userID, c.Param("slug")); err != nil {
		return r.albumError(c, log, err, response.ErrInternal)
	}

	return c.NoContent(http.StatusNoContent)
}

// Health godoc
// @Summary Проверка состояния
// @Tags service
// @Produce json
// @Success 200 {object} response.Response "Сервис доступен"
// @Failure 503 {object} response.ErrorResponse "Зависимость недоступна"
// @Router /health [get]
func (r *Routers) Health(c echo.Context) error {
	const op = "http.routers.Health"

	for _, checker := range r.checkers {
		if err := checker.HealthCheck(c.Request().Context()); err != nil {
			r.log.Error("health check failed", slog.String("op", op), sl.Err(err))
			return c.JSON(http.StatusServiceUnavailable, response.ErrorResponseWithDetails("unavailable", err.Error()))
		}
	}

	return c.JSON(http.StatusOK, response.MessageResponse("ok"))
}

var clientErrors = []struct {
	target error
	status int
	code   string
}{
	{models.ErrEmptyBatch, http.StatusBadRequest, "empty_batch"},
	{models.ErrTooManyFiles, http.StatusBadRequest, "too_many_files"},
	{models.ErrMissingTitle, http.StatusBadRequest, "missing_title"},
	{models.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{models.ErrFileTooLarge, http.StatusRequestEntityTooLarge, "file_too_large"},
	{models.ErrUnsupportedType, http.StatusUnsupportedMediaType, "unsupported_type"},
}

// albumError переводит ошибку сервиса в HTTP-ответ.
func (r *Routers) albumError(c echo.Context, log *slog.Logger, err error, fallback response.ErrorResponse) error {
	var fileErr *models.FileError
	hasFile := errors.As(err, &fileErr)

	if models.IsClientError(err) {
		log.Info("request rejected", sl.Err(err))

		if errors.Is(err, models.ErrUnauthenticated) {
			return c.JSON(http.StatusUnauthorized, response.ErrAuthenticationRequired)
		}

		for _, ce := range clientErrors {
			if !errors.Is(err, ce.target) {
				continue
			}

			details := ce.target.Error()
			if hasFile {
				details = fileErr.Error()
			}

			return c.JSON(ce.status, response.ErrorResponseWithDetails(ce.code, details))
		}
	}

	switch {
	case errors.Is(err, storage.ErrAlbumNotFound):
		return c.JSON(http.StatusNotFound, response.ErrAlbumNotFound)
	case errors.Is(err, models.ErrForbidden):
		return c.JSON(http.StatusForbidden, response.ErrForbidden)
	}

	log.Error("request failed", sl.Err(err))

	if hasFile {
		return c.JSON(http.StatusInternalServerError, response.AlbumCreationFailed(fileErr.Filename))
	}

	return c.JSON(http.StatusInternalServerError, fallback)
}

// parseMillis время из lastModified. Пустое или неверное значение дает нулевое время.
func parseMillis(value string) time.Time {
	ms, err := strconv.ParseInt(value, 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}
	}

	return time.UnixMilli(ms).UTC()
}
