package app

import (
	"context"
	"log/slog"
	"time"

	httpapp "frames/internal/app/http"
	"frames/internal/config"
	"frames/internal/lib/logger/sl"
	"frames/internal/pipeline"
	"frames/internal/repository"
	albums "frames/internal/services/album_service"
	uploads "frames/internal/services/upload_service"
	filestorage "frames/internal/storage/filestorage"
	"frames/internal/storage/memcache"
	redisstorage "frames/internal/storage/redis"
	"frames/internal/storage/s3storage"
	httprouters "frames/internal/transport/http"
)

const (
	// черновик старше этого срока остался от упавшего процесса
	provisionalTTL = time.Hour
	sweepInterval  = 15 * time.Minute
)

type App struct {
	log        *slog.Logger
	HTTPServer *httpapp.Server
	Albums     *albums.AlbumService
	repo       *repository.Repository
	redis      *redisstorage.Client
}

func New(ctx context.Context, log *slog.Logger, cfg *config.Config) *App {
	repo, err := repository.NewRepository(ctx, cfg.DSN)
	if err != nil {
		panic(err)
	}

	a := &App{
		log:  log,
		repo: repo,
	}

	files, uploadsDir := a.mustFileStorage(cfg)
	cache := a.albumCache(cfg)

	validator := uploads.NewValidator(log, uploads.Limits{
		MaxFiles:      cfg.Upload.MaxFiles,
		MaxFileSize:   cfg.Upload.MaxFileSize,
		AcceptedTypes: cfg.Upload.AcceptedType,
	})

	transcoder := pipeline.NewTranscoder(log, pipeline.TranscodeOptions{
		MaxDimension:  cfg.Transcode.MaxDimension,
		MaxPixels:     cfg.Transcode.MaxPixels,
		MaxBytes:      cfg.Transcode.MaxBytes,
		FirstQuality:  cfg.Transcode.FirstQuality,
		SecondQuality: cfg.Transcode.SecondQuality,
		ThumbSize:     cfg.Transcode.ThumbSize,
		ThumbQuality:  cfg.Transcode.ThumbQuality,
	})

	a.Albums = albums.NewAlbumService(
		log,
		repo.Album,
		files,
		cache,
		validator,
		pipeline.NewResolver(log),
		transcoder,
		albums.Options{Workers: cfg.Upload.Workers},
	)

	checkers := []httprouters.HealthChecker{repo}
	if a.redis != nil {
		checkers = append(checkers, a.redis)
	}

	routers := httprouters.NewRouter(log, a.Albums, checkers...)

	a.HTTPServer = httpapp.New(log, httpapp.Options{
		Host:           cfg.HTTP.Host,
		Port:           cfg.HTTP.Port,
		AuthSecret:     cfg.Auth.Secret,
		SessionKey:     cfg.Auth.SessionKey,
		BodyLimit:      cfg.BodyLimit(),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		UploadsURL:     cfg.FileStorage.BaseURL,
		UploadsDir:     uploadsDir,
	}, routers)

	return a
}

func (a *App) mustFileStorage(cfg *config.Config) (albums.FileStorage, string) {
	switch cfg.FileStorage.Driver {
	case "s3":
		s3, err := s3storage.New(s3storage.Config{
			Region:    cfg.S3.Region,
			Bucket:    cfg.S3.Bucket,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			BaseURL:   cfg.S3.BaseURL,
		})
		if err != nil {
			panic(err)
		}

		a.log.Info("using s3 file storage", slog.String("bucket", cfg.S3.Bucket))
		return s3, ""
	default:
		local, err := filestorage.NewLocalFileStorage(cfg.FileStorage.BaseDir, cfg.FileStorage.BaseURL)
		if err != nil {
			panic(err)
		}

		a.log.Info("using local file storage", slog.String("dir", local.GetBaseDir()))
		return local, local.GetBaseDir()
	}
}

func (a *App) albumCache(cfg *config.Config) albums.AlbumCache {
	switch cfg.Cache.Driver {
	case "redis":
		a.redis = redisstorage.NewClient(redisstorage.Options{
			Addr:         cfg.Redis.RedisAddr,
			Password:     cfg.Redis.RedisPassword,
			DB:           cfg.Redis.RedisDB,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		return a.redis.AlbumCache(cfg.Cache.TTL)
	case "none":
		return nil
	default:
		return memcache.NewAlbumCache(cfg.Cache.TTL)
	}
}

// RunSweeper периодически удаляет черновики альбомов до отмены ctx.
func (a *App) RunSweeper(ctx context.Context) {
	const op = "app.RunSweeper"

	log := a.log.With(slog.String("op", op))

	sweep := func() {
		if _, err := a.Albums.SweepProvisional(ctx, provisionalTTL); err != nil && ctx.Err() == nil {
			log.Error("failed to sweep provisional albums", sl.Err(err))
		}
	}

	sweep()

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}

func (a *App) Stop(ctx context.Context) {
	if err := a.HTTPServer.Stop(ctx); err != nil {
		a.log.Error("failed to stop http server", sl.Err(err))
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Error("failed to close redis", sl.Err(err))
		}
	}

	a.repo.Close()
}
