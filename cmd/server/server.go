package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"mediavault/services/media-api/internal/config"
	domain "mediavault/services/media-api/internal/domain/media"
	"mediavault/services/media-api/internal/infrastructure/auth"
	"mediavault/services/media-api/internal/infrastructure/database"
	"mediavault/services/media-api/internal/infrastructure/logger"
	"mediavault/services/media-api/internal/infrastructure/notify"
	"mediavault/services/media-api/internal/infrastructure/observability"
	repo "mediavault/services/media-api/internal/infrastructure/repository/media"
	"mediavault/services/media-api/internal/infrastructure/repository/memory"
	"mediavault/services/media-api/internal/infrastructure/storage"
	"mediavault/services/media-api/internal/infrastructure/thumbnail"
	"mediavault/services/media-api/internal/interfaces/httpserver"
)

// @title Media API
// @version 1.0
// @description Media asset service: upload, catalogue, search and delete images and videos per user
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
type Application struct {
	httpServer *httpserver.HttpServer
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		log:        log,
	}
}

func (a *Application) Start(ctx context.Context) error {
	return a.httpServer.Run(ctx)
}

// metadataRepository is a domain repository that can report its health.
type metadataRepository interface {
	domain.Repository
	Ping(ctx context.Context) error
}

// blobStorage is a domain storage backend that can report its health.
type blobStorage interface {
	domain.Storage
	Health(ctx context.Context) error
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	mediaRepository, err := provideRepository(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize metadata repository")
	}

	storageClient, err := provideStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize storage")
	}

	authValidator, err := auth.NewValidator(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize auth")
	}

	mediaService := domain.NewService(cfg,
		mediaRepository,
		storageClient,
		thumbnail.NewDeriver(cfg, log),
		notify.NewNotifier(cfg, log),
		log,
	)

	httpServer := httpserver.New(cfg, log, mediaService, authValidator, provideReadinessChecks(mediaRepository, storageClient))
	app := NewApplication(httpServer, log)

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

// provideRepository connects and migrates PostgreSQL, or returns the in-memory repository.
func provideRepository(ctx context.Context, cfg *config.Config, log zerolog.Logger) (metadataRepository, error) {
	if cfg.IsMemoryMetadata() {
		log.Warn().Msg("MEDIA_METADATA_BACKEND is memory; records are lost on restart")
		return memory.NewRepository(), nil
	}

	db, err := database.Open(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return repo.NewRepository(db), nil
}

// provideStorage creates the appropriate storage backend based on configuration.
func provideStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (blobStorage, error) {
	if cfg.IsLocalStorage() {
		return storage.NewLocalStorage(cfg, log)
	}
	return storage.NewS3Storage(ctx, cfg, log)
}

func provideReadinessChecks(repository metadataRepository, blobs blobStorage) httpserver.ReadinessChecks {
	return httpserver.ReadinessChecks{
		"database": repository.Ping,
		"storage":  blobs.Health,
	}
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
