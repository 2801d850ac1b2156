//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"mediavault/services/media-api/internal/config"
	domain "mediavault/services/media-api/internal/domain/media"
	"mediavault/services/media-api/internal/infrastructure/auth"
	"mediavault/services/media-api/internal/infrastructure/logger"
	"mediavault/services/media-api/internal/infrastructure/notify"
	"mediavault/services/media-api/internal/infrastructure/thumbnail"
	"mediavault/services/media-api/internal/interfaces/httpserver"
)

var mediaSet = wire.NewSet(
	provideRepository,
	wire.Bind(new(domain.Repository), new(metadataRepository)),
	provideStorage,
	wire.Bind(new(domain.Storage), new(blobStorage)),
	thumbnail.NewDeriver,
	wire.Bind(new(domain.Thumbnailer), new(*thumbnail.Deriver)),
	notify.NewNotifier,
	domain.NewService,
	provideReadinessChecks,
)

// BuildApplication assembles the media API with Wire.
func BuildApplication(ctx context.Context) (*Application, error) {
	wire.Build(
		config.Load,
		logger.New,
		auth.NewValidator,
		mediaSet,
		httpserver.New,
		NewApplication,
	)
	return nil, nil
}
