package handlers

import (
	"github.com/rs/zerolog"

	"mediavault/services/media-api/internal/config"
	domain "mediavault/services/media-api/internal/domain/media"
)

// Provider groups the handlers mounted by the HTTP server.
type Provider struct {
	Media  *MediaHandler
	Health *HealthHandler
}

func NewProvider(cfg *config.Config, service *domain.Service, authReady func() bool, checks ReadinessChecks, log zerolog.Logger) *Provider {
	return &Provider{
		Media:  NewMediaHandler(cfg, service, log),
		Health: NewHealthHandler(cfg.ServiceName, authReady, checks),
	}
}
