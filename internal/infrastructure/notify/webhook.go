package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"mediavault/services/media-api/internal/config"
	domain "mediavault/services/media-api/internal/domain/media"
	"mediavault/services/media-api/internal/infrastructure/metrics"
)

// WebhookNotifier posts request notifications to an external workflow endpoint.
type WebhookNotifier struct {
	url        string
	httpClient *resty.Client
	log        zerolog.Logger
}

// NewNotifier returns a webhook notifier, or a no-op when no URL is configured.
func NewNotifier(cfg *config.Config, log zerolog.Logger) domain.Notifier {
	logger := log.With().Str("component", "workflow-notifier").Logger()
	url := strings.TrimSpace(cfg.NotifyWebhookURL)
	if url == "" {
		logger.Info().Msg("MEDIA_NOTIFY_WEBHOOK_URL is not set; workflow notifications are disabled")
		return Nop{}
	}

	httpClient := resty.New().
		SetHeader("User-Agent", "MediaVault-Media-API/1.0").
		SetHeader("Content-Type", "application/json").
		SetTimeout(cfg.NotifyTimeout)

	return &WebhookNotifier{url: url, httpClient: httpClient, log: logger}
}

func (n *WebhookNotifier) Notify(ctx context.Context, notification domain.Notification) error {
	resp, err := n.httpClient.R().
		SetContext(ctx).
		SetBody(notification).
		Post(n.url)
	if err != nil {
		metrics.RecordNotification(notification.Operation, metrics.StatusError)
		return fmt.Errorf("workflow notification request failed: %w", err)
	}
	if resp.IsError() {
		metrics.RecordNotification(notification.Operation, metrics.StatusError)
		return fmt.Errorf("workflow notification error (%d): %s", resp.StatusCode(), resp.String())
	}

	metrics.RecordNotification(notification.Operation, metrics.StatusSuccess)
	n.log.Debug().
		Str("operation", notification.Operation).
		Str("media_id", notification.MediaID).
		Msg("workflow notified")
	return nil
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Notify(context.Context, domain.Notification) error { return nil }
