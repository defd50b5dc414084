package webhook_handlers

import (
	"context"

	"shopify-hubspot-sync/internal/domain"

	"github.com/rs/zerolog"
)

// Uninstaller deactivates a Connect whose source app was removed
type Uninstaller interface {
	MarkUninstalled(ctx context.Context, p *domain.Pairing) error
}

// AppUninstalledHandler handles app uninstalled webhook events
type AppUninstalledHandler struct {
	connects Uninstaller
	logger   zerolog.Logger
}

// NewAppUninstalledHandler creates a new app uninstalled webhook handler
func NewAppUninstalledHandler(connects Uninstaller, logger zerolog.Logger) *AppUninstalledHandler {
	return &AppUninstalledHandler{
		connects: connects,
		logger:   logger,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *AppUninstalledHandler) CanHandle(topic string) bool {
	return topic == "app/uninstalled"
}

// Handle disables the Connect the uninstalled shop was feeding
func (h *AppUninstalledHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	h.logger.Info().
		Str("topic", event.Topic).
		Str("shop", event.Shop).
		Str("connect_id", event.Pairing.Connect.ID).
		Msg("Processing app uninstalled webhook event")

	return h.connects.MarkUninstalled(ctx, event.Pairing)
}
