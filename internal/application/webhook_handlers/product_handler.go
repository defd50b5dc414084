package webhook_handlers

import (
	"context"
	"fmt"

	"shopify-hubspot-sync/internal/application"
	"shopify-hubspot-sync/internal/application/normalizer"
	"shopify-hubspot-sync/internal/domain"

	"github.com/rs/zerolog"
)

// ProductHandler handles product-related webhook events
type ProductHandler struct {
	syncer application.RecordSyncer
	logger zerolog.Logger
}

// NewProductHandler creates a new product webhook handler
func NewProductHandler(syncer application.RecordSyncer, logger zerolog.Logger) *ProductHandler {
	return &ProductHandler{
		syncer: syncer,
		logger: logger,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *ProductHandler) CanHandle(topic string) bool {
	return topic == "products/create" ||
		topic == "products/update"
}

// Handle normalizes the product and upserts it into the CRM
func (h *ProductHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	product, err := normalizer.ProductFromWebhook(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to parse product webhook payload: %w", err)
	}

	targetID := h.syncer.SyncProduct(ctx, event.Pairing, product)

	h.logger.Info().
		Str("topic", event.Topic).
		Str("shop", event.Shop).
		Str("product_id", product.ID).
		Str("target_id", targetID).
		Bool("synced", targetID != "").
		Msg("Processed product webhook event")
	return nil
}
