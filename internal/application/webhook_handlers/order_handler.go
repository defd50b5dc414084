package webhook_handlers

import (
	"context"
	"fmt"

	"shopify-hubspot-sync/internal/application"
	"shopify-hubspot-sync/internal/application/normalizer"
	"shopify-hubspot-sync/internal/domain"

	"github.com/rs/zerolog"
)

// OrderHandler handles order-related webhook events
type OrderHandler struct {
	syncer application.RecordSyncer
	logger zerolog.Logger
}

// NewOrderHandler creates a new order webhook handler
func NewOrderHandler(syncer application.RecordSyncer, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		syncer: syncer,
		logger: logger,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *OrderHandler) CanHandle(topic string) bool {
	return topic == "orders/create" ||
		topic == "orders/updated" ||
		topic == "orders/paid"
}

// Handle normalizes the order and upserts it, with its customer and products, into the CRM
func (h *OrderHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	order, err := normalizer.OrderFromWebhook(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to parse order webhook payload: %w", err)
	}

	dealID := h.syncer.SyncOrder(ctx, event.Pairing, order)

	h.logger.Info().
		Str("topic", event.Topic).
		Str("shop", event.Shop).
		Str("order_id", order.ID).
		Int("line_items", len(order.Products)).
		Bool("paid", order.IsPaid).
		Str("deal_id", dealID).
		Msg("Processed order webhook event")
	return nil
}
