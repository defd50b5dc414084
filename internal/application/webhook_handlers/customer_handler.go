package webhook_handlers

import (
	"context"
	"fmt"

	"shopify-hubspot-sync/internal/application"
	"shopify-hubspot-sync/internal/application/normalizer"
	"shopify-hubspot-sync/internal/domain"

	"github.com/rs/zerolog"
)

// CustomerHandler handles customer-related webhook events
type CustomerHandler struct {
	syncer application.RecordSyncer
	logger zerolog.Logger
}

// NewCustomerHandler creates a new customer webhook handler
func NewCustomerHandler(syncer application.RecordSyncer, logger zerolog.Logger) *CustomerHandler {
	return &CustomerHandler{
		syncer: syncer,
		logger: logger,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *CustomerHandler) CanHandle(topic string) bool {
	return topic == "customers/create" ||
		topic == "customers/update"
}

// Handle normalizes the customer and upserts it into the CRM
func (h *CustomerHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	customer, err := normalizer.CustomerFromWebhook(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to parse customer webhook payload: %w", err)
	}

	contactID := h.syncer.SyncCustomer(ctx, event.Pairing, customer)

	h.logger.Info().
		Str("topic", event.Topic).
		Str("shop", event.Shop).
		Str("customer_id", customer.ID).
		Str("contact_id", contactID).
		Bool("synced", contactID != "").
		Msg("Processed customer webhook event")
	return nil
}
