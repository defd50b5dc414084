package application

import (
	"context"
	"errors"
	"fmt"

	"shopify-hubspot-sync/internal/domain"
	"shopify-hubspot-sync/internal/ports"

	"github.com/rs/zerolog"
)

// ErrQueueFull is returned when a webhook could not be queued for processing
var ErrQueueFull = errors.New("background queue is full")

// WebhookHandler processes the webhook topics it claims
type WebhookHandler interface {
	CanHandle(topic string) bool
	Handle(ctx context.Context, event *domain.WebhookEvent) error
}

// WebhookDispatcher resolves incoming webhooks to their Connect and hands them to the matching handlers
type WebhookDispatcher struct {
	handlers    []WebhookHandler
	connectRepo ports.ConnectRepository
	appRepo     ports.AppRepository
	tasks       ports.TaskQueue
	logger      zerolog.Logger
}

// NewWebhookDispatcher creates a new webhook dispatcher
func NewWebhookDispatcher(
	connectRepo ports.ConnectRepository,
	appRepo ports.AppRepository,
	tasks ports.TaskQueue,
	logger zerolog.Logger,
) *WebhookDispatcher {
	return &WebhookDispatcher{
		connectRepo: connectRepo,
		appRepo:     appRepo,
		tasks:       tasks,
		logger:      logger,
	}
}

// RegisterHandler adds a handler
func (d *WebhookDispatcher) RegisterHandler(h WebhookHandler) {
	d.handlers = append(d.handlers, h)
}

// WebhookTarget identifies the Connect a webhook address was registered for
type WebhookTarget struct {
	ConnectID string
	FromAppID string
	ToAppID   string
}

// Receive resolves the webhook's Connect and queues it for the handlers.
// Deliveries for unknown, mismatched or inactive Connects are dropped without error.
func (d *WebhookDispatcher) Receive(ctx context.Context, target WebhookTarget, topic, shop string, payload []byte) error {
	log := d.logger.With().Str("topic", topic).Str("connect_id", target.ConnectID).Logger()

	p, err := loadPairing(ctx, d.connectRepo, d.appRepo, "", target.ConnectID)
	if isNotFound(err) {
		log.Info().Msg("Ignoring webhook for unknown connect")
		return nil
	}
	if err != nil {
		return err
	}
	if p.Connect.FromAppID != target.FromAppID || p.Connect.ToAppID != target.ToAppID {
		log.Warn().Msg("Ignoring webhook with mismatched apps")
		return nil
	}
	if !p.Connect.IsActive {
		log.Info().Msg("Ignoring webhook for inactive connect")
		return nil
	}
	if err := requireShopifyToHubSpot(p); err != nil {
		log.Warn().Err(err).Msg("Ignoring webhook")
		return nil
	}

	event := &domain.WebhookEvent{Topic: topic, Shop: shop, Payload: payload, Pairing: p}
	if !d.tasks.Submit("webhook:"+topic, func(ctx context.Context) error {
		return d.Dispatch(ctx, event)
	}) {
		return fmt.Errorf("%w: webhook %s", ErrQueueFull, topic)
	}
	return nil
}

// Dispatch runs every handler that claims the event's topic
func (d *WebhookDispatcher) Dispatch(ctx context.Context, event *domain.WebhookEvent) error {
	handled := false
	var errs []error
	for _, h := range d.handlers {
		if !h.CanHandle(event.Topic) {
			continue
		}
		handled = true
		if err := h.Handle(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	if !handled {
		d.logger.Debug().Str("topic", event.Topic).Msg("No handler for webhook topic")
	}
	return errors.Join(errs...)
}
