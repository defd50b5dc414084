package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shopify-hubspot-sync/internal/domain"
	"shopify-hubspot-sync/internal/ports"

	"github.com/rs/zerolog"
)

// WebhookTopics are the Shopify topics registered when a Connect is enabled
var WebhookTopics = []string{
	"orders/updated",
	"products/update",
	"customers/update",
	"products/create",
	"customers/create",
	"app/uninstalled",
}

// ConnectService manages the lifecycle of Connect pairings
type ConnectService struct {
	connectRepo ports.ConnectRepository
	appRepo     ports.AppRepository
	shopify     ports.ShopifyClient
	validator   PairingValidator
	appURL      string
	logger      zerolog.Logger
}

// NewConnectService creates a new connect service
func NewConnectService(
	connectRepo ports.ConnectRepository,
	appRepo ports.AppRepository,
	shopify ports.ShopifyClient,
	validator PairingValidator,
	appURL string,
	logger zerolog.Logger,
) *ConnectService {
	return &ConnectService{
		connectRepo: connectRepo,
		appRepo:     appRepo,
		shopify:     shopify,
		validator:   validator,
		appURL:      strings.TrimSuffix(appURL, "/"),
		logger:      logger,
	}
}

// CreateNewConnect pairs two Apps of the user. The new Connect starts inactive.
func (s *ConnectService) CreateNewConnect(ctx context.Context, userID, name, fromAppID, toAppID string) (*domain.Connect, error) {
	if fromAppID == toAppID {
		return nil, fmt.Errorf("%w: an app cannot be connected to itself", domain.ErrConflict)
	}
	from, err := loadApp(ctx, s.appRepo, userID, fromAppID)
	if err != nil {
		return nil, err
	}
	to, err := loadApp(ctx, s.appRepo, userID, toAppID)
	if err != nil {
		return nil, err
	}
	if from.Platform == to.Platform {
		return nil, fmt.Errorf("%w: both apps are on %s", domain.ErrConflict, from.Platform)
	}

	existing, err := s.connectRepo.FindPair(ctx, userID, from.ID, to.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing connect: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: apps are already connected by %s", domain.ErrConflict, existing.ID)
	}

	now := time.Now()
	connect := &domain.Connect{
		UserID:    userID,
		FromAppID: from.ID,
		ToAppID:   to.ID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.connectRepo.Create(ctx, connect); err != nil {
		return nil, fmt.Errorf("failed to create connect: %w", err)
	}

	for _, app := range []*domain.App{from, to} {
		if err := s.appRepo.SetActive(ctx, app.ID, true); err != nil {
			return nil, fmt.Errorf("failed to activate app %s: %w", app.ID, err)
		}
	}

	s.logger.Info().
		Str("connect_id", connect.ID).
		Str("user_id", userID).
		Str("from", string(from.Platform)).
		Str("to", string(to.Platform)).
		Msg("Connect created")
	return connect, nil
}

// Enable validates both Apps, registers the source webhooks and activates the Connect
func (s *ConnectService) Enable(ctx context.Context, userID, connectID string) (*domain.Connect, error) {
	p, err := loadPairing(ctx, s.connectRepo, s.appRepo, userID, connectID)
	if err != nil {
		return nil, err
	}
	if p.Connect.IsActive {
		return p.Connect, nil
	}
	if err := s.validator.ValidatePairing(ctx, p); err != nil {
		return nil, err
	}
	creds, err := domain.ShopifyCredentialsOf(p.Source)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(WebhookTopics))
	for _, topic := range WebhookTopics {
		id, err := s.shopify.CreateWebhook(ctx, creds, topic, s.webhookAddress(p.Connect, topic))
		if err != nil {
			s.deleteWebhooks(ctx, creds, ids)
			return nil, fmt.Errorf("failed to register webhook %s: %w", topic, err)
		}
		ids = append(ids, id)
	}

	if err := s.appRepo.AddWebhookIDs(ctx, p.Source.ID, ids); err != nil {
		return nil, fmt.Errorf("failed to store webhook ids: %w", err)
	}
	if err := s.connectRepo.SetActive(ctx, p.Connect.ID, true); err != nil {
		return nil, fmt.Errorf("failed to activate connect: %w", err)
	}

	s.logger.Info().Str("connect_id", p.Connect.ID).Int("webhooks", len(ids)).Msg("Connect enabled")
	p.Connect.IsActive = true
	return p.Connect, nil
}

// webhookAddress builds the callback URL for one topic of a Connect
func (s *ConnectService) webhookAddress(c *domain.Connect, topic string) string {
	return fmt.Sprintf("%s/webhook/%s/%s/%s/%s", s.appURL, webhookSegment(topic), c.FromAppID, c.ToAppID, c.ID)
}

// webhookSegment maps a topic such as "orders/updated" to its route segment "order"
func webhookSegment(topic string) string {
	resource, _, _ := strings.Cut(topic, "/")
	return strings.TrimSuffix(resource, "s")
}

// Disable removes the source webhooks and deactivates the Connect
func (s *ConnectService) Disable(ctx context.Context, userID, connectID string) (*domain.Connect, error) {
	p, err := loadPairing(ctx, s.connectRepo, s.appRepo, userID, connectID)
	if err != nil {
		return nil, err
	}
	if creds, err := domain.ShopifyCredentialsOf(p.Source); err == nil {
		s.deleteWebhooks(ctx, creds, p.Source.WebhookIDs)
	}
	if err := s.deactivate(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info().Str("connect_id", p.Connect.ID).Msg("Connect disabled")
	return p.Connect, nil
}

// MarkUninstalled deactivates a Connect whose source shop removed the app.
// The shop already dropped its webhooks so none are deleted.
func (s *ConnectService) MarkUninstalled(ctx context.Context, p *domain.Pairing) error {
	if err := s.deactivate(ctx, p); err != nil {
		return err
	}
	s.logger.Warn().Str("connect_id", p.Connect.ID).Str("app_id", p.Source.ID).Msg("Source app uninstalled, connect disabled")
	return nil
}

func (s *ConnectService) deactivate(ctx context.Context, p *domain.Pairing) error {
	if err := s.appRepo.ClearWebhookIDs(ctx, p.Source.ID); err != nil {
		return fmt.Errorf("failed to clear webhook ids: %w", err)
	}
	if err := s.connectRepo.SetActive(ctx, p.Connect.ID, false); err != nil {
		return fmt.Errorf("failed to deactivate connect: %w", err)
	}
	p.Source.WebhookIDs = nil
	p.Connect.IsActive = false
	return nil
}

// deleteWebhooks removes webhooks best effort. Ones already gone are ignored.
func (s *ConnectService) deleteWebhooks(ctx context.Context, creds *domain.ShopifyCredentials, ids []string) {
	for _, id := range ids {
		err := s.shopify.DeleteWebhook(ctx, creds, id)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn().Err(err).Str("webhook_id", id).Msg("Failed to delete webhook")
		}
	}
}

// SoftDelete marks an inactive, idle Connect deleted and deactivates Apps left without any Connect
func (s *ConnectService) SoftDelete(ctx context.Context, userID, connectID string) error {
	connect, err := loadConnect(ctx, s.connectRepo, userID, connectID)
	if err != nil {
		return err
	}
	if connect.IsActive {
		return fmt.Errorf("%w: disable webhook first", domain.ErrBadRequest)
	}
	if connect.IsSyncing {
		return fmt.Errorf("%w: connect is syncing", domain.ErrBadRequest)
	}

	if err := s.connectRepo.SoftDelete(ctx, connect.ID); err != nil {
		return fmt.Errorf("failed to delete connect: %w", err)
	}

	for _, appID := range []string{connect.FromAppID, connect.ToAppID} {
		n, err := s.connectRepo.CountByApp(ctx, appID)
		if err != nil {
			return fmt.Errorf("failed to count connects of app %s: %w", appID, err)
		}
		if n > 0 {
			continue
		}
		if err := s.appRepo.SetActive(ctx, appID, false); err != nil && !isNotFound(err) {
			return fmt.Errorf("failed to deactivate app %s: %w", appID, err)
		}
	}

	s.logger.Info().Str("connect_id", connect.ID).Msg("Connect deleted")
	return nil
}

// UpdateName renames a Connect
func (s *ConnectService) UpdateName(ctx context.Context, userID, connectID, name string) (*domain.Connect, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrBadRequest)
	}
	connect, err := loadConnect(ctx, s.connectRepo, userID, connectID)
	if err != nil {
		return nil, err
	}
	if err := s.connectRepo.UpdateName(ctx, connect.ID, name); err != nil {
		return nil, fmt.Errorf("failed to rename connect: %w", err)
	}
	connect.Name = name
	return connect, nil
}

// Get returns one Connect of the user
func (s *ConnectService) Get(ctx context.Context, userID, connectID string) (*domain.Connect, error) {
	return loadConnect(ctx, s.connectRepo, userID, connectID)
}

// List returns every Connect of the user
func (s *ConnectService) List(ctx context.Context, userID string) ([]*domain.Connect, error) {
	connects, err := s.connectRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list connects: %w", err)
	}
	return connects, nil
}
