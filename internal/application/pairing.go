package application

import (
	"context"
	"fmt"

	"shopify-hubspot-sync/internal/domain"
	"shopify-hubspot-sync/internal/ports"
)

// PairingValidator checks that both ends of a Connect can currently be used
type PairingValidator interface {
	ValidatePairing(ctx context.Context, pairing *domain.Pairing) error
}

// loadConnect fetches a Connect owned by userID. An empty userID skips the ownership check.
func loadConnect(ctx context.Context, connects ports.ConnectRepository, userID, connectID string) (*domain.Connect, error) {
	connect, err := connects.Get(ctx, connectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load connect: %w", err)
	}
	if connect == nil || (userID != "" && connect.UserID != userID) {
		return nil, fmt.Errorf("%w: connect %s", domain.ErrNotFound, connectID)
	}
	return connect, nil
}

// loadApp fetches an App owned by userID. An empty userID skips the ownership check.
func loadApp(ctx context.Context, apps ports.AppRepository, userID, appID string) (*domain.App, error) {
	app, err := apps.GetApp(ctx, appID)
	if err != nil {
		return nil, fmt.Errorf("failed to load app: %w", err)
	}
	if app == nil || (userID != "" && app.UserID != userID) {
		return nil, fmt.Errorf("%w: app %s", domain.ErrNotFound, appID)
	}
	return app, nil
}

// loadPairing resolves a Connect together with both of its Apps
func loadPairing(ctx context.Context, connects ports.ConnectRepository, apps ports.AppRepository, userID, connectID string) (*domain.Pairing, error) {
	connect, err := loadConnect(ctx, connects, userID, connectID)
	if err != nil {
		return nil, err
	}
	source, err := loadApp(ctx, apps, connect.UserID, connect.FromAppID)
	if err != nil {
		return nil, err
	}
	target, err := loadApp(ctx, apps, connect.UserID, connect.ToAppID)
	if err != nil {
		return nil, err
	}
	return &domain.Pairing{Connect: connect, Source: source, Target: target}, nil
}

// requireShopifyToHubSpot rejects pairings the sync engine has no path for
func requireShopifyToHubSpot(p *domain.Pairing) error {
	if p.Source.Platform != domain.PlatformShopify || p.Target.Platform != domain.PlatformHubSpot {
		return fmt.Errorf("%w: unsupported sync direction %s -> %s", domain.ErrBadRequest, p.Source.Platform, p.Target.Platform)
	}
	return nil
}
