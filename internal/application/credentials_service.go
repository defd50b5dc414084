package application

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"shopify-hubspot-sync/internal/domain"
	"shopify-hubspot-sync/internal/ports"

	"github.com/rs/zerolog"
)

// RequiredShopifyScopes are the Admin API scopes a source shop must grant
var RequiredShopifyScopes = []string{
	"write_customers",
	"read_customers",
	"write_orders",
	"read_orders",
	"write_products",
	"read_products",
	"read_publications",
}

// CredentialsService hands out valid platform tokens and checks App credentials
type CredentialsService struct {
	appRepo    ports.AppRepository
	refreshers map[domain.Platform]ports.TokenRefresher
	shopify    ports.ShopifyClient
	hubspot    ports.HubSpotClient
	logger     zerolog.Logger
	now        func() time.Time

	// refreshed holds credentials renewed in this process, keyed by App ID.
	// Callers share *domain.App values, so a refresh never writes back into them.
	mu           sync.Mutex
	refreshLocks map[string]*sync.Mutex
	refreshed    map[string]domain.PlatformCredential
}

var (
	_ ports.CredentialProvider = (*CredentialsService)(nil)
	_ PairingValidator         = (*CredentialsService)(nil)
)

// NewCredentialsService creates a new credentials service
func NewCredentialsService(
	appRepo ports.AppRepository,
	refreshers map[domain.Platform]ports.TokenRefresher,
	shopify ports.ShopifyClient,
	hubspot ports.HubSpotClient,
	logger zerolog.Logger,
) *CredentialsService {
	return &CredentialsService{
		appRepo:      appRepo,
		refreshers:   refreshers,
		shopify:      shopify,
		hubspot:      hubspot,
		logger:       logger,
		now:          time.Now,
		refreshLocks: make(map[string]*sync.Mutex),
		refreshed:    make(map[string]domain.PlatformCredential),
	}
}

// GetValidToken returns the App's access token, refreshing and persisting it first when stale.
// Concurrent callers for the same App wait on a single refresh.
func (s *CredentialsService) GetValidToken(ctx context.Context, app *domain.App) (string, error) {
	if app.Credentials == nil {
		return "", fmt.Errorf("%w: app %s has no credentials", domain.ErrUnauthorized, app.ID)
	}
	if !app.Credentials.NeedsRefresh(s.now()) {
		return app.Credentials.AccessToken(), nil
	}

	refresher, ok := s.refreshers[app.Platform]
	if !ok {
		return "", fmt.Errorf("%w: no token refresher for platform %s", domain.ErrUnauthorized, app.Platform)
	}

	lock := s.refreshLock(app.ID)
	lock.Lock()
	defer lock.Unlock()

	current := app.Credentials
	if cached := s.cachedCredentials(app.ID); cached != nil {
		if !cached.NeedsRefresh(s.now()) {
			return cached.AccessToken(), nil
		}
		// the cached copy carries the most recently rotated refresh token
		current = cached
	}

	fresh, err := refresher.Refresh(ctx, current)
	if err != nil {
		s.logger.Warn().Err(err).Str("app_id", app.ID).Str("platform", string(app.Platform)).Msg("Token refresh failed")
		return "", fmt.Errorf("%w: failed to refresh token for app %s: %v", domain.ErrUnauthorized, app.ID, err)
	}

	if err := s.appRepo.UpdateCredentials(ctx, app.ID, fresh); err != nil {
		return "", fmt.Errorf("failed to persist refreshed credentials: %w", err)
	}
	s.storeCredentials(app.ID, fresh)

	s.logger.Debug().Str("app_id", app.ID).Str("platform", string(app.Platform)).Msg("Refreshed access token")
	return fresh.AccessToken(), nil
}

func (s *CredentialsService) refreshLock(appID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.refreshLocks[appID]
	if !ok {
		lock = &sync.Mutex{}
		s.refreshLocks[appID] = lock
	}
	return lock
}

func (s *CredentialsService) cachedCredentials(appID string) domain.PlatformCredential {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshed[appID]
}

func (s *CredentialsService) storeCredentials(appID string, creds domain.PlatformCredential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshed[appID] = creds
}

// ValidatePairing checks the source shop's permissions and the target token
func (s *CredentialsService) ValidatePairing(ctx context.Context, p *domain.Pairing) error {
	if err := requireShopifyToHubSpot(p); err != nil {
		return err
	}
	if err := s.ValidateShopifyScopes(ctx, p.Source); err != nil {
		return err
	}
	return s.ValidateHubSpotToken(ctx, p.Target)
}

// ValidateShopifyScopes fails with ErrBadRequest when the shop lacks any required scope
func (s *CredentialsService) ValidateShopifyScopes(ctx context.Context, app *domain.App) error {
	creds, err := domain.ShopifyCredentialsOf(app)
	if err != nil {
		return err
	}

	granted, err := s.shopify.GetAccessScopes(ctx, creds)
	if err != nil {
		return fmt.Errorf("%w: failed to read shopify access scopes: %v", domain.ErrUnauthorized, err)
	}

	have := make(map[string]struct{}, len(granted))
	for _, scope := range granted {
		have[scope] = struct{}{}
	}
	var missing []string
	for _, scope := range RequiredShopifyScopes {
		if _, ok := have[scope]; !ok {
			missing = append(missing, scope)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: shopify app %s is missing scopes: %s", domain.ErrBadRequest, app.ID, strings.Join(missing, ", "))
	}
	return nil
}

// ValidateHubSpotToken fails with ErrUnauthorized when HubSpot rejects the App's token
func (s *CredentialsService) ValidateHubSpotToken(ctx context.Context, app *domain.App) error {
	if _, err := domain.HubspotCredentialsOf(app); err != nil {
		return err
	}
	token, err := s.GetValidToken(ctx, app)
	if err != nil {
		return err
	}
	if err := s.hubspot.ValidateToken(ctx, token); err != nil {
		return fmt.Errorf("failed to validate hubspot token: %w", err)
	}
	return nil
}
