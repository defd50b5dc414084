package hubspot

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"shopify-hubspot-sync/internal/domain"
	"shopify-hubspot-sync/internal/infrastructure/metrics"
	"shopify-hubspot-sync/internal/ports"
)

// TokenRefresher exchanges a HubSpot refresh token for a new access token
type TokenRefresher struct {
	client       *Client
	clientID     string
	clientSecret string
	now          func() time.Time
}

var _ ports.TokenRefresher = (*TokenRefresher)(nil)

// NewTokenRefresher creates a refresher that posts to the OAuth token endpoint through client
func NewTokenRefresher(client *Client, clientID, clientSecret string) *TokenRefresher {
	return &TokenRefresher{
		client:       client,
		clientID:     clientID,
		clientSecret: clientSecret,
		now:          time.Now,
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

func (r *TokenRefresher) Refresh(ctx context.Context, creds domain.PlatformCredential) (domain.PlatformCredential, error) {
	hs, ok := creds.(*domain.HubspotCredentials)
	if !ok || hs == nil {
		return nil, fmt.Errorf("%w: expected hubspot credentials, got %T", domain.ErrBadRequest, creds)
	}
	if hs.RefreshToken == "" {
		return nil, fmt.Errorf("%w: hubspot app has no refresh token", domain.ErrUnauthorized)
	}

	var out tokenResponse
	resp, err := r.client.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type":    "refresh_token",
			"client_id":     r.clientID,
			"client_secret": r.clientSecret,
			"refresh_token": hs.RefreshToken,
		}).
		SetResult(&out).
		ForceContentType("application/json").
		Post("/oauth/v1/token")
	if err != nil {
		metrics.HubSpotRequestsTotal.WithLabelValues(http.MethodPost, "error").Inc()
		return nil, fmt.Errorf("%w: hubspot token refresh: %v", domain.ErrNetwork, err)
	}
	metrics.HubSpotRequestsTotal.WithLabelValues(http.MethodPost, strconv.Itoa(resp.StatusCode())).Inc()
	if resp.IsError() {
		return nil, fmt.Errorf("%w: hubspot token refresh: status %d", domain.ErrUnauthorized, resp.StatusCode())
	}
	if out.AccessToken == "" {
		return nil, fmt.Errorf("%w: hubspot token refresh returned no access token", domain.ErrUnauthorized)
	}

	refreshed := *hs
	refreshed.Token = out.AccessToken
	if out.RefreshToken != "" {
		refreshed.RefreshToken = out.RefreshToken
	}
	refreshed.UpdatedAt = r.now()
	return &refreshed, nil
}
