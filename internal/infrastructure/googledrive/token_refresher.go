package googledrive

import (
	"context"
	"fmt"

	"shopify-hubspot-sync/internal/domain"
	"shopify-hubspot-sync/internal/ports"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

// TokenRefresher renews Google Drive access tokens with the stored refresh token
type TokenRefresher struct {
	config *oauth2.Config
}

var _ ports.TokenRefresher = (*TokenRefresher)(nil)

// NewTokenRefresher creates a refresher for the given OAuth client
func NewTokenRefresher(clientID, clientSecret string) *TokenRefresher {
	return &TokenRefresher{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     endpoints.Google,
		},
	}
}

// NewTokenRefresherWithEndpoint is NewTokenRefresher against a custom token URL
func NewTokenRefresherWithEndpoint(clientID, clientSecret, tokenURL string) *TokenRefresher {
	r := NewTokenRefresher(clientID, clientSecret)
	r.config.Endpoint = oauth2.Endpoint{TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleInParams}
	return r
}

func (r *TokenRefresher) Refresh(ctx context.Context, creds domain.PlatformCredential) (domain.PlatformCredential, error) {
	gd, ok := creds.(*domain.GoogleDriveCredentials)
	if !ok || gd == nil {
		return nil, fmt.Errorf("%w: expected google drive credentials, got %T", domain.ErrBadRequest, creds)
	}
	if gd.RefreshToken == "" {
		return nil, fmt.Errorf("%w: google drive app has no refresh token", domain.ErrUnauthorized)
	}

	// Without an access token the source always goes to the token endpoint
	src := r.config.TokenSource(ctx, &oauth2.Token{RefreshToken: gd.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: google drive token refresh: %v", domain.ErrUnauthorized, err)
	}

	refreshed := *gd
	refreshed.Token = tok.AccessToken
	if tok.RefreshToken != "" {
		refreshed.RefreshToken = tok.RefreshToken
	}
	refreshed.Expiry = tok.Expiry
	return &refreshed, nil
}
