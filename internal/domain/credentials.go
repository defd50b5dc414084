package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	// HubspotTokenTTL is how long a HubSpot access token is trusted after it was stored
	HubspotTokenTTL = 20 * time.Minute
	// GoogleExpiryMargin refreshes Drive tokens this long before they actually expire
	GoogleExpiryMargin = 60 * time.Second
)

// PlatformCredential is the platform-specific credential blob stored on an App
type PlatformCredential interface {
	Platform() Platform
	AccessToken() string
	NeedsRefresh(now time.Time) bool
}

// ShopifyCredentials holds an offline Admin API token for one shop
type ShopifyCredentials struct {
	ShopURL string   `json:"shopUrl" bson:"shopUrl"`
	Token   string   `json:"accessToken" bson:"accessToken"`
	Scopes  []string `json:"scopes,omitempty" bson:"scopes,omitempty"`
}

func (c *ShopifyCredentials) Platform() Platform          { return PlatformShopify }
func (c *ShopifyCredentials) AccessToken() string         { return c.Token }
func (c *ShopifyCredentials) NeedsRefresh(time.Time) bool { return false }

// ShopDomain returns the shop host without scheme or trailing slash
func (c *ShopifyCredentials) ShopDomain() string {
	d := strings.TrimPrefix(c.ShopURL, "https://")
	d = strings.TrimPrefix(d, "http://")
	return strings.TrimSuffix(d, "/")
}

// HubspotCredentials holds an OAuth token pair for one HubSpot portal
type HubspotCredentials struct {
	Token        string    `json:"accessToken" bson:"accessToken"`
	RefreshToken string    `json:"refreshToken" bson:"refreshToken"`
	HubID        string    `json:"hubId" bson:"hubId"`
	Prefix       string    `json:"prefix" bson:"prefix"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updatedAt"`
}

func (c *HubspotCredentials) Platform() Platform  { return PlatformHubSpot }
func (c *HubspotCredentials) AccessToken() string { return c.Token }

func (c *HubspotCredentials) NeedsRefresh(now time.Time) bool {
	return c.UpdatedAt.IsZero() || now.Sub(c.UpdatedAt) > HubspotTokenTTL
}

// KeyPrefix is the lower-cased naming prefix used for namespaced properties
func (c *HubspotCredentials) KeyPrefix() string {
	return strings.ToLower(c.Prefix)
}

// GoogleDriveCredentials holds an OAuth token pair for a Drive account
type GoogleDriveCredentials struct {
	Token        string    `json:"accessToken" bson:"accessToken"`
	RefreshToken string    `json:"refreshToken" bson:"refreshToken"`
	Expiry       time.Time `json:"expiryDate" bson:"expiryDate"`
}

func (c *GoogleDriveCredentials) Platform() Platform  { return PlatformGoogleDrive }
func (c *GoogleDriveCredentials) AccessToken() string { return c.Token }

func (c *GoogleDriveCredentials) NeedsRefresh(now time.Time) bool {
	return c.Expiry.Before(now.Add(GoogleExpiryMargin))
}

// ShopifyCredentialsOf returns the Shopify credentials of an App or an error if the App is on another platform
func ShopifyCredentialsOf(app *App) (*ShopifyCredentials, error) {
	creds, ok := app.Credentials.(*ShopifyCredentials)
	if !ok || creds == nil {
		return nil, fmt.Errorf("%w: app %s has no shopify credentials", ErrBadRequest, app.ID)
	}
	return creds, nil
}

// HubspotCredentialsOf returns the HubSpot credentials of an App or an error if the App is on another platform
func HubspotCredentialsOf(app *App) (*HubspotCredentials, error) {
	creds, ok := app.Credentials.(*HubspotCredentials)
	if !ok || creds == nil {
		return nil, fmt.Errorf("%w: app %s has no hubspot credentials", ErrBadRequest, app.ID)
	}
	return creds, nil
}
