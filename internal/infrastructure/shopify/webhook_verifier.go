package shopify

import (
	"net/http"

	goshopify "github.com/bold-commerce/go-shopify/v4"
)

// WebhookVerifier checks the HMAC signature Shopify puts on webhook deliveries
type WebhookVerifier struct {
	app goshopify.App
}

// NewWebhookVerifier creates a verifier for the app's shared secret
func NewWebhookVerifier(apiSecret string) *WebhookVerifier {
	return &WebhookVerifier{app: goshopify.App{ApiSecret: apiSecret}}
}

// Verify reports whether the request carries a valid X-Shopify-Hmac-Sha256
// header. The request body stays readable afterwards.
func (v *WebhookVerifier) Verify(r *http.Request) bool {
	return v.app.VerifyWebhookRequest(r)
}
