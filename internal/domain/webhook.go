package domain

// WebhookEvent is one verified Shopify webhook delivery resolved to its Connect
type WebhookEvent struct {
	Topic   string
	Shop    string
	Payload []byte
	Pairing *Pairing
}
