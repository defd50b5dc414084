package ports

import (
	"context"

	"shopify-hubspot-sync/internal/domain"
)

// ShopifyClient defines the source platform operations used by the sync engine
type ShopifyClient interface {
	// Bulk paging
	QueryPage(ctx context.Context, creds *domain.ShopifyCredentials, module domain.ModuleType, pageSize int, cursor string, filter domain.DateFilter) (*domain.Page, error)

	// Custom fields
	GetMetafields(ctx context.Context, creds *domain.ShopifyCredentials, module domain.ModuleType, recordID string) ([]domain.Metafield, error)
	GetMetafieldDefinitions(ctx context.Context, creds *domain.ShopifyCredentials, module domain.ModuleType) ([]domain.CatalogField, error)

	// Permissions
	GetAccessScopes(ctx context.Context, creds *domain.ShopifyCredentials) ([]string, error)

	// Webhook API
	CreateWebhook(ctx context.Context, creds *domain.ShopifyCredentials, topic string, address string) (string, error)
	DeleteWebhook(ctx context.Context, creds *domain.ShopifyCredentials, webhookID string) error

	// Enrichment lookups
	GetCustomerDetails(ctx context.Context, creds *domain.ShopifyCredentials, customerID string) (*domain.CustomerDetails, error)
	GetProductDetails(ctx context.Context, creds *domain.ShopifyCredentials, productID string) (*domain.ProductDetails, error)
	GetOrderDetails(ctx context.Context, creds *domain.ShopifyCredentials, orderID string) (*domain.OrderDetails, error)
}
