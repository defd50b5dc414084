package ports

import (
	"context"

	"shopify-hubspot-sync/internal/domain"
)

// AppRepository defines persistence for platform Apps
type AppRepository interface {
	GetApp(ctx context.Context, id string) (*domain.App, error)
	ListAppsByUser(ctx context.Context, userID string) ([]*domain.App, error)
	SaveApp(ctx context.Context, app *domain.App) error
	UpdateCredentials(ctx context.Context, appID string, creds domain.PlatformCredential) error
	SetActive(ctx context.Context, appID string, active bool) error
	AddWebhookIDs(ctx context.Context, appID string, webhookIDs []string) error
	ClearWebhookIDs(ctx context.Context, appID string) error
}

// ConnectRepository defines persistence for Connect pairings.
// IncrementCounter must be an atomic store-side increment.
type ConnectRepository interface {
	Create(ctx context.Context, connect *domain.Connect) error
	Get(ctx context.Context, id string) (*domain.Connect, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Connect, error)
	FindPair(ctx context.Context, userID string, appA string, appB string) (*domain.Connect, error)
	CountByApp(ctx context.Context, appID string) (int64, error)
	SetActive(ctx context.Context, id string, active bool) error
	SetSyncing(ctx context.Context, id string, syncing bool) error
	SetSyncMetafield(ctx context.Context, id string, enabled bool) error
	UpdateName(ctx context.Context, id string, name string) error
	ResetCounters(ctx context.Context, id string, counters []domain.Counter) error
	IncrementCounter(ctx context.Context, id string, counter domain.Counter) error
	SoftDelete(ctx context.Context, id string) error
}

// FieldRepository defines persistence for discovered custom fields
type FieldRepository interface {
	GetField(ctx context.Context, id string) (*domain.Field, error)
	ListFields(ctx context.Context, ids []string) ([]*domain.Field, error)
	ListScoped(ctx context.Context, appID string, connectID string, module domain.ModuleType) ([]*domain.Field, error)
	InsertFields(ctx context.Context, fields []*domain.Field) error
	DeleteFields(ctx context.Context, ids []string) error
	UpdateMapping(ctx context.Context, id string, isUsed bool, mappingField string) error
}

// ModuleAppRepository defines persistence for per-App module field inventories
type ModuleAppRepository interface {
	GetModuleApp(ctx context.Context, appID string, module domain.ModuleType) (*domain.ModuleApp, error)
	SaveModuleApp(ctx context.Context, moduleApp *domain.ModuleApp) error
}

// SyncLogRepository defines persistence for record sync outcomes
type SyncLogRepository interface {
	LogSync(ctx context.Context, entry *domain.SyncLog) error
}
