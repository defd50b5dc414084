package ports

import (
	"context"
	"time"

	"shopify-hubspot-sync/internal/domain"
)

// TokenRefresher exchanges a stale credential for a fresh one on one platform
type TokenRefresher interface {
	Refresh(ctx context.Context, creds domain.PlatformCredential) (domain.PlatformCredential, error)
}

// CredentialProvider hands out valid access tokens, refreshing them in place when needed
type CredentialProvider interface {
	GetValidToken(ctx context.Context, app *domain.App) (string, error)
}

// TaskQueue runs detached background work with its own error reporting
type TaskQueue interface {
	Submit(name string, task func(ctx context.Context) error) bool
}

// Locker serializes work on one key across processes
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func() error) error
}

// StatusPublisher receives Connect progress snapshots
type StatusPublisher interface {
	Publish(status *domain.ConnectStatus)
}
