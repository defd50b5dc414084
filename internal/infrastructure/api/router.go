package api

import (
	"context"
	"encoding/json"
	"net/http"

	"shopify-hubspot-sync/internal/application"
	"shopify-hubspot-sync/internal/domain"
	"shopify-hubspot-sync/internal/infrastructure/pubsub"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
)

// ConnectManager is the Connect lifecycle used by the HTTP layer
type ConnectManager interface {
	CreateNewConnect(ctx context.Context, userID, name, fromAppID, toAppID string) (*domain.Connect, error)
	List(ctx context.Context, userID string) ([]*domain.Connect, error)
	Get(ctx context.Context, userID, connectID string) (*domain.Connect, error)
	UpdateName(ctx context.Context, userID, connectID, name string) (*domain.Connect, error)
	Enable(ctx context.Context, userID, connectID string) (*domain.Connect, error)
	Disable(ctx context.Context, userID, connectID string) (*domain.Connect, error)
	SoftDelete(ctx context.Context, userID, connectID string) error
}

// Migrator starts bulk migrations
type Migrator interface {
	Migrate(ctx context.Context, userID, connectID string, module domain.ModuleType, filter domain.DateFilter) error
}

// FieldManager discovers and creates custom fields
type FieldManager interface {
	GetFields(ctx context.Context, userID, appID, connectID string, module domain.ModuleType) ([]*domain.Field, error)
	SyncFieldsInModule(ctx context.Context, userID, appID, connectID string, module domain.ModuleType) ([]*domain.Field, error)
	CreateCustomField(ctx context.Context, userID, appID, connectID string, module domain.ModuleType, name, description string) ([]*domain.Field, error)
	ToggleMetafieldSync(ctx context.Context, userID, connectID string) (bool, error)
}

// FieldMapper links and unlinks fields
type FieldMapper interface {
	Associate(ctx context.Context, userID, fromID, toID string) error
	Release(ctx context.Context, userID, fieldID string) error
}

// WebhookReceiver accepts verified webhook deliveries
type WebhookReceiver interface {
	Receive(ctx context.Context, target application.WebhookTarget, topic, shop string, payload []byte) error
}

// WebhookVerifier authenticates webhook deliveries
type WebhookVerifier interface {
	Verify(r *http.Request) bool
}

// StatusSubscriber opens live status subscriptions
type StatusSubscriber interface {
	Subscribe(ctx context.Context, connectID string) *pubsub.StatusChannel
}

// Services bundles what the HTTP handlers call into
type Services struct {
	Connects   ConnectManager
	Migrations Migrator
	Fields     FieldManager
	Mappings   FieldMapper
	Webhooks   WebhookReceiver
	Verifier   WebhookVerifier
	Status     StatusSubscriber
}

// NewRouter builds the HTTP routes
func NewRouter(s Services, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, "./docs/swagger.json")
	})

	// Webhook endpoint: POST /webhook/{segment}/{fromApp}/{toApp}/{connectId}
	r.Post("/webhook/{segment}/{fromApp}/{toApp}/{connectId}", webhookHandler(s.Webhooks, s.Verifier, logger))

	// Routes requiring a user
	r.Group(func(r chi.Router) {
		r.Use(userIDMiddleware)

		r.Post("/connects", createConnectHandler(s.Connects, logger))
		r.Get("/connects", listConnectsHandler(s.Connects, logger))
		r.Get("/connects/{id}", getConnectHandler(s.Connects, logger))
		r.Patch("/connects/{id}/name", renameConnectHandler(s.Connects, logger))
		r.Post("/connects/{id}/enable", enableConnectHandler(s.Connects, logger))
		r.Post("/connects/{id}/disable", disableConnectHandler(s.Connects, logger))
		r.Delete("/connects/{id}", deleteConnectHandler(s.Connects, logger))
		r.Post("/connects/{id}/migrate", migrateHandler(s.Migrations, s.Connects, logger))
		r.Post("/connects/{id}/metafield-sync/toggle", toggleMetafieldSyncHandler(s.Fields, logger))
		r.Get("/connects/{id}/stream", statusStreamHandler(s.Connects, s.Status, logger))

		r.Get("/apps/{appId}/fields", listFieldsHandler(s.Fields, logger))
		r.Post("/apps/{appId}/fields/sync", syncFieldsHandler(s.Fields, logger))
		r.Post("/apps/{appId}/fields", createFieldHandler(s.Fields, logger))

		r.Post("/fields/associate", associateFieldsHandler(s.Mappings, logger))
		r.Post("/fields/{id}/release", releaseFieldHandler(s.Mappings, logger))
	})

	return r
}
