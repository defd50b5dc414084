package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopify-hubspot-sync/internal/application"
	"shopify-hubspot-sync/internal/application/webhook_handlers"
	"shopify-hubspot-sync/internal/config"
	"shopify-hubspot-sync/internal/domain"
	apiinfra "shopify-hubspot-sync/internal/infrastructure/api"
	"shopify-hubspot-sync/internal/infrastructure/googledrive"
	"shopify-hubspot-sync/internal/infrastructure/hubspot"
	"shopify-hubspot-sync/internal/infrastructure/pubsub"
	"shopify-hubspot-sync/internal/infrastructure/redislock"
	"shopify-hubspot-sync/internal/infrastructure/repository"
	shopifyinfra "shopify-hubspot-sync/internal/infrastructure/shopify"
	"shopify-hubspot-sync/internal/infrastructure/worker"
	"shopify-hubspot-sync/internal/ports"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	cfg := config.Load(logger)
	logger = logger.Level(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to MongoDB
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer client.Disconnect(context.Background())

	db := client.Database(cfg.MongoDatabase)

	// Initialize repositories
	appRepo := repository.NewMongoAppRepository(db)
	connectRepo := repository.NewMongoConnectRepository(db)
	fieldRepo := repository.NewMongoFieldRepository(db)
	syncLogRepo := repository.NewMongoSyncLogRepository(db)

	if err := connectRepo.EnsureIndexes(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to create connect indexes")
	}
	if err := fieldRepo.EnsureIndexes(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to create field indexes")
	}

	// Platform clients
	shopifyClient := shopifyinfra.NewClient(
		cfg.ShopifyAPIKey,
		cfg.ShopifyAPISecret,
		cfg.ShopifyAPIVersion,
		logger,
		shopifyinfra.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
	)
	hubspotClient := hubspot.NewClient(cfg.HubSpotBaseURL, logger, hubspot.WithTimeout(cfg.HTTPTimeout))

	refreshers := map[domain.Platform]ports.TokenRefresher{
		domain.PlatformHubSpot:     hubspot.NewTokenRefresher(hubspotClient, cfg.HubSpotClientID, cfg.HubSpotClientSecret),
		domain.PlatformGoogleDrive: googledrive.NewTokenRefresher(cfg.GoogleClientID, cfg.GoogleClientSecret),
	}
	credentialsService := application.NewCredentialsService(appRepo, refreshers, shopifyClient, hubspotClient, logger)

	// Webhook deliveries and post-sync hooks run on separate bounded pools, so
	// hooks queued by a migration never crowd out incoming webhooks
	webhookPool := worker.NewPool(cfg.BackgroundWorkers, cfg.BackgroundQueueSize, logger)
	hookPool := worker.NewPool(cfg.HookWorkers, cfg.HookQueueSize, logger.With().Str("pool", "hooks").Logger(),
		worker.WithSubmitTimeout(cfg.HookSubmitTimeout))

	// Migration lock is optional; without Redis, migrations only rely on the isSyncing flag
	var locker ports.Locker
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Msg("Redis unreachable, migration lock disabled")
		} else {
			locker = redislock.NewLocker(rdb, "sync:migration:", logger)
		}
	}

	// Initialize application services
	syncService := application.NewSyncService(hubspotClient, credentialsService, connectRepo, syncLogRepo, hookPool, logger)
	fieldMappingService := application.NewFieldMappingService(fieldRepo, logger)
	metafieldService := application.NewMetafieldService(
		appRepo,
		connectRepo,
		fieldRepo,
		fieldRepo,
		shopifyClient,
		hubspotClient,
		credentialsService,
		fieldMappingService,
		logger,
	)
	enrichmentService := application.NewEnrichmentService(shopifyClient, hubspotClient, credentialsService, logger)
	syncService.AddHook("metafields", metafieldService)
	syncService.AddHook("enrichment", enrichmentService)

	migrationService := application.NewMigrationService(
		connectRepo,
		appRepo,
		shopifyClient,
		syncService,
		credentialsService,
		locker,
		cfg.Batch,
		logger,
	)
	connectService := application.NewConnectService(connectRepo, appRepo, shopifyClient, credentialsService, cfg.AppURL, logger)

	// Initialize webhook dispatcher and register handlers
	webhookDispatcher := application.NewWebhookDispatcher(connectRepo, appRepo, webhookPool, logger)
	webhookDispatcher.RegisterHandler(webhook_handlers.NewCustomerHandler(syncService, logger))
	webhookDispatcher.RegisterHandler(webhook_handlers.NewProductHandler(syncService, logger))
	webhookDispatcher.RegisterHandler(webhook_handlers.NewOrderHandler(syncService, logger))
	webhookDispatcher.RegisterHandler(webhook_handlers.NewAppUninstalledHandler(connectService, logger))

	// Live status: Mongo change stream into the in-process pub/sub
	statusPubSub := pubsub.NewStatusPubSub(logger)
	go func() {
		if err := repository.NewStatusWatcher(db, statusPubSub, logger).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("Status watcher stopped")
		}
	}()

	router := apiinfra.NewRouter(apiinfra.Services{
		Connects:   connectService,
		Migrations: migrationService,
		Fields:     metafieldService,
		Mappings:   fieldMappingService,
		Webhooks:   webhookDispatcher,
		Verifier:   shopifyinfra.NewWebhookVerifier(cfg.ShopifyAPISecret),
		Status:     statusPubSub,
	}, logger)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("Starting API server")
		logger.Info().Msg("Swagger documentation available at http://localhost:" + cfg.Port + "/swagger/index.html")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}
	// webhook tasks submit hooks, so drain them first
	webhookPool.Close()
	hookPool.Close()
}
