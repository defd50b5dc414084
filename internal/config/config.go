package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds process configuration read from the environment
type Config struct {
	Port     string
	AppURL   string
	LogLevel zerolog.Level

	MongoURI      string
	MongoDatabase string

	RedisAddr     string
	RedisPassword string

	ShopifyAPIKey     string
	ShopifyAPISecret  string
	ShopifyAPIVersion string

	HubSpotClientID     string
	HubSpotClientSecret string
	HubSpotBaseURL      string

	GoogleClientID     string
	GoogleClientSecret string

	Batch BatchConfig

	// Background pool serves webhook deliveries
	BackgroundWorkers   int
	BackgroundQueueSize int

	// Hook pool serves post-sync hooks; a full queue blocks the submitter up to HookSubmitTimeout
	HookWorkers       int
	HookQueueSize     int
	HookSubmitTimeout time.Duration

	HTTPTimeout time.Duration
}

// BatchConfig sets migration batch sizes and inter-batch delays
type BatchConfig struct {
	CommonSize    int
	OrderSize     int
	CustomerDelay time.Duration
	ProductDelay  time.Duration
	OrderDelay    time.Duration
}

// DefaultBatchConfig returns the pacing used against HubSpot rate limits
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		CommonSize:    5,
		OrderSize:     2,
		CustomerDelay: 400 * time.Millisecond,
		ProductDelay:  500 * time.Millisecond,
		OrderDelay:    8 * time.Second,
	}
}

// Load reads .env (if present) and the process environment
func Load(logger zerolog.Logger) *Config {
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("Warning: .env file not found")
	}

	defaults := DefaultBatchConfig()
	level, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		level = zerolog.InfoLevel
	}

	return &Config{
		Port:     getEnv("PORT", "8080"),
		AppURL:   getEnv("APP_URL", "http://localhost:8080"),
		LogLevel: level,

		MongoURI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGODB_DATABASE", "sync"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		ShopifyAPIKey:     os.Getenv("SHOPIFY_API_KEY"),
		ShopifyAPISecret:  os.Getenv("SHOPIFY_API_SECRET"),
		ShopifyAPIVersion: getEnv("SHOPIFY_API_VERSION", "2025-04"),

		HubSpotClientID:     os.Getenv("HUBSPOT_CLIENT_ID"),
		HubSpotClientSecret: os.Getenv("HUBSPOT_CLIENT_SECRET"),
		HubSpotBaseURL:      getEnv("HUBSPOT_BASE_URL", "https://api.hubapi.com"),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),

		Batch: BatchConfig{
			CommonSize:    getInt("BATCH_SIZE_COMMON", defaults.CommonSize),
			OrderSize:     getInt("BATCH_SIZE_ORDER", defaults.OrderSize),
			CustomerDelay: getDuration("BATCH_DELAY_CUSTOMER", defaults.CustomerDelay),
			ProductDelay:  getDuration("BATCH_DELAY_PRODUCT", defaults.ProductDelay),
			OrderDelay:    getDuration("BATCH_DELAY_ORDER", defaults.OrderDelay),
		},

		BackgroundWorkers:   getInt("BACKGROUND_WORKERS", 4),
		BackgroundQueueSize: getInt("BACKGROUND_QUEUE_SIZE", 256),

		HookWorkers:       getInt("HOOK_WORKERS", 4),
		HookQueueSize:     getInt("HOOK_QUEUE_SIZE", 1024),
		HookSubmitTimeout: getDuration("HOOK_SUBMIT_TIMEOUT", 30*time.Second),

		HTTPTimeout: getDuration("HTTP_TIMEOUT", 30*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
