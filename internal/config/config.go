package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Inventory backends selectable through INVENTORY_SOURCE.
const (
	InventoryDatabase = "database"
	InventorySupabase = "supabase"
	InventoryMongo    = "mongo"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Relational store
	DatabaseDriver string // postgres | sqlite
	DatabaseDSN    string
	DBAutoMigrate  bool
	DBDebug        bool

	// Inventory backend: database | supabase | mongo
	InventorySource string

	// Supabase
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string

	// MongoDB
	MongoURI      string
	MongoDatabase string

	// Domain events (disabled when AMQPURL is empty)
	AMQPURL      string
	AMQPExchange string

	// Identity provider token verification (HS256)
	IdentityJWTSecret string

	// Business clock
	Timezone string

	// Read models
	DashboardCacheTTL time.Duration
	StaleProspectDays int

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Observability
	OTLPEndpoint string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseDriver: strings.ToLower(getEnv("DATABASE_DRIVER", "sqlite")),
		DatabaseDSN:    getEnv("DATABASE_DSN", ""),
		DBAutoMigrate:  getEnvBool("DB_AUTO_MIGRATE", true),
		DBDebug:        getEnvBool("DB_DEBUG", false),

		InventorySource: strings.ToLower(strings.TrimSpace(getEnv("INVENTORY_SOURCE", InventoryDatabase))),

		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseAnonKey:    getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),

		MongoURI:      getEnv("MONGO_URI", ""),
		MongoDatabase: getEnv("MONGO_DATABASE", "pipeline"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "pipeline.events"),

		IdentityJWTSecret: getEnv("IDENTITY_JWT_SECRET", ""),

		Timezone: getEnv("TIMEZONE", "America/Mexico_City"),

		DashboardCacheTTL: getEnvDuration("DASHBOARD_CACHE_TTL", 30*time.Second),
		StaleProspectDays: getEnvInt("STALE_PROSPECT_DAYS", 7),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 50),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
}

// Location resolves Timezone, falling back to UTC when the zone database
// does not know it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
