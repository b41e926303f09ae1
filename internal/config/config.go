package config

import (
	"os"
	"strconv"
	"time"

	"pierre/internal/database"
	"pierre/internal/eventdate"
	"pierre/internal/external"
	"pierre/internal/messaging"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration

	// Performance monitoring
	PprofEnabled   bool
	PprofPort      string
	MetricsEnabled bool
	MetricsPort    string

	Locale eventdate.Locale

	Database      database.Config
	NATS          messaging.Config
	Payment       external.PaymentConfig
	API           external.APIConfig
	Cache         CacheConfig
	Elasticsearch ElasticsearchConfig
	Auth          AuthConfig
	Expiry        ExpiryConfig
	Settlement    SettlementConfig
}

// CacheConfig points at the Valkey/Redis instance used for read caching
type CacheConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	EventTTL time.Duration
	CodeTTL  time.Duration
}

// AuthConfig configures bearer tokens and password hashing
type AuthConfig struct {
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int
}

// ExpiryConfig schedules the sweep that cancels unpaid reservations of past events
type ExpiryConfig struct {
	Schedule string
}

// SettlementConfig schedules the sweep that captures or releases payments
// whose settlement event was lost. Reservations changed less than Grace ago
// are left to the event consumers.
type SettlementConfig struct {
	Schedule string
	Grace    time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:           getEnv("PORT", "8081"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,

		PprofEnabled:   getEnv("PPROF_ENABLED", "false") == "true",
		PprofPort:      getEnv("PPROF_PORT", "6060"),
		MetricsEnabled: getEnv("METRICS_ENABLED", "true") == "true",
		MetricsPort:    getEnv("METRICS_PORT", "9091"),

		Locale: eventdate.ParseLocale(getEnv("LOCALE", "it")),

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "pierre"),
			Password:           getEnv("DB_PASSWORD", "pierre"),
			DBName:             getEnv("DB_NAME", "pierre"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		NATS: messaging.Config{
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "pierre"),
			ClientID:  getEnv("NATS_CLIENT_ID", "pierre-api"),
		},

		Payment: external.PaymentConfig{
			BaseURL:     getEnv("PAYMENT_GATEWAY_URL", "http://localhost:8090"),
			TeamSlug:    getEnv("PAYMENT_TEAM_SLUG", ""),
			Password:    getEnv("PAYMENT_PASSWORD", ""),
			Currency:    getEnv("PAYMENT_CURRENCY", "EUR"),
			Language:    getEnv("PAYMENT_LANGUAGE", "it"),
			CallbackURL: getEnv("PAYMENT_CALLBACK_URL", ""),
			Timeout:     time.Duration(getEnvInt("PAYMENT_TIMEOUT_SEC", 30)) * time.Second,
		},

		// The client never guesses its server; the base URL is always explicit.
		API: external.APIConfig{
			BaseURL: getEnv("PIERRE_API_URL", "http://localhost:8081/api"),
			Timeout: time.Duration(getEnvInt("PIERRE_API_TIMEOUT_SEC", 15)) * time.Second,
		},

		Cache: CacheConfig{
			Enabled:  getEnv("CACHE_ENABLED", "true") == "true",
			Addr:     getEnv("VALKEY_ADDR", "localhost:6379"),
			Password: getEnv("VALKEY_PASSWORD", ""),
			DB:       getEnvInt("VALKEY_DB", 0),
			EventTTL: time.Duration(getEnvInt("CACHE_EVENTS_TTL_SEC", 60)) * time.Second,
			CodeTTL:  time.Duration(getEnvInt("CACHE_RESERVATION_TTL_SEC", 30)) * time.Second,
		},

		Elasticsearch: LoadElasticsearchConfig(),

		Auth: AuthConfig{
			JWTSecret:  getEnv("JWT_SECRET", "change-me"),
			TokenTTL:   time.Duration(getEnvInt("JWT_TTL_MIN", 24*60)) * time.Minute,
			BcryptCost: getEnvInt("BCRYPT_COST", 10),
		},

		Expiry: ExpiryConfig{
			Schedule: getEnv("EXPIRY_SCHEDULE", "@every 15m"),
		},

		Settlement: SettlementConfig{
			Schedule: getEnv("SETTLEMENT_SCHEDULE", "@every 5m"),
			Grace:    getEnvDuration("SETTLEMENT_GRACE", 2*time.Minute),
		},
	}
}

// getEnv returns the variable or defaultValue when it is unset or empty
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the variable parsed as int or defaultValue
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration parses Go duration syntax such as "2s" or "1m30s"
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
