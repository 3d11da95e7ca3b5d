package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the quiz player
type Config struct {
	Server   ServerConfig
	Content  ContentConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Catalog  CatalogConfig
	Locales  LocalesConfig
	Cleanup  CleanupConfig
	Events   EventsConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

// ContentConfig holds the quiz content service settings
type ContentConfig struct {
	APIURL  string
	Timeout time.Duration
	HomeURL string
}

// DatabaseConfig holds PostgreSQL configuration. An empty DSN keeps attempts in memory.
type DatabaseConfig struct {
	DSN           string
	MaxConns      int
	MigrationsDir string
}

// RedisConfig holds Redis configuration. An empty address keeps flags and cache in memory.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// CatalogConfig holds catalog listing configuration
type CatalogConfig struct {
	CacheTTL time.Duration
	PageSize int
}

// LocalesConfig holds localization configuration
type LocalesConfig struct {
	Dir         string
	DefaultLang string
}

// CleanupConfig holds cleanup worker configuration
type CleanupConfig struct {
	Interval time.Duration
	IdleTTL  time.Duration
}

// EventsConfig holds configuration for event publishing
type EventsConfig struct {
	Enabled       bool
	Publisher     string // kafka or log
	KafkaBrokers  string
	AttemptsTopic string
}

// Brokers returns Kafka brokers as a slice
func (c EventsConfig) Brokers() []string {
	var brokers []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// Load loads configuration from a .env file, when present, and environment variables
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
		},
		Content: ContentConfig{
			APIURL:  getEnv("CONTENT_API_URL", "http://localhost:8000/api"),
			Timeout: getEnvAsDuration("CONTENT_TIMEOUT", 15*time.Second),
			HomeURL: getEnv("HOME_URL", "http://localhost:8000/"),
		},
		Database: DatabaseConfig{
			DSN:           getEnv("DATABASE_DSN", ""),
			MaxConns:      getEnvAsInt("DATABASE_MAX_CONNS", 10),
			MigrationsDir: getEnv("MIGRATIONS_DIR", ""),
		},
		Redis: RedisConfig{
			Address:  getEnv("REDIS_ADDRESS", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Catalog: CatalogConfig{
			CacheTTL: getEnvAsDuration("CATALOG_CACHE_TTL", 10*time.Minute),
			PageSize: getEnvAsInt("CATALOG_PAGE_SIZE", 8),
		},
		Locales: LocalesConfig{
			Dir:         getEnv("LOCALES_DIR", ""),
			DefaultLang: getEnv("DEFAULT_LANG", "en"),
		},
		Cleanup: CleanupConfig{
			Interval: getEnvAsDuration("CLEANUP_INTERVAL", 5*time.Minute),
			IdleTTL:  getEnvAsDuration("VIEW_IDLE_TTL", time.Hour),
		},
		Events: EventsConfig{
			Enabled:       getEnvAsBool("EVENTS_ENABLED", false),
			Publisher:     getEnv("EVENTS_PUBLISHER", "log"),
			KafkaBrokers:  getEnv("KAFKA_BROKERS", "localhost:9092"),
			AttemptsTopic: getEnv("ATTEMPTS_TOPIC", "quiz-attempts"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	u, err := url.Parse(c.Content.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid content API URL: %q", c.Content.APIURL)
	}

	if c.Catalog.PageSize < 1 {
		return fmt.Errorf("invalid catalog page size: %d", c.Catalog.PageSize)
	}

	if c.Cleanup.Interval <= 0 {
		return fmt.Errorf("cleanup interval must be positive")
	}

	if c.Events.Enabled && c.Events.Publisher == "kafka" && len(c.Events.Brokers()) == 0 {
		return fmt.Errorf("kafka brokers are required when kafka publishing is enabled")
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
