// Package config loads the service configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: field %q: %s", e.Field, e.Message)
}

// Config holds all configuration for the API service
type Config struct {
	// HTTP
	Port           int
	AllowedOrigins []string
	RequestTimeout time.Duration

	// Database. Postgres is used when DatabaseURL is set, SQLite otherwise.
	SQLiteDatabase string
	DatabaseURL    string

	// Line read cache
	LineCacheSize int
	LineCacheTTL  time.Duration

	// Optional YAML network applied to an empty database
	SeedFile string
}

// Load reads .env files and then configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	// Base .env first, then .env.local which overrides it for local development
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	cfg := &Config{
		Port:           getEnvInt("PORT", 8081),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 10*time.Second),

		SQLiteDatabase: getEnv("SQLITE_DATABASE", "./data/subway.db"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),

		LineCacheSize: getEnvInt("LINE_CACHE_SIZE", 1000),
		LineCacheTTL:  getEnvDuration("LINE_CACHE_TTL", 5*time.Minute),

		SeedFile: getEnv("SEED_FILE", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate re-checks fields on an already-constructed Config.
func (c *Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, &ConfigError{Field: "PORT", Message: "must be between 1 and 65535"})
	}
	if c.DatabaseURL == "" && c.SQLiteDatabase == "" {
		errs = append(errs, &ConfigError{Field: "SQLITE_DATABASE", Message: "required when DATABASE_URL is not set"})
	}
	if c.LineCacheSize < 1 {
		errs = append(errs, &ConfigError{Field: "LINE_CACHE_SIZE", Message: "must be positive"})
	}
	if c.LineCacheTTL <= 0 {
		errs = append(errs, &ConfigError{Field: "LINE_CACHE_TTL", Message: "must be positive"})
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, &ConfigError{Field: "REQUEST_TIMEOUT", Message: "must be positive"})
	}
	return errors.Join(errs...)
}

// UsePostgres reports whether the Postgres repository should be used
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go duration strings like "30s" or "5m".
// Falls back to defaultValue if the variable is unset or unparseable.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
