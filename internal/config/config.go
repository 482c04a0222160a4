// Package config handles loading and validating configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the partner report engine.
type Config struct {
	// Dataset sources, first configured wins: MySQL, then REST, then the
	// static JSON document.
	MySQLDSN    string
	APIBaseURL  string
	DatasetPath string

	// Upstream fetch
	HTTPTimeout time.Duration

	// Cache behavior
	FreshWindow    time.Duration
	StaleTolerance time.Duration
	MemoExpiry     time.Duration

	// Durable snapshot storage (empty disables persistence)
	SnapshotPath string

	// HTTP server
	Port        int
	CORSOrigins []string

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables with fallback to .env file.
// Priority order: Environment variables > .env file > hardcoded defaults
func Load() (*Config, error) {
	// Attempt to load .env file (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		MySQLDSN:    getEnv("MYSQL_DSN", ""),
		APIBaseURL:  getEnv("API_BASE_URL", ""),
		DatasetPath: getEnv("DATASET_PATH", "./database.json"),

		HTTPTimeout: time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 10)) * time.Second,

		FreshWindow:    time.Duration(getEnvInt("CACHE_FRESH_MINUTES", 5)) * time.Minute,
		StaleTolerance: time.Duration(getEnvInt("CACHE_STALE_MINUTES", 10)) * time.Minute,
		MemoExpiry:     time.Duration(getEnvInt("MEMO_EXPIRY_MINUTES", 5)) * time.Minute,

		SnapshotPath: getEnv("SNAPSHOT_DB_PATH", "./data/snapshot.db"),

		Port:        getEnvInt("PORT", 8080),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "")),

		LogLevel: getEnv("LOG_LEVEL", "INFO"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set and valid.
func (c *Config) Validate() error {
	if c.MySQLDSN == "" && c.APIBaseURL == "" && c.DatasetPath == "" {
		return fmt.Errorf("at least one of MYSQL_DSN, API_BASE_URL or DATASET_PATH is required")
	}

	if c.FreshWindow <= 0 {
		return fmt.Errorf("CACHE_FRESH_MINUTES must be positive")
	}

	if c.StaleTolerance < c.FreshWindow {
		return fmt.Errorf("CACHE_STALE_MINUTES must be at least CACHE_FRESH_MINUTES")
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	return nil
}

// MaskedMySQLDSN returns the DSN with credentials hidden for logging.
func (c *Config) MaskedMySQLDSN() string {
	return maskSecret(c.MySQLDSN)
}

// maskSecret hides all but the first and last 4 characters of a secret.
func maskSecret(s string) string {
	if len(s) <= 8 {
		if len(s) == 0 {
			return "(not set)"
		}
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

// splitList parses a comma-separated list, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an environment variable as an integer or returns a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
