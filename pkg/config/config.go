// Package config reads process-level configuration from the
// environment. Model parameters (windows, thresholds, weights) are not
// configuration; they live in internal/indexparams.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process environment: where files live, how to reach
// the database, how to log.
type Config struct {
	Env string // development, staging, production

	Database  DatabaseConfig
	Engine    EngineConfig
	Collector CollectorConfig

	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds the PostgreSQL URL and pool sizing.
type DatabaseConfig struct {
	URL string

	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// EngineConfig holds the filesystem boundaries of the batch pipeline.
type EngineConfig struct {
	RunsDir    string // scraped run files, <runs>/<date>/pruned/*.json
	ExportsDir string // CSV/JSON/report outputs
	ParamsFile string // optional YAML overriding built-in model parameters
}

// CollectorConfig holds settings for the optional top-earning collector.
type CollectorConfig struct {
	Enabled  bool
	Endpoint string
	Timeout  time.Duration

	// Rate limit toward the upstream API
	RequestsPerSec float64
	Burst          int
}

// Load builds a Config from the environment, after applying any .env
// file it can find. Only this package calls os.Getenv.
func Load() (*Config, error) {
	loadDotenv()

	cfg := &Config{
		Env: envStr("ENV", "development"),

		Database: DatabaseConfig{
			URL:             envStr("DATABASE_URL", ""),
			MaxConns:        envInt("DB_MAX_CONNS", 10),
			MinConns:        envInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: envDuration("DB_MAX_CONN_LIFETIME", time.Hour),
			MaxConnIdleTime: envDuration("DB_MAX_CONN_IDLE_TIME", 30*time.Minute),
		},

		Engine: EngineConfig{
			RunsDir:    envStr("RUNS_DIR", "runs"),
			ExportsDir: envStr("EXPORTS_DIR", "exports"),
			ParamsFile: envStr("INDEX_PARAMS_FILE", ""),
		},

		Collector: CollectorConfig{
			Enabled:        envBool("COLLECTOR_ENABLED", false),
			Endpoint:       envStr("COLLECTOR_ENDPOINT", ""),
			Timeout:        envDuration("COLLECTOR_TIMEOUT", 30*time.Second),
			RequestsPerSec: envFloat("COLLECTOR_RPS", 1.0),
			Burst:          envInt("COLLECTOR_BURST", 1),
		},

		LogLevel:  envStr("LOG_LEVEL", "info"),
		LogFormat: envStr("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	switch c.Env {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("ENV must be development, staging or production, got %q", c.Env)
	}

	if c.Engine.RunsDir == "" {
		return fmt.Errorf("RUNS_DIR must not be empty")
	}
	if c.Engine.ExportsDir == "" {
		return fmt.Errorf("EXPORTS_DIR must not be empty")
	}

	if c.Collector.Enabled {
		if c.Collector.Endpoint == "" {
			return fmt.Errorf("COLLECTOR_ENDPOINT is required when COLLECTOR_ENABLED=true")
		}
		if c.Collector.RequestsPerSec <= 0 {
			return fmt.Errorf("COLLECTOR_RPS must be positive")
		}
	}

	return nil
}

// loadDotenv applies the first .env file found in the working directory
// or next to the binary. Real environment variables always win because
// godotenv never overrides existing keys.
func loadDotenv() {
	candidates := []string{".env"}
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		candidates = append(candidates,
			filepath.Join(dir, ".env"),
			filepath.Join(dir, "..", ".env"),
		)
	}
	for _, path := range candidates {
		if godotenv.Load(path) == nil {
			return
		}
	}
}

// The env helpers fall back to the default when the variable is unset,
// empty or unparseable.

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func envFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
