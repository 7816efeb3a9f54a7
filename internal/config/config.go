// Package config provides application configuration loaded from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Mode determines whether the process uses in-memory stores or the real
// Redis/PostgreSQL backends.
type Mode string

const (
	ModeStub       Mode = "stub"
	ModeProduction Mode = "production"
)

// Config holds all application configuration.
type Config struct {
	Mode     Mode
	LogLevel string

	// Admission limits.
	AppLimit       int64
	AccountCeiling int64
	MaxAttempts    int
	PerItemLatency time.Duration

	// Rollover and retention.
	RolloverBatchSize int
	Retention         time.Duration

	// Backends (production mode).
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	PostgresDSN   string

	// Vendor API (production mode).
	VendorBaseURL string
	VendorToken   string

	// TenantPlans seeds the static subscription source, as a
	// comma-separated tenant:tier list.
	TenantPlans string

	// API server settings.
	APIPort      string
	CORSOrigins  []string
	OIDCIssuer   string
	OIDCAudience string

	OTelEnabled bool
}

// OIDCEnabled reports whether bearer-token auth is configured.
func (c Config) OIDCEnabled() bool {
	return c.OIDCIssuer != "" && c.OIDCAudience != ""
}

// LoadFromEnv reads configuration from environment variables with sensible defaults.
func LoadFromEnv() (Config, error) {
	cfg := Config{
		Mode:              Mode(envOr("REPLYHIVE_MODE", "stub")),
		LogLevel:          envOr("REPLYHIVE_LOG_LEVEL", "info"),
		AppLimit:          envInt64("REPLYHIVE_APP_LIMIT", 5000),
		AccountCeiling:    envInt64("REPLYHIVE_ACCOUNT_CEILING", 180),
		MaxAttempts:       envInt("REPLYHIVE_MAX_ATTEMPTS", 3),
		PerItemLatency:    time.Duration(envInt("REPLYHIVE_PER_ITEM_LATENCY_MS", 2000)) * time.Millisecond,
		RolloverBatchSize: envInt("REPLYHIVE_ROLLOVER_BATCH", 50),
		Retention:         time.Duration(envInt("REPLYHIVE_RETENTION_DAYS", 7)) * 24 * time.Hour,
		RedisAddr:         os.Getenv("REPLYHIVE_REDIS_ADDR"),
		RedisPassword:     os.Getenv("REPLYHIVE_REDIS_PASSWORD"),
		RedisDB:           envInt("REPLYHIVE_REDIS_DB", 0),
		PostgresDSN:       os.Getenv("REPLYHIVE_POSTGRES_DSN"),
		VendorBaseURL:     os.Getenv("REPLYHIVE_VENDOR_BASE_URL"),
		VendorToken:       os.Getenv("REPLYHIVE_VENDOR_TOKEN"),
		TenantPlans:       os.Getenv("REPLYHIVE_TENANT_PLANS"),
		APIPort:           envOr("REPLYHIVE_API_PORT", "8080"),
		CORSOrigins:       parseCORSOrigins(os.Getenv("REPLYHIVE_CORS_ORIGINS")),
		OIDCIssuer:        os.Getenv("REPLYHIVE_OIDC_ISSUER"),
		OIDCAudience:      os.Getenv("REPLYHIVE_OIDC_AUDIENCE"),
		OTelEnabled:       envOr("REPLYHIVE_OTEL_ENABLED", "") == "true",
	}

	if cfg.Mode != ModeStub && cfg.Mode != ModeProduction {
		return Config{}, fmt.Errorf("config: invalid REPLYHIVE_MODE %q (must be stub or production)", cfg.Mode)
	}

	if cfg.Mode == ModeProduction {
		if cfg.RedisAddr == "" {
			return Config{}, fmt.Errorf("config: REPLYHIVE_REDIS_ADDR required in production mode")
		}
		if cfg.PostgresDSN == "" {
			return Config{}, fmt.Errorf("config: REPLYHIVE_POSTGRES_DSN required in production mode")
		}
		if cfg.VendorBaseURL == "" {
			return Config{}, fmt.Errorf("config: REPLYHIVE_VENDOR_BASE_URL required in production mode")
		}
	}

	if cfg.AppLimit <= 0 {
		return Config{}, fmt.Errorf("config: REPLYHIVE_APP_LIMIT must be positive")
	}
	if cfg.AccountCeiling <= 0 {
		return Config{}, fmt.Errorf("config: REPLYHIVE_ACCOUNT_CEILING must be positive")
	}
	if cfg.MaxAttempts < 1 {
		return Config{}, fmt.Errorf("config: REPLYHIVE_MAX_ATTEMPTS must be at least 1")
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func parseCORSOrigins(raw string) []string {
	if raw == "" {
		return []string{"*"}
	}
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if t := strings.TrimSpace(o); t != "" {
			origins = append(origins, t)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
