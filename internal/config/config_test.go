package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, ModeStub, cfg.Mode)
	assert.Equal(t, int64(5000), cfg.AppLimit)
	assert.Equal(t, int64(180), cfg.AccountCeiling)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.PerItemLatency)
	assert.Equal(t, 50, cfg.RolloverBatchSize)
	assert.Equal(t, 7*24*time.Hour, cfg.Retention)
	assert.Equal(t, "8080", cfg.APIPort)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.False(t, cfg.OIDCEnabled())
	assert.False(t, cfg.OTelEnabled)
}

func TestLoadFromEnv_ProductionValid(t *testing.T) {
	clearEnv(t)
	t.Setenv("REPLYHIVE_MODE", "production")
	t.Setenv("REPLYHIVE_REDIS_ADDR", "localhost:6379")
	t.Setenv("REPLYHIVE_POSTGRES_DSN", "postgres://localhost/replyhive")
	t.Setenv("REPLYHIVE_VENDOR_BASE_URL", "https://graph.example.com")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, ModeProduction, cfg.Mode)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func TestLoadFromEnv_ProductionMissingRequired(t *testing.T) {
	clearEnv(t)
	t.Setenv("REPLYHIVE_MODE", "production")

	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REPLYHIVE_REDIS_ADDR")
}

func TestLoadFromEnv_InvalidMode(t *testing.T) {
	clearEnv(t)
	t.Setenv("REPLYHIVE_MODE", "invalid")

	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid REPLYHIVE_MODE")
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("REPLYHIVE_APP_LIMIT", "100")
	t.Setenv("REPLYHIVE_ACCOUNT_CEILING", "10")
	t.Setenv("REPLYHIVE_MAX_ATTEMPTS", "5")
	t.Setenv("REPLYHIVE_PER_ITEM_LATENCY_MS", "500")
	t.Setenv("REPLYHIVE_CORS_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, int64(100), cfg.AppLimit)
	assert.Equal(t, int64(10), cfg.AccountCeiling)
	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.PerItemLatency)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins)
}

func TestLoadFromEnv_InvalidLimits(t *testing.T) {
	clearEnv(t)
	t.Setenv("REPLYHIVE_APP_LIMIT", "-1")

	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REPLYHIVE_APP_LIMIT")
}

func TestOIDCEnabled(t *testing.T) {
	clearEnv(t)
	t.Setenv("REPLYHIVE_OIDC_ISSUER", "https://auth.example.com")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.False(t, cfg.OIDCEnabled(), "issuer without audience is incomplete")

	t.Setenv("REPLYHIVE_OIDC_AUDIENCE", "replyhive-api")
	cfg, err = LoadFromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.OIDCEnabled())
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"REPLYHIVE_MODE", "REPLYHIVE_LOG_LEVEL", "REPLYHIVE_APP_LIMIT",
		"REPLYHIVE_ACCOUNT_CEILING", "REPLYHIVE_MAX_ATTEMPTS",
		"REPLYHIVE_PER_ITEM_LATENCY_MS", "REPLYHIVE_ROLLOVER_BATCH",
		"REPLYHIVE_RETENTION_DAYS", "REPLYHIVE_REDIS_ADDR",
		"REPLYHIVE_REDIS_PASSWORD", "REPLYHIVE_REDIS_DB", "REPLYHIVE_POSTGRES_DSN",
		"REPLYHIVE_VENDOR_BASE_URL", "REPLYHIVE_VENDOR_TOKEN",
		"REPLYHIVE_TENANT_PLANS", "REPLYHIVE_API_PORT", "REPLYHIVE_CORS_ORIGINS",
		"REPLYHIVE_OIDC_ISSUER", "REPLYHIVE_OIDC_AUDIENCE", "REPLYHIVE_OTEL_ENABLED",
	} {
		// t.Setenv saves the current value and restores it on cleanup.
		// Setting to "" then unsetting ensures the key is absent during the test.
		orig, wasSet := os.LookupEnv(key)
		if wasSet {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}
