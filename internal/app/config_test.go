package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SESSION_SECRET", "s")
	t.Setenv("CSRF_SECRET", "c")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.AppAddr)
	assert.Equal(t, "salesdesk_session", cfg.SessionCookie)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 5, cfg.LowStockThreshold)
	assert.Equal(t, UploadDriverBackend, cfg.UploadDriver)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRequiresSecrets(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("CSRF_SECRET", "")
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestValidateRejectsBadSettings(t *testing.T) {
	cases := map[string]func(*Config){
		"s3 without bucket": func(c *Config) { c.UploadDriver = UploadDriverS3 },
		"unknown driver":    func(c *Config) { c.UploadDriver = "ftp" },
		"unknown exporter":  func(c *Config) { c.OTelExporter = "zipkin" },
		"zero threshold":    func(c *Config) { c.LowStockThreshold = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := &Config{
				SessionSecret:     "s",
				CSRFSecret:        "c",
				UploadDriver:      UploadDriverBackend,
				OTelExporter:      "none",
				LowStockThreshold: 5,
			}
			require.NoError(t, cfg.Validate())
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfigDerivedSettings(t *testing.T) {
	cfg := &Config{
		RedisAddr: "cache:6379", RedisDB: 2,
		S3Bucket: "media", S3Prefix: "products",
		OTelExporter: "otlp", OTelEndpoint: "collector:4317",
		WorkerTimezone: "Nowhere/Invalid",
	}

	assert.Equal(t, "cache:6379", cfg.Redis().Addr)
	assert.Equal(t, 2, cfg.Redis().DB)
	assert.Equal(t, "media", cfg.S3().Bucket)
	assert.Equal(t, "salesdesk-worker", cfg.Tracing("salesdesk-worker").ServiceName)
	assert.Equal(t, "collector:4317", cfg.Tracing("x").Endpoint)
	assert.Equal(t, time.Local, cfg.WorkerLocation())
}

func TestLoadClientConfigNeedsNoSecrets(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("API_BASE_URL", "https://api.shop.vn/api/v1")

	cfg, err := LoadClientConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://api.shop.vn/api/v1", cfg.APIBaseURL)
	assert.Equal(t, "warn", cfg.LogLevel)
}
