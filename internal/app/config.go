package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/salesdesk/salesdesk/internal/observability"
	"github.com/salesdesk/salesdesk/internal/platform/cache"
	"github.com/salesdesk/salesdesk/internal/uploads"
)

// Upload drivers.
const (
	UploadDriverBackend = "backend"
	UploadDriverS3      = "s3"
)

// Config holds runtime configuration for the console, the worker and the CLI.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":3000"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"30s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	APIBaseURL string        `envconfig:"API_BASE_URL" default:"http://localhost:8080/api/v1"`
	APITimeout time.Duration `envconfig:"API_TIMEOUT" default:"15s"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	SessionSecret      string        `envconfig:"SESSION_SECRET" required:"true"`
	SessionCookie      string        `envconfig:"SESSION_COOKIE" default:"salesdesk_session"`
	SessionTTL         time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	CSRFSecret         string        `envconfig:"CSRF_SECRET" required:"true"`
	IdentityRevalidate time.Duration `envconfig:"IDENTITY_REVALIDATE" default:"5m"`

	LoginRateLimit int `envconfig:"LOGIN_RATE_LIMIT" default:"10"`
	RateLimit      int `envconfig:"RATE_LIMIT" default:"300"`

	CartTTL              time.Duration `envconfig:"CART_TTL" default:"24h"`
	IdempotencyRetention time.Duration `envconfig:"IDEMPOTENCY_RETENTION" default:"24h"`
	DashboardCacheTTL    time.Duration `envconfig:"DASHBOARD_CACHE_TTL" default:"2m"`
	LowStockThreshold    int           `envconfig:"LOW_STOCK_THRESHOLD" default:"5"`

	LedgerPGDSN string `envconfig:"LEDGER_PG_DSN"`

	UploadDriver string `envconfig:"UPLOAD_DRIVER" default:"backend"`
	S3Bucket     string `envconfig:"S3_BUCKET"`
	S3Region     string `envconfig:"S3_REGION" default:"ap-southeast-1"`
	S3Endpoint   string `envconfig:"S3_ENDPOINT"`
	S3AccessKey  string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey  string `envconfig:"S3_SECRET_KEY"`
	S3PublicURL  string `envconfig:"S3_PUBLIC_URL"`
	S3Prefix     string `envconfig:"S3_PREFIX" default:"products"`

	GotenbergURL     string        `envconfig:"GOTENBERG_URL"`
	GotenbergTimeout time.Duration `envconfig:"GOTENBERG_TIMEOUT" default:"30s"`
	ShopName         string        `envconfig:"SHOP_NAME" default:"SalesDesk"`

	OTelExporter string `envconfig:"OTEL_EXPORTER" default:"none"`
	OTelEndpoint string `envconfig:"OTEL_ENDPOINT" default:"localhost:4317"`
	OTelInsecure bool   `envconfig:"OTEL_INSECURE" default:"true"`

	WorkerEmail       string `envconfig:"WORKER_EMAIL"`
	WorkerPassword    string `envconfig:"WORKER_PASSWORD"`
	WorkerConcurrency int    `envconfig:"WORKER_CONCURRENCY" default:"2"`
	WorkerTimezone    string `envconfig:"WORKER_TIMEZONE" default:"Asia/Ho_Chi_Minh"`
	WorkerMetricsAddr string `envconfig:"WORKER_METRICS_ADDR" default:":9101"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ClientConfig is the subset the CLI reads. Console secrets are not needed.
type ClientConfig struct {
	LogFormat         string        `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel          string        `envconfig:"LOG_LEVEL" default:"warn"`
	APIBaseURL        string        `envconfig:"API_BASE_URL" default:"http://localhost:8080/api/v1"`
	APITimeout        time.Duration `envconfig:"API_TIMEOUT" default:"15s"`
	RedisAddr         string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword     string        `envconfig:"REDIS_PASSWORD"`
	RedisDB           int           `envconfig:"REDIS_DB" default:"0"`
	LowStockThreshold int           `envconfig:"LOW_STOCK_THRESHOLD" default:"5"`
}

// LoadClientConfig reads the CLI configuration from environment variables.
func LoadClientConfig() (*ClientConfig, error) {
	var cfg ClientConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Redis returns the job queue connection settings.
func (c *ClientConfig) Redis() cache.Config {
	return cache.Config{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB}
}

// Validate checks cross-field rules envconfig cannot express.
func (c *Config) Validate() error {
	if c.SessionSecret == "" {
		return errors.New("session secret must be provided")
	}
	if c.CSRFSecret == "" {
		return errors.New("csrf secret must be provided")
	}
	switch c.UploadDriver {
	case UploadDriverBackend:
	case UploadDriverS3:
		if c.S3Bucket == "" {
			return errors.New("S3_BUCKET is required when UPLOAD_DRIVER=s3")
		}
	default:
		return fmt.Errorf("unknown UPLOAD_DRIVER %q", c.UploadDriver)
	}
	switch c.OTelExporter {
	case observability.ExporterNone, observability.ExporterStdout, observability.ExporterOTLP:
	default:
		return fmt.Errorf("unknown OTEL_EXPORTER %q", c.OTelExporter)
	}
	if c.LowStockThreshold <= 0 {
		return errors.New("LOW_STOCK_THRESHOLD must be positive")
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// Redis returns the shared Redis connection settings.
func (c *Config) Redis() cache.Config {
	return cache.Config{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB}
}

// S3 returns the object store settings for UPLOAD_DRIVER=s3.
func (c *Config) S3() uploads.S3Config {
	return uploads.S3Config{
		Bucket:    c.S3Bucket,
		Region:    c.S3Region,
		Endpoint:  c.S3Endpoint,
		AccessKey: c.S3AccessKey,
		SecretKey: c.S3SecretKey,
		PublicURL: c.S3PublicURL,
		Prefix:    c.S3Prefix,
	}
}

// Tracing returns the tracer settings for the named service.
func (c *Config) Tracing(service string) observability.TracingConfig {
	return observability.TracingConfig{
		ServiceName: service,
		Exporter:    c.OTelExporter,
		Endpoint:    c.OTelEndpoint,
		Insecure:    c.OTelInsecure,
	}
}

// WorkerLocation resolves WORKER_TIMEZONE, falling back to local time.
func (c *Config) WorkerLocation() *time.Location {
	if loc, err := time.LoadLocation(c.WorkerTimezone); err == nil {
		return loc
	}
	return time.Local
}
