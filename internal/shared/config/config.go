package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds application configuration.
type Config struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	Env             string        `env:"ENV" envDefault:"dev"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	CORSAllowOrigin []string      `env:"CORS_ALLOW_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	DatabaseURL string `env:"DATABASE_URL"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"false"`

	ObjectStoreType string `env:"OBJECT_STORE" envDefault:"local"`
	StorageBucket   string `env:"STORAGE_BUCKET" envDefault:"pdfs"`
	LocalStoreDir   string `env:"LOCAL_STORE_DIR" envDefault:"./data"`
	AWSRegion       string `env:"AWS_REGION" envDefault:"us-east-1"`
	S3Endpoint      string `env:"S3_ENDPOINT"`
	S3AccessKeyID   string `env:"S3_ACCESS_KEY_ID"`
	S3SecretKey     string `env:"S3_SECRET_ACCESS_KEY"`
	S3UsePathStyle  bool   `env:"S3_USE_PATH_STYLE" envDefault:"true"`
	S3Prefix        string `env:"S3_PREFIX"`
	SSEKMSKeyID     string `env:"SSE_KMS_KEY_ID"`

	QueueBackend string `env:"QUEUE_BACKEND" envDefault:"redis"`
	RedisURL     string `env:"REDIS_URL"`
	SQSQueueURL  string `env:"SQS_QUEUE_URL"`
	SQSEndpoint  string `env:"SQS_ENDPOINT"`

	AuthIssuer             string        `env:"AUTH_ISSUER"`
	AuthJWKSURL            string        `env:"AUTH_JWKS_URL"`
	AuthAudience           string        `env:"AUTH_AUDIENCE"`
	JWKSCacheTTL           time.Duration `env:"AUTH_JWKS_CACHE_TTL" envDefault:"10m"`
	JWKSFetchTimeout       time.Duration `env:"AUTH_JWKS_FETCH_TIMEOUT" envDefault:"5s"`
	JWKSMaxRefreshesPerMin int           `env:"AUTH_JWKS_MAX_REFRESHES_PER_MIN" envDefault:"5"`

	ListRequireAuth bool `env:"LIST_REQUIRE_AUTH" envDefault:"false"`

	UploadRatePerMinute float64 `env:"UPLOAD_RATE_PER_MIN" envDefault:"30"`
	UploadBurst         int     `env:"UPLOAD_BURST" envDefault:"10"`

	StorageTimeout time.Duration `env:"STORAGE_TIMEOUT" envDefault:"10s"`
	DBTimeout      time.Duration `env:"DB_TIMEOUT" envDefault:"5s"`
	QueueTimeout   time.Duration `env:"QUEUE_TIMEOUT" envDefault:"3s"`
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env config: %w", err)
	}
	cfg.Normalize()

	if cfg.Env == "production" {
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return Config{}, fmt.Errorf("DATABASE_URL is required in production")
		}
		if cfg.JWKSURL() == "" {
			return Config{}, fmt.Errorf("AUTH_JWKS_URL or AUTH_ISSUER is required in production")
		}
	}
	return cfg, nil
}

// Normalize trims and canonicalizes enumerated settings in place.
func (c *Config) Normalize() {
	c.Env = normalizeEnv(c.Env)
	c.ObjectStoreType = normalizeStoreType(c.ObjectStoreType)
	c.QueueBackend = normalizeQueueBackend(c.QueueBackend)
	c.StorageBucket = strings.TrimSpace(c.StorageBucket)
	c.AuthIssuer = strings.TrimRight(strings.TrimSpace(c.AuthIssuer), "/")
	c.AuthJWKSURL = strings.TrimSpace(c.AuthJWKSURL)
	c.S3Endpoint = strings.TrimSpace(c.S3Endpoint)
	c.S3AccessKeyID = strings.TrimSpace(c.S3AccessKeyID)
	c.S3SecretKey = strings.TrimSpace(c.S3SecretKey)
	c.CORSAllowOrigin = splitAndTrim(c.CORSAllowOrigin)
}

// JWKSURL returns the explicit JWKS URL or the issuer's well-known location.
func (c Config) JWKSURL() string {
	if c.AuthJWKSURL != "" {
		return c.AuthJWKSURL
	}
	if c.AuthIssuer == "" {
		return ""
	}
	return c.AuthIssuer + "/.well-known/jwks.json"
}

func splitAndTrim(raw []string) []string {
	var out []string
	for _, p := range raw {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "test":
		return "test"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3", "supabase", "minio":
		return "s3"
	default:
		return "local"
	}
}

func normalizeQueueBackend(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sqs":
		return "sqs"
	case "none", "disabled":
		return "none"
	default:
		return "redis"
	}
}
