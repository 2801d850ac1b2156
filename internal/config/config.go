package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds the environment driven configuration for the media service.
type Config struct {
	// Service Configuration
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"media-api"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort        int           `env:"MEDIA_API_PORT" envDefault:"8285"`
	LogLevel        string        `env:"MEDIA_LOG_LEVEL" envDefault:"info"`
	EnableTracing   bool          `env:"ENABLE_TRACING" envDefault:"false"`
	OTLPEndpoint    string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Metadata Backend Selection
	MetadataBackend string `env:"MEDIA_METADATA_BACKEND" envDefault:"postgres"` // Options: "postgres" or "memory"

	// Database (required for the postgres backend)
	DBPostgresqlWriteDSN string `env:"DB_POSTGRESQL_WRITE_DSN"`

	// Database Connection Pool
	DBMaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBMaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"15"`
	DBConnLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`

	// Storage Backend Selection
	StorageBackend string `env:"MEDIA_STORAGE_BACKEND" envDefault:"s3"` // Options: "s3" or "local"

	// Local Storage Configuration
	LocalStoragePath    string `env:"MEDIA_LOCAL_STORAGE_PATH"`
	LocalStorageBaseURL string `env:"MEDIA_LOCAL_STORAGE_BASE_URL"`

	// S3 Storage Configuration
	S3Endpoint      string        `env:"MEDIA_S3_ENDPOINT"`
	S3PublicBaseURL string        `env:"MEDIA_S3_PUBLIC_BASE_URL"` // when set, blob refs are stable public URLs instead of presigned ones
	S3Region        string        `env:"MEDIA_S3_REGION" envDefault:"us-west-2"`
	S3Bucket        string        `env:"MEDIA_S3_BUCKET"`
	S3AccessKeyID   string        `env:"MEDIA_S3_ACCESS_KEY_ID"`
	S3SecretKey     string        `env:"MEDIA_S3_SECRET_ACCESS_KEY"`
	S3UsePathStyle  bool          `env:"MEDIA_S3_USE_PATH_STYLE" envDefault:"true"`
	S3PresignTTL    time.Duration `env:"MEDIA_S3_PRESIGN_TTL" envDefault:"168h"`

	// Media Configuration
	MaxImageBytes         int64 `env:"MEDIA_MAX_IMAGE_BYTES" envDefault:"20971520"`
	MaxVideoBytes         int64 `env:"MEDIA_MAX_VIDEO_BYTES" envDefault:"209715200"`
	ThumbnailMaxDimension int   `env:"MEDIA_THUMBNAIL_MAX_DIMENSION" envDefault:"256"`
	ThumbnailQuality      int   `env:"MEDIA_THUMBNAIL_QUALITY" envDefault:"80"`

	// Workflow notification
	NotifyWebhookURL string        `env:"MEDIA_NOTIFY_WEBHOOK_URL"`
	NotifyTimeout    time.Duration `env:"MEDIA_NOTIFY_TIMEOUT" envDefault:"5s"`

	// Authentication
	AuthEnabled bool   `env:"AUTH_ENABLED" envDefault:"false"`
	AuthIssuer  string `env:"AUTH_ISSUER"`
	Account     string `env:"ACCOUNT"`
	AuthJWKSURL string `env:"AUTH_JWKS_URL"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	c.S3Bucket = strings.TrimSpace(c.S3Bucket)
	c.S3AccessKeyID = strings.TrimSpace(c.S3AccessKeyID)
	c.S3SecretKey = strings.TrimSpace(c.S3SecretKey)
	c.S3Endpoint = strings.TrimSpace(c.S3Endpoint)
	c.S3PublicBaseURL = strings.TrimSpace(c.S3PublicBaseURL)
	c.NotifyWebhookURL = strings.TrimSpace(c.NotifyWebhookURL)

	if c.MaxImageBytes <= 0 {
		c.MaxImageBytes = 20 * 1024 * 1024
	}
	if c.MaxVideoBytes <= 0 {
		c.MaxVideoBytes = 200 * 1024 * 1024
	}
	if c.ThumbnailMaxDimension <= 0 {
		c.ThumbnailMaxDimension = 256
	}
	if c.ThumbnailQuality <= 0 || c.ThumbnailQuality > 100 {
		c.ThumbnailQuality = 80
	}
	if !c.IsMemoryMetadata() && strings.TrimSpace(c.DBPostgresqlWriteDSN) == "" {
		return fmt.Errorf("DB_POSTGRESQL_WRITE_DSN is required when MEDIA_METADATA_BACKEND is postgres")
	}
	if !c.IsLocalStorage() && !c.IsS3Storage() {
		return fmt.Errorf("MEDIA_STORAGE_BACKEND must be \"s3\" or \"local\", got %q", c.StorageBackend)
	}
	if c.AuthEnabled {
		if strings.TrimSpace(c.AuthIssuer) == "" {
			return fmt.Errorf("AUTH_ISSUER is required when AUTH_ENABLED is true")
		}
		if strings.TrimSpace(c.AuthJWKSURL) == "" {
			return fmt.Errorf("AUTH_JWKS_URL is required when AUTH_ENABLED is true")
		}
	}
	return nil
}

// GetDatabaseWriteDSN returns the write database connection string.
func (c *Config) GetDatabaseWriteDSN() string {
	return c.DBPostgresqlWriteDSN
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// IsMemoryMetadata returns true if records are kept in process memory.
func (c *Config) IsMemoryMetadata() bool {
	return strings.ToLower(strings.TrimSpace(c.MetadataBackend)) == "memory"
}

// IsLocalStorage returns true if local storage backend is configured.
func (c *Config) IsLocalStorage() bool {
	return strings.ToLower(strings.TrimSpace(c.StorageBackend)) == "local"
}

// IsS3Storage returns true if S3 storage backend is configured.
func (c *Config) IsS3Storage() bool {
	backend := strings.ToLower(strings.TrimSpace(c.StorageBackend))
	return backend == "" || backend == "s3"
}

// MaxUploadBytes is the largest payload any media kind accepts.
func (c *Config) MaxUploadBytes() int64 {
	if c.MaxVideoBytes > c.MaxImageBytes {
		return c.MaxVideoBytes
	}
	return c.MaxImageBytes
}
