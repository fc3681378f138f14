package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the runtime settings of the storefront server.
type Config struct {
	AppPort string

	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseDSN    string

	SessionStore  string // "gorm" or "redis"
	SessionTTL    time.Duration
	SessionSecret string
	CookieSecure  bool

	RedisAddr     string
	RedisPassword string

	RabbitMQURL string

	AdminEmail    string
	AdminPassword string

	UploadBackend       string // "disk" or "minio"
	UploadDir           string
	UploadPublicBaseURL string
	UploadMaxBytes      int
	UploadMaxWidth      uint

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	AuthRateLimit int // requests per minute per client IP, 0 disables

	LogLevel  string
	LogFormat string

	SeedCatalog bool
	CORSOrigin  string
}

// SetDefaults registers the default value of every known key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "file:gemstore.db")
	v.SetDefault("SESSION_STORE", "gorm")
	v.SetDefault("SESSION_TTL", "168h")
	v.SetDefault("SESSION_SECRET", "")
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("ADMIN_EMAIL", "")
	v.SetDefault("ADMIN_PASSWORD", "")
	v.SetDefault("UPLOAD_BACKEND", "disk")
	v.SetDefault("UPLOAD_DIR", "./uploads")
	v.SetDefault("UPLOAD_PUBLIC_BASE_URL", "/uploads")
	v.SetDefault("UPLOAD_MAX_BYTES", 10<<20)
	v.SetDefault("UPLOAD_MAX_WIDTH", 1200)
	v.SetDefault("MINIO_ENDPOINT", "localhost:9000")
	v.SetDefault("MINIO_ACCESS_KEY", "")
	v.SetDefault("MINIO_SECRET_KEY", "")
	v.SetDefault("MINIO_BUCKET", "gemstore")
	v.SetDefault("MINIO_USE_SSL", false)
	v.SetDefault("AUTH_RATE_LIMIT", 20)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("SEED_CATALOG", true)
	v.SetDefault("CORS_ORIGIN", "")
}

// Load reads configuration from the environment and, when CONFIG_FILE is set,
// from that file. Environment variables win over file values.
func Load() (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}
	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		AppPort:             v.GetString("APP_PORT"),
		DatabaseDriver:      strings.ToLower(v.GetString("DATABASE_DRIVER")),
		DatabaseDSN:         v.GetString("DATABASE_DSN"),
		SessionStore:        strings.ToLower(v.GetString("SESSION_STORE")),
		SessionTTL:          v.GetDuration("SESSION_TTL"),
		SessionSecret:       v.GetString("SESSION_SECRET"),
		CookieSecure:        v.GetBool("COOKIE_SECURE"),
		RedisAddr:           v.GetString("REDIS_ADDR"),
		RedisPassword:       v.GetString("REDIS_PASSWORD"),
		RabbitMQURL:         v.GetString("RABBITMQ_URL"),
		AdminEmail:          strings.ToLower(strings.TrimSpace(v.GetString("ADMIN_EMAIL"))),
		AdminPassword:       v.GetString("ADMIN_PASSWORD"),
		UploadBackend:       strings.ToLower(v.GetString("UPLOAD_BACKEND")),
		UploadDir:           v.GetString("UPLOAD_DIR"),
		UploadPublicBaseURL: strings.TrimRight(v.GetString("UPLOAD_PUBLIC_BASE_URL"), "/"),
		UploadMaxBytes:      v.GetInt("UPLOAD_MAX_BYTES"),
		UploadMaxWidth:      v.GetUint("UPLOAD_MAX_WIDTH"),
		MinioEndpoint:       v.GetString("MINIO_ENDPOINT"),
		MinioAccessKey:      v.GetString("MINIO_ACCESS_KEY"),
		MinioSecretKey:      v.GetString("MINIO_SECRET_KEY"),
		MinioBucket:         v.GetString("MINIO_BUCKET"),
		MinioUseSSL:         v.GetBool("MINIO_USE_SSL"),
		AuthRateLimit:       v.GetInt("AUTH_RATE_LIMIT"),
		LogLevel:            v.GetString("LOG_LEVEL"),
		LogFormat:           v.GetString("LOG_FORMAT"),
		SeedCatalog:         v.GetBool("SEED_CATALOG"),
		CORSOrigin:          strings.TrimRight(v.GetString("CORS_ORIGIN"), "/"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	switch c.SessionStore {
	case "gorm", "redis":
	default:
		return fmt.Errorf("unsupported SESSION_STORE %q", c.SessionStore)
	}
	switch c.UploadBackend {
	case "disk", "minio":
	default:
		return fmt.Errorf("unsupported UPLOAD_BACKEND %q", c.UploadBackend)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		return fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}
	if c.UploadMaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive")
	}
	return nil
}

// AdminConfigured reports whether a designated admin credential pair is set.
func (c *Config) AdminConfigured() bool {
	return c.AdminEmail != "" && c.AdminPassword != ""
}
