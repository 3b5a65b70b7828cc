// Package config provides application configuration loaded from environment variables.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	App       AppConfig
	Auth      AuthConfig
	Storage   StorageConfig
	Mail      MailConfig
	Telemetry TelemetryConfig
	Seed      SeedConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `env:"PORT, default=8000"`
	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT, default=15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT, default=15s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT, default=60s"`
	// AllowedHosts lists accepted Host header values; "*" accepts any host.
	AllowedHosts []string `env:"ALLOWED_HOSTS, default=localhost,127.0.0.1"`
	// CORSOrigins lists the browser origins allowed to call /api.
	CORSOrigins []string `env:"CORS_ALLOWED_ORIGINS, default=http://localhost:3000"`
}

// DatabaseConfig holds the database target.
// URL accepts postgres://, postgresql:// and sqlite:// forms.
type DatabaseConfig struct {
	URL   string `env:"DATABASE_URL, default=sqlite://crm.db"`
	Debug bool   `env:"DB_DEBUG, default=false"`
	// SQLMigrations switches schema management from AutoMigrate to the
	// embedded golang-migrate SQL files (postgres only).
	SQLMigrations bool `env:"SQL_MIGRATIONS, default=false"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Dev        bool   `env:"DEV, default=false"`
	Migrations bool   `env:"MIGRATIONS, default=true"`
	LogLevel   string `env:"LOG_LEVEL, default=info"`
	Language   string `env:"LANGUAGE_CODE, default=en"`
}

// AuthConfig holds secrets and token lifetimes.
type AuthConfig struct {
	SessionSecret string        `env:"SECRET_KEY, default=dev-insecure-secret"`
	JWTSecret     string        `env:"JWT_SECRET"`
	TokenTTL      time.Duration `env:"TOKEN_TTL, default=24h"`
	SecureCookies bool          `env:"SECURE_COOKIES, default=false"`
}

// StorageConfig selects where uploaded media (avatars) live.
type StorageConfig struct {
	UseCloud  bool   `env:"USE_CLOUD_STORAGE, default=false"`
	MediaRoot string `env:"MEDIA_ROOT, default=media"`
	MediaURL  string `env:"MEDIA_URL, default=/media/"`

	Bucket    string `env:"AWS_STORAGE_BUCKET_NAME"`
	Endpoint  string `env:"AWS_S3_ENDPOINT_URL, default=s3.amazonaws.com"`
	Region    string `env:"AWS_S3_REGION_NAME"`
	AccessKey string `env:"AWS_ACCESS_KEY_ID"`
	SecretKey string `env:"AWS_SECRET_ACCESS_KEY"`
	UseSSL    bool   `env:"AWS_S3_USE_SSL, default=true"`
	PublicURL string `env:"AWS_S3_PUBLIC_URL"`
}

// MailConfig selects the outbound email backend.
type MailConfig struct {
	// Backend is "console" (log only) or "smtp".
	Backend  string `env:"EMAIL_BACKEND, default=console"`
	Host     string `env:"EMAIL_HOST, default=localhost"`
	Port     int    `env:"EMAIL_PORT, default=587"`
	User     string `env:"EMAIL_HOST_USER"`
	Password string `env:"EMAIL_HOST_PASSWORD"`
	From     string `env:"DEFAULT_FROM_EMAIL, default=noreply@crm.local"`
}

// TelemetryConfig controls the Prometheus endpoint.
type TelemetryConfig struct {
	MetricsEnabled bool   `env:"METRICS_ENABLED, default=true"`
	MetricsPath    string `env:"METRICS_PATH, default=/metrics"`
}

// SeedConfig describes an optional superuser created at startup.
type SeedConfig struct {
	Username string `env:"SEED_SUPERUSER_USERNAME"`
	Email    string `env:"SEED_SUPERUSER_EMAIL"`
	Password string `env:"SEED_SUPERUSER_PASSWORD"`
}

// Driver returns "postgres" or "sqlite" depending on the URL scheme.
func (d DatabaseConfig) Driver() string {
	lower := strings.ToLower(d.URL)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return "postgres"
	}
	return "sqlite"
}

// DSN returns the driver-specific connection string.
// For sqlite the scheme is stripped and foreign keys are switched on.
func (d DatabaseConfig) DSN() string {
	if d.Driver() == "postgres" {
		return d.URL
	}
	path := strings.TrimPrefix(d.URL, "sqlite://")
	if path == "" {
		path = "crm.db"
	}
	if strings.Contains(path, "_foreign_keys=") {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on"
}

// Enabled reports whether seeding has the credentials it needs.
func (s SeedConfig) Enabled() bool {
	return s.Username != "" && s.Password != ""
}

// Validate rejects configurations the application cannot start with.
func (c *Config) Validate() error {
	switch c.Mail.Backend {
	case "console", "smtp":
	default:
		return fmt.Errorf("config: unknown EMAIL_BACKEND %q", c.Mail.Backend)
	}
	if c.Storage.UseCloud && c.Storage.Bucket == "" {
		return fmt.Errorf("config: USE_CLOUD_STORAGE requires AWS_STORAGE_BUCKET_NAME")
	}
	if c.Database.SQLMigrations && c.Database.Driver() != "postgres" {
		return fmt.Errorf("config: SQL_MIGRATIONS requires a postgres DATABASE_URL")
	}
	if !c.App.Dev && c.Auth.SessionSecret == "dev-insecure-secret" {
		return fmt.Errorf("config: SECRET_KEY must be set outside DEV mode")
	}
	return nil
}

// Load reads configuration from the process environment.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

// LoadFrom reads configuration from an explicit map (useful in tests).
func LoadFrom(ctx context.Context, env map[string]string) (*Config, error) {
	return load(ctx, envconfig.MapLookuper(env))
}

func load(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = cfg.Auth.SessionSecret
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
