package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), map[string]string{"DEV": "true"})
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"localhost", "127.0.0.1"}, cfg.Server.AllowedHosts)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "sqlite", cfg.Database.Driver())
	assert.Equal(t, "crm.db?_foreign_keys=on", cfg.Database.DSN())
	assert.Equal(t, "console", cfg.Mail.Backend)
	assert.Equal(t, cfg.Auth.SessionSecret, cfg.Auth.JWTSecret)
	assert.True(t, cfg.Telemetry.MetricsEnabled)
	assert.False(t, cfg.Seed.Enabled())
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), map[string]string{
		"PORT":                    "9090",
		"ALLOWED_HOSTS":           "crm.example.com,api.example.com",
		"DATABASE_URL":            "postgres://crm:pw@db:5432/crm?sslmode=disable",
		"SECRET_KEY":              "prod-secret",
		"JWT_SECRET":              "jwt-secret",
		"TOKEN_TTL":               "2h",
		"EMAIL_BACKEND":           "smtp",
		"EMAIL_PORT":              "2525",
		"SEED_SUPERUSER_USERNAME": "root",
		"SEED_SUPERUSER_PASSWORD": "pw",
	})
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, []string{"crm.example.com", "api.example.com"}, cfg.Server.AllowedHosts)
	assert.Equal(t, "postgres", cfg.Database.Driver())
	assert.Equal(t, "postgres://crm:pw@db:5432/crm?sslmode=disable", cfg.Database.DSN())
	assert.Equal(t, "jwt-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 2525, cfg.Mail.Port)
	assert.True(t, cfg.Seed.Enabled())
}

func TestDatabaseDSN_SQLite(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"sqlite://data/crm.db", "data/crm.db?_foreign_keys=on"},
		{"sqlite://file:crm?mode=memory", "file:crm?mode=memory&_foreign_keys=on"},
		{"sqlite://crm.db?_foreign_keys=off", "crm.db?_foreign_keys=off"},
		{"sqlite://", "crm.db?_foreign_keys=on"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, DatabaseConfig{URL: tt.url}.DSN())
		})
	}
}

func TestValidate(t *testing.T) {
	_, err := LoadFrom(context.Background(), map[string]string{"DEV": "true", "EMAIL_BACKEND": "carrier-pigeon"})
	assert.Error(t, err)

	_, err = LoadFrom(context.Background(), map[string]string{"DEV": "true", "USE_CLOUD_STORAGE": "true"})
	assert.Error(t, err)

	_, err = LoadFrom(context.Background(), map[string]string{"DEV": "true", "SQL_MIGRATIONS": "true"})
	assert.Error(t, err)

	_, err = LoadFrom(context.Background(), map[string]string{})
	assert.Error(t, err, "default secret outside dev mode")
}
