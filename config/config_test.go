package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "Listings", cfg.Sheets.Document)
	assert.Equal(t, "client_secret.json", cfg.Sheets.CredentialsFile)
	assert.Equal(t, 20*time.Second, cfg.Sheets.Timeout)
	assert.Equal(t, 12*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "listing-events", cfg.MQ.ListingChannel)
	assert.Empty(t, cfg.Storage.Backend)
	assert.Empty(t, cfg.MQ.Backend)
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_USE_SSL", "true")
	t.Setenv("SHEETS_TIMEOUT", "5s")
	t.Setenv("SHEETS_DOCUMENT", "Listings (staging)")
	t.Setenv("STORAGE_BACKEND", "MinIO")
	t.Setenv("JWT_SECRET", "  s3cret ")
	t.Setenv("RABBITMQ_PREFETCH", "3")

	cfg := LoadConfig()

	assert.Equal(t, 9090, cfg.ServerPort)
	assert.True(t, cfg.Database.UseSSL)
	assert.Equal(t, 5*time.Second, cfg.Sheets.Timeout)
	assert.Equal(t, "Listings (staging)", cfg.Sheets.Document)
	assert.Equal(t, "minio", cfg.Storage.Backend)
	assert.Equal(t, "s3cret", cfg.Session.JWTSecret)
	assert.Equal(t, 3, cfg.MQ.RabbitMQ.PrefetchCount)
}

func TestLoadConfig_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("SHEETS_TIMEOUT", "soon")
	t.Setenv("COOKIE_SECURE", "maybe")

	cfg := LoadConfig()

	assert.Equal(t, 20*time.Second, cfg.Sheets.Timeout)
	assert.False(t, cfg.Session.CookieSecure)
}
