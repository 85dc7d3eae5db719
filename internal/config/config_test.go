package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_HOST", "db.local")
	t.Setenv("DATABASE_USER", "portfolio")
	t.Setenv("DATABASE_DBNAME", "portfolio_db")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1:6379", cfg.Redis.Addr)
	assert.Equal(t, 0, cfg.Redis.DB)
	assert.Equal(t, 61*time.Second, cfg.Auth.OTPCooldown)
	assert.Equal(t, "postgres", cfg.Auth.SessionStore)
	assert.Equal(t, 30*time.Second, cfg.Delivery.CacheDuration)
	assert.Equal(t, 2*time.Second, cfg.Delivery.BrokerTimeout)
	assert.Equal(t, 1*time.Second, cfg.Delivery.WorkerTimeout)
	assert.Equal(t, 3, cfg.Delivery.MaxAttempts)
	assert.Equal(t, 60*time.Second, cfg.Delivery.RetryBackoff)
	assert.Equal(t, "file://migrations", cfg.Database.MigrationsPath)
	assert.False(t, cfg.Email.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("AUTH_OTP_COOLDOWN", "90s")
	t.Setenv("DELIVERY_MAX_ATTEMPTS", "5")
	t.Setenv("AUTH_SESSION_STORE", "redis")
	t.Setenv("WORKER_ID", "worker-a")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 90*time.Second, cfg.Auth.OTPCooldown)
	assert.Equal(t, 5, cfg.Delivery.MaxAttempts)
	assert.Equal(t, "redis", cfg.Auth.SessionStore)
	assert.Equal(t, "worker-a", cfg.Delivery.WorkerID)
}

func TestLoad_File(t *testing.T) {
	setRequiredEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9090"
  allow_origins:
    - "https://example.com"
email:
  enabled: true
  api_key: "re_test"
  from: "noreply@example.com"
  site_owner: "owner@example.com"
delivery:
  queue_prefix: "site"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, []string{"https://example.com"}, cfg.Server.AllowOrigins)
	assert.True(t, cfg.Email.Enabled)
	assert.Equal(t, "owner@example.com", cfg.Email.SiteOwner)
	assert.Equal(t, "site", cfg.Delivery.QueuePrefix)
}

func TestLoad_MissingFileFallsBackToEnv(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "db.local", cfg.Database.Host)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database: DatabaseConfig{Host: "h", User: "u", DBName: "d"},
			Auth:     AuthConfig{OTPCooldown: time.Minute, SessionStore: "postgres"},
			Delivery: DeliveryConfig{MaxAttempts: 3},
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"no database host", func(c *Config) { c.Database.Host = "" }},
		{"email without key", func(c *Config) { c.Email = EmailConfig{Enabled: true, From: "a@b.c", SiteOwner: "o@b.c"} }},
		{"email without owner", func(c *Config) { c.Email = EmailConfig{Enabled: true, APIKey: "k", From: "a@b.c"} }},
		{"zero cooldown", func(c *Config) { c.Auth.OTPCooldown = 0 }},
		{"unknown session store", func(c *Config) { c.Auth.SessionStore = "memcached" }},
		{"zero attempts", func(c *Config) { c.Delivery.MaxAttempts = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
