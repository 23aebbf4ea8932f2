package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 40, cfg.Shaper.Intensity)
	assert.Equal(t, 120*time.Minute, cfg.Shaper.Duration)
	assert.Equal(t, 10*time.Second, cfg.Shaper.PollInterval)
	assert.Equal(t, 95, cfg.Shaper.SingleTenantDTU)
	assert.False(t, cfg.Redis.Enabled)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing catalog host", func(c *Config) { c.Catalog.Host = "" }},
		{"missing catalog database", func(c *Config) { c.Catalog.Database = "" }},
		{"missing catalog user", func(c *Config) { c.Catalog.User = "" }},
		{"redis enabled without host", func(c *Config) { c.Redis.Enabled = true; c.Redis.Host = "" }},
		{"missing admin user", func(c *Config) { c.Target.AdminUser = "" }},
		{"target port zero", func(c *Config) { c.Target.Port = 0 }},
		{"intensity zero", func(c *Config) { c.Shaper.Intensity = 0 }},
		{"intensity over cap", func(c *Config) { c.Shaper.Intensity = 101 }},
		{"zero duration", func(c *Config) { c.Shaper.Duration = 0 }},
		{"single tenant dtu out of range", func(c *Config) {
			c.Shaper.SingleTenant = true
			c.Shaper.SingleTenantDTU = 150
		}},
		{"ops port out of range", func(c *Config) { c.Ops.Port = 70000 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "tenant_catalog", cfg.Catalog.Database)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load("/nonexistent/loadshaper.yaml")
	assert.Error(t, err)
}

func TestLoadFromFile(t *testing.T) {
	content := `
catalog:
  host: catalog.internal
  database: tenant_catalog
  user: catalog_ro
shaper:
  intensity: 60
  duration: 30m
  longer_bursts: true
target:
  admin_user: loadadmin
  port: 5432
`
	path := filepath.Join(t.TempDir(), "loadshaper.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "catalog.internal", cfg.Catalog.Host)
	assert.Equal(t, "catalog_ro", cfg.Catalog.User)
	assert.Equal(t, 60, cfg.Shaper.Intensity)
	assert.Equal(t, 30*time.Minute, cfg.Shaper.Duration)
	assert.True(t, cfg.Shaper.LongerBursts)
	// Unset keys keep their defaults
	assert.Equal(t, 5432, cfg.Catalog.Port)
	assert.Equal(t, 3, cfg.Target.MaxRetries)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("CATALOG_HOST", "catalog-prod.internal")
	t.Setenv("CATALOG_PORT", "15432")
	t.Setenv("REDIS_HOST", "cache.internal")
	t.Setenv("TARGET_ADMIN_PASSWORD", "s3cret")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "catalog-prod.internal", cfg.Catalog.Host)
	assert.Equal(t, 15432, cfg.Catalog.Port)
	assert.True(t, cfg.Redis.Enabled, "setting REDIS_HOST enables the shared cache")
	assert.Equal(t, "cache.internal", cfg.Redis.Host)
	assert.Equal(t, "s3cret", cfg.Target.AdminPassword)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestEnvironmentIgnoresMalformedPort(t *testing.T) {
	t.Setenv("CATALOG_PORT", "not-a-port")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 5432, cfg.Catalog.Port)
}
