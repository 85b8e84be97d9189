package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"partscatalog/sitemap/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func validConfig() *Config {
	return &Config{
		Database: DatabaseConfig{Host: "db", Name: "catalog", User: "reader"},
		Sitemap: SitemapConfig{
			BaseURL:       "https://parts.example.com",
			OutputDir:     "./public",
			ShardCapacity: 50000,
			BatchSize:     2000,
		},
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  request_timeout: 5s
database:
  host: db.internal
  name: catalog
  user: reader
sitemap:
  base_url: https://parts.example.com
  shard_capacity: 10000
  static_pages:
    - path: /
      changefreq: daily
      priority: 1.0
    - path: /about
      changefreq: monthly
      priority: 0.3
ping:
  enabled: true
  endpoints:
    - https://search.example.com/ping
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "localhost:9090", cfg.Server.Addr())
	assert.Equal(t, 5*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "parts", cfg.Database.Table)
	assert.Equal(t, 10000, cfg.Sitemap.ShardCapacity)
	assert.Equal(t, 2000, cfg.Sitemap.BatchSize)
	assert.Equal(t, "./public", cfg.Sitemap.OutputDir)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "sitemap:", cfg.Redis.KeyPrefix)
	assert.Equal(t, 10*time.Second, cfg.Ping.Timeout)
	assert.Equal(t, []string{"https://search.example.com/ping"}, cfg.Ping.Endpoints)
	assert.Equal(t, "info", cfg.Log.Level)

	require.Len(t, cfg.Sitemap.StaticPages, 2)
	assert.Equal(t, "/about", cfg.Sitemap.StaticPages[1].Path)
	assert.Equal(t, domain.ChangeFreqMonthly, cfg.Sitemap.StaticPages[1].ChangeFreq)
	assert.InDelta(t, 0.3, cfg.Sitemap.StaticPages[1].Priority, 1e-9)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, `
sitemap:
  base_url: https://parts.example.com
`)
	t.Setenv("SITEMAP_BASE_URL", "https://staging.example.com")
	t.Setenv("DATABASE_HOST", "replica")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://staging.example.com", cfg.Sitemap.BaseURL)
	assert.Equal(t, "replica", cfg.Database.Host)
}

func TestLoad_Invalid(t *testing.T) {
	path := writeConfig(t, `
sitemap:
  shard_capacity: 60000
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sitemap.base_url is required")
	assert.Contains(t, err.Error(), "sitemap.shard_capacity")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing database host", mutate: func(c *Config) { c.Database.Host = "" }, errMsg: "database.host"},
		{name: "missing database name", mutate: func(c *Config) { c.Database.Name = "" }, errMsg: "database.name"},
		{name: "missing database user", mutate: func(c *Config) { c.Database.User = "" }, errMsg: "database.user"},
		{name: "relative base url", mutate: func(c *Config) { c.Sitemap.BaseURL = "parts.example.com" }, errMsg: "absolute"},
		{name: "zero capacity", mutate: func(c *Config) { c.Sitemap.ShardCapacity = 0 }, errMsg: "shard_capacity"},
		{name: "capacity above limit", mutate: func(c *Config) { c.Sitemap.ShardCapacity = 50001 }, errMsg: "shard_capacity"},
		{name: "zero batch size", mutate: func(c *Config) { c.Sitemap.BatchSize = 0 }, errMsg: "batch_size"},
		{name: "ping without endpoints", mutate: func(c *Config) { c.Ping.Enabled = true }, errMsg: "ping.endpoints"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5432, Name: "catalog", User: "u", Password: "p", SSLMode: "require"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=catalog sslmode=require", c.DSN())
}
