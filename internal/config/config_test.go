package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Sternrassler/gh-harvest/pkg/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GITHUB_TOKEN", "HARVEST_TOKEN", "HARVEST_PER_PAGE", "HARVEST_START_PAGE",
		"HARVEST_REDIS_ADDR", "HARVEST_LOG_LEVEL", "HARVEST_MAX_FORBIDDEN_RETRIES",
	} {
		t.Setenv(key, "")
	}
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "harvest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "", cfg.Token)
	assert.Equal(t, client.DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, 1, cfg.StartPage)
	assert.Equal(t, 30, cfg.PerPage)
	assert.Equal(t, time.Second, cfg.CourtesyDelay)
	assert.Equal(t, 0, cfg.MaxForbiddenRetries)
	assert.Equal(t, "res.json", cfg.Output)
	assert.False(t, cfg.Console)
	assert.Equal(t, 10*time.Minute, cfg.Redis.TTL)
	assert.False(t, cfg.RedisEnabled())
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_GitHubTokenEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("GITHUB_TOKEN", "ghp_from_env")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "ghp_from_env", cfg.Token)
}

func TestLoad_PrefixedTokenWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("GITHUB_TOKEN", "ghp_generic")
	t.Setenv("HARVEST_TOKEN", "ghp_specific")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "ghp_specific", cfg.Token)
}

func TestLoad_FromYAMLAndEnv(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, `
token: ghp_yaml
start_page: 3
per_page: 100
courtesy_delay: 250ms
max_forbidden_retries: 5
output: out/repos.json
redis:
  addr: localhost:6379
  ttl: 1h
log:
  level: debug
  pretty: true
`)
	t.Setenv("HARVEST_PER_PAGE", "50")
	t.Setenv("HARVEST_REDIS_ADDR", "cache:6380")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ghp_yaml", cfg.Token)
	assert.Equal(t, 3, cfg.StartPage)
	assert.Equal(t, 50, cfg.PerPage, "env overrides file")
	assert.Equal(t, 250*time.Millisecond, cfg.CourtesyDelay)
	assert.Equal(t, 5, cfg.MaxForbiddenRetries)
	assert.Equal(t, "out/repos.json", cfg.Output)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
	assert.Equal(t, time.Hour, cfg.Redis.TTL)
	assert.True(t, cfg.RedisEnabled())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Pretty)

	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate_MissingToken(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingToken))
	assert.True(t, errors.Is(err, client.ErrMissingToken))
}

func TestValidate_Constraints(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"per_page too large", func(c *Config) { c.PerPage = 101 }},
		{"per_page zero", func(c *Config) { c.PerPage = 0 }},
		{"start_page zero", func(c *Config) { c.StartPage = 0 }},
		{"negative retries", func(c *Config) { c.MaxForbiddenRetries = -1 }},
		{"negative delay", func(c *Config) { c.CourtesyDelay = -time.Second }},
		{"bad base url", func(c *Config) { c.BaseURL = "not a url" }},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("GITHUB_TOKEN", "ghp_test")

			cfg, err := Load("")
			require.NoError(t, err)
			require.NoError(t, cfg.Validate())

			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.False(t, errors.Is(err, ErrMissingToken))
		})
	}
}
