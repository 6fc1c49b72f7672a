package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SETKEEPER_API_KEY", "k")
	t.Setenv("SETKEEPER_API_SECRET", "s")
	t.Setenv("SETKEEPER_OAUTH_TOKEN", "tok")
	t.Setenv("SETKEEPER_OAUTH_TOKEN_SECRET", "toksec")
}

func TestLoad_MissingFileWithEnvOverrides(t *testing.T) {
	validEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "k", cfg.API.Key)
	assert.Equal(t, 500, cfg.Paging.PageSize)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
}

func TestLoad_FileValuesAndEnvPrecedence(t *testing.T) {
	validEnv(t)
	t.Setenv("SETKEEPER_API_KEY", "env-key")
	t.Setenv("SETKEEPER_API_SECRET", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  key: file-key
  secret: file-secret
  oauth_token: file-token
  oauth_token_secret: file-token-secret
  user_id: "12345@N00"
retry:
  max_attempts: 3
  base_delay: 500ms
  multiplier: 8
paging:
  page_size: 250
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	// Env wins over file; an empty env var leaves the file value in place.
	assert.Equal(t, "env-key", cfg.API.Key)
	assert.Equal(t, "file-secret", cfg.API.Secret)
	assert.Equal(t, "12345@N00", cfg.API.UserID)
	assert.Equal(t, 250, cfg.Paging.PageSize)

	p := cfg.Retry.Policy()
	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, p.BaseDelay)
	assert.Equal(t, float64(8), p.Multiplier)
}

func TestLoad_MissingCredentialsFatal(t *testing.T) {
	t.Setenv("SETKEEPER_API_KEY", "")
	t.Setenv("SETKEEPER_API_SECRET", "")
	t.Setenv("SETKEEPER_OAUTH_TOKEN", "")
	t.Setenv("SETKEEPER_OAUTH_TOKEN_SECRET", "")

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key")
}

func TestLoad_InvalidPatternFatal(t *testing.T) {
	validEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
keys:
  patterns:
    country: "(unclosed"
`), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "country")
}

func TestValidate_Bounds(t *testing.T) {
	validEnv(t)

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"page size too large", func(c *Config) { c.Paging.PageSize = 501 }},
		{"negative attempts", func(c *Config) { c.Retry.MaxAttempts = -1 }},
		{"multiplier below one", func(c *Config) { c.Retry.Multiplier = 0.5 }},
		{"bad base delay", func(c *Config) { c.Retry.BaseDelay = "soon" }},
		{"bad max delay", func(c *Config) { c.Retry.MaxDelay = "later" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			cfg.applyEnvOverrides()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_CacheDefaultPath(t *testing.T) {
	validEnv(t)

	cfg := Default()
	cfg.applyEnvOverrides()
	cfg.Cache.Enabled = true
	require.NoError(t, cfg.Validate())
	assert.NotEmpty(t, cfg.Cache.Path)
}
