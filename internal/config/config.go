// Package config loads and validates setkeeper configuration: a YAML file,
// environment overrides, then validation. Validation runs before any remote
// call, so a bad pattern or missing credential fails the process at startup.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"setkeeper/internal/keys"
	"setkeeper/internal/paging"
	"setkeeper/internal/retry"
)

// Config holds all setkeeper configuration.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Retry   RetryConfig   `yaml:"retry"`
	Paging  PagingConfig  `yaml:"paging"`
	Keys    KeysConfig    `yaml:"keys"`
	Cache   CacheConfig   `yaml:"cache"`
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig carries the finished OAuth session for the photo service. The
// handshake that produces these tokens is outside this tool.
type APIConfig struct {
	Key              string `yaml:"key"`
	Secret           string `yaml:"secret"`
	OAuthToken       string `yaml:"oauth_token"`
	OAuthTokenSecret string `yaml:"oauth_token_secret"`
	UserID           string `yaml:"user_id"`
}

// RetryConfig tunes the retry policy applied to every remote call.
type RetryConfig struct {
	MaxAttempts int     `yaml:"max_attempts"`
	BaseDelay   string  `yaml:"base_delay"`
	Multiplier  float64 `yaml:"multiplier"`
	MaxDelay    string  `yaml:"max_delay"`
	Breaker     bool    `yaml:"breaker"`
}

// Policy converts the config into a retry.Policy. Call Validate first; this
// method assumes the durations parse.
func (c RetryConfig) Policy() retry.Policy {
	p := retry.DefaultPolicy()
	if c.MaxAttempts > 0 {
		p.MaxAttempts = c.MaxAttempts
	}
	if c.BaseDelay != "" {
		if d, err := time.ParseDuration(c.BaseDelay); err == nil {
			p.BaseDelay = d
		}
	}
	if c.Multiplier >= 1 {
		p.Multiplier = c.Multiplier
	}
	if c.MaxDelay != "" {
		if d, err := time.ParseDuration(c.MaxDelay); err == nil {
			p.MaxDelay = d
		}
	}
	return p
}

// PagingConfig tunes paged reads.
type PagingConfig struct {
	PageSize int `yaml:"page_size"`
}

// KeysConfig configures key extraction and category matching.
type KeysConfig struct {
	Predicates keys.Predicates    `yaml:"predicates"`
	Patterns   keys.MatcherConfig `yaml:"patterns"`
}

// CacheConfig configures the optional on-disk collection cache.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "setkeeper.yaml"
	}
	return filepath.Join(home, ".setkeeper", "config.yaml")
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Retry: RetryConfig{
			MaxAttempts: 5,
			BaseDelay:   "1s",
			Multiplier:  2,
			MaxDelay:    "2m",
		},
		Paging:  PagingConfig{PageSize: paging.MaxPageSize},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads the YAML file at path (DefaultPath when empty), applies
// environment overrides, and validates. A missing file is not an error;
// overrides and defaults may still produce a usable config.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Fall through to env overrides.
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SETKEEPER_API_KEY"); v != "" {
		c.API.Key = v
	}
	if v := os.Getenv("SETKEEPER_API_SECRET"); v != "" {
		c.API.Secret = v
	}
	if v := os.Getenv("SETKEEPER_OAUTH_TOKEN"); v != "" {
		c.API.OAuthToken = v
	}
	if v := os.Getenv("SETKEEPER_OAUTH_TOKEN_SECRET"); v != "" {
		c.API.OAuthTokenSecret = v
	}
	if v := os.Getenv("SETKEEPER_USER_ID"); v != "" {
		c.API.UserID = v
	}
}

// Validate checks everything that can be checked without touching the
// network.
func (c *Config) Validate() error {
	if c.API.Key == "" || c.API.Secret == "" {
		return fmt.Errorf("api key and secret are required (config file or SETKEEPER_API_KEY/SETKEEPER_API_SECRET)")
	}
	if c.API.OAuthToken == "" || c.API.OAuthTokenSecret == "" {
		return fmt.Errorf("oauth token and token secret are required; authenticate first")
	}

	if c.Paging.PageSize < 0 || c.Paging.PageSize > paging.MaxPageSize {
		return fmt.Errorf("paging.page_size must be between 1 and %d, got %d", paging.MaxPageSize, c.Paging.PageSize)
	}

	if c.Retry.MaxAttempts < 0 {
		return fmt.Errorf("retry.max_attempts must not be negative, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.BaseDelay != "" {
		if _, err := time.ParseDuration(c.Retry.BaseDelay); err != nil {
			return fmt.Errorf("retry.base_delay: %w", err)
		}
	}
	if c.Retry.MaxDelay != "" {
		if _, err := time.ParseDuration(c.Retry.MaxDelay); err != nil {
			return fmt.Errorf("retry.max_delay: %w", err)
		}
	}
	if c.Retry.Multiplier != 0 && c.Retry.Multiplier < 1 {
		return fmt.Errorf("retry.multiplier must be at least 1, got %g", c.Retry.Multiplier)
	}

	// Compile the category patterns now so a bad regex is a startup error,
	// not a mid-batch one.
	if _, err := keys.NewMatcher(c.Keys.Patterns); err != nil {
		return err
	}

	if c.Cache.Enabled && c.Cache.Path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cache enabled but no path and no home directory: %w", err)
		}
		c.Cache.Path = filepath.Join(home, ".setkeeper", "cache.db")
	}

	return nil
}
