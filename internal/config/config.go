// Package config loads jazzref's YAML-plus-environment configuration:
// a Default(), Load(path), and validate() pipeline.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Cache     CacheConfig     `yaml:"cache"`
	Providers ProvidersConfig `yaml:"providers"`
	Importer  ImporterConfig  `yaml:"importer"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig controls the on-disk provider response cache.
type CacheConfig struct {
	Dir          string        `yaml:"dir"`
	MetadataTTL  time.Duration `yaml:"metadata_ttl"`
	PageTTL      time.Duration `yaml:"page_ttl"`
	ForceRefresh bool          `yaml:"force_refresh"`
}

// ProvidersConfig carries the credentials and overrides every provider
// adapter needs. Base URLs are compile-time constants and are not
// configurable here; only credentials and feature toggles are.
type ProvidersConfig struct {
	SpotifyClientID     string `yaml:"-"`
	SpotifyClientSecret string `yaml:"-"`
	UserAgent           string `yaml:"user_agent"`
}

// ImporterConfig holds default enrichment pipeline behavior.
type ImporterConfig struct {
	DefaultLimit   int  `yaml:"default_limit"`
	DryRunDefault  bool `yaml:"dry_run_default"`
	MatchStreaming bool `yaml:"match_streaming"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "/data/jazzref.db",
		},
		Cache: CacheConfig{
			Dir:         "/data/cache",
			MetadataTTL: 30 * 24 * time.Hour,
			PageTTL:     7 * 24 * time.Hour,
		},
		Providers: ProvidersConfig{
			UserAgent: "jazzref/1.0 ( https://github.com/dprodger/jazzref )",
		},
		Importer: ImporterConfig{
			DefaultLimit: 0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads config from a YAML file (if it exists) and overrides with
// environment variables. Environment variables take precedence, and are
// the only source for provider credentials — consumer service B's
// OAuth client credentials are never read from the YAML file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("JAZZREF_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("JAZZREF_CACHE_DIR"); v != "" {
		c.Cache.Dir = v
	}
	if v := os.Getenv("JAZZREF_FORCE_REFRESH"); v != "" {
		c.Cache.ForceRefresh = v == "true" || v == "1"
	}
	if v := os.Getenv("JAZZREF_USER_AGENT"); v != "" {
		c.Providers.UserAgent = v
	}
	// Spotify is consumer service B; its OAuth2 client-credentials grant
	// is never read from a config file.
	c.Providers.SpotifyClientID = os.Getenv("JAZZREF_SPOTIFY_CLIENT_ID")
	c.Providers.SpotifyClientSecret = os.Getenv("JAZZREF_SPOTIFY_CLIENT_SECRET")

	if v := os.Getenv("JAZZREF_IMPORT_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Importer.DefaultLimit = n
		}
	}
	if v := os.Getenv("JAZZREF_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("JAZZREF_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
}

func (c *Config) validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Cache.Dir == "" {
		return fmt.Errorf("cache dir is required")
	}
	if c.Cache.MetadataTTL <= 0 {
		c.Cache.MetadataTTL = 30 * 24 * time.Hour
	}
	if c.Cache.PageTTL <= 0 {
		c.Cache.PageTTL = 7 * 24 * time.Hour
	}
	return nil
}
