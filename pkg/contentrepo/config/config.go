// Package config builds content repositories from configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Option applies configuration to a Config instance.
type Option func(*Config) error

// Load constructs a Config by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*Config, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() Config {
	return Config{
		DatabaseType:       "memory",
		DBSchema:           "content",
		CacheTTL:           5 * time.Minute,
		CacheKeyPrefix:     "contentrepo:",
		EnableEventLogging: false,
		LogLevel:           "info",
	}
}

// Config represents the settings used to open repository backends
type Config struct {
	// Database configuration
	DatabaseType string `yaml:"database_type" json:"database_type" toml:"database_type" env:"CONTENTREPO_DATABASE_TYPE" env-description:"Storage backend: memory or postgres"`
	DatabaseURL  string `yaml:"database_url" json:"database_url" toml:"database_url" env:"CONTENTREPO_DATABASE_URL" env-description:"PostgreSQL connection string; a postgres:// URL selects the postgres backend"`
	DBSchema     string `yaml:"db_schema" json:"db_schema" toml:"db_schema" env:"CONTENTREPO_DB_SCHEMA" env-description:"Postgres schema holding the content tables"`
	EnsureSchema bool   `yaml:"ensure_schema" json:"ensure_schema" toml:"ensure_schema" env:"CONTENTREPO_ENSURE_SCHEMA" env-description:"Create missing tables and indexes when a repository is built"`

	// Cache configuration
	CacheURL       string        `yaml:"cache_url" json:"cache_url" toml:"cache_url" env:"CONTENTREPO_CACHE_URL" env-description:"Redis URL for the lookup cache; empty disables caching"`
	CacheTTL       time.Duration `yaml:"cache_ttl" json:"cache_ttl" toml:"cache_ttl" env:"CONTENTREPO_CACHE_TTL" env-description:"Lifetime of a cached entity"`
	CacheKeyPrefix string        `yaml:"cache_key_prefix" json:"cache_key_prefix" toml:"cache_key_prefix" env:"CONTENTREPO_CACHE_KEY_PREFIX" env-description:"Prefix of every cache key"`

	// Observability
	EnableEventLogging bool   `yaml:"enable_event_logging" json:"enable_event_logging" toml:"enable_event_logging" env:"CONTENTREPO_EVENT_LOGGING" env-description:"Log every repository lifecycle event"`
	LogLevel           string `yaml:"log_level" json:"log_level" toml:"log_level" env:"CONTENTREPO_LOG_LEVEL" env-description:"debug, info, warn or error"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}

	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}

	if c.CacheURL != "" && c.CacheTTL <= 0 {
		return fmt.Errorf("cache_ttl must be positive when caching is enabled, got %s", c.CacheTTL)
	}

	if _, err := c.Level(); err != nil {
		return err
	}

	return nil
}

// Level returns the parsed log level.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return level, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

func isPostgresURL(url string) bool {
	return strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://")
}
