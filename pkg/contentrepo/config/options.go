package config

import (
	"fmt"
	"time"
)

// WithDatabase configures the database backend
func WithDatabase(dbType, url string) Option {
	return func(c *Config) error {
		if dbType != "memory" && dbType != "postgres" {
			return fmt.Errorf("database type must be 'memory' or 'postgres', got: %s", dbType)
		}
		if dbType == "postgres" && url == "" {
			return fmt.Errorf("database URL is required for postgres")
		}
		c.DatabaseType = dbType
		c.DatabaseURL = url
		return nil
	}
}

// WithDBSchema sets the Postgres schema holding the content tables
func WithDBSchema(schema string) Option {
	return func(c *Config) error {
		c.DBSchema = schema
		return nil
	}
}

// WithEnsureSchema enables table provisioning when repositories are built
func WithEnsureSchema(enabled bool) Option {
	return func(c *Config) error {
		c.EnsureSchema = enabled
		return nil
	}
}

// WithCache enables the Redis lookup cache
func WithCache(url string, ttl time.Duration) Option {
	return func(c *Config) error {
		if url == "" {
			return fmt.Errorf("cache URL cannot be empty")
		}
		c.CacheURL = url
		if ttl > 0 {
			c.CacheTTL = ttl
		}
		return nil
	}
}

// WithEventLogging enables or disables lifecycle event logging
func WithEventLogging(enabled bool) Option {
	return func(c *Config) error {
		c.EnableEventLogging = enabled
		return nil
	}
}

// WithLogLevel sets the minimum level of repository logs
func WithLogLevel(level string) Option {
	return func(c *Config) error {
		if level == "" {
			return fmt.Errorf("log level cannot be empty")
		}
		c.LogLevel = level
		return nil
	}
}
