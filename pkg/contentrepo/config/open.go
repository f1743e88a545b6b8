package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/tendant/contentrepo/pkg/contentrepo"
	"github.com/tendant/contentrepo/pkg/contentrepo/repo/cached"
	"github.com/tendant/contentrepo/pkg/contentrepo/repo/memory"
	"github.com/tendant/contentrepo/pkg/contentrepo/repo/postgres"
)

// Backend holds the shared connections that repositories are built on.
// One Backend serves any number of repositories; close it once at shutdown.
type Backend struct {
	Config *Config
	Logger *slog.Logger
	Events contentrepo.EventSink

	// Pool is nil for the memory backend.
	Pool *pgxpool.Pool
	// Redis is nil when caching is disabled.
	Redis *redis.Client
}

// Open connects to the configured database and cache.
func (c *Config) Open(ctx context.Context) (*Backend, error) {
	level, err := c.Level()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	b := &Backend{
		Config: c,
		Logger: logger,
		Events: contentrepo.NewNoopEventSink(),
	}
	if c.EnableEventLogging {
		b.Events = contentrepo.NewLoggingEventSink(logger)
	}

	if c.DatabaseType == "postgres" {
		pool, err := pgxpool.New(ctx, c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		if err := ping(ctx, pool.Ping); err != nil {
			pool.Close()
			return nil, fmt.Errorf("database ping failed: %w", err)
		}
		b.Pool = pool
	}

	if c.CacheURL != "" {
		opts, err := redis.ParseURL(c.CacheURL)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to parse cache_url: %w", err)
		}
		client := redis.NewClient(opts)
		if err := ping(ctx, func(ctx context.Context) error { return client.Ping(ctx).Err() }); err != nil {
			_ = client.Close()
			b.Close()
			return nil, fmt.Errorf("cache ping failed: %w", err)
		}
		b.Redis = client
	}

	return b, nil
}

func ping(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return fn(ctx)
}

// Close releases the database pool and the cache client.
func (b *Backend) Close() error {
	var errs []error
	if b.Redis != nil {
		errs = append(errs, b.Redis.Close())
	}
	if b.Pool != nil {
		b.Pool.Close()
	}
	return errors.Join(errs...)
}

// Options returns the repository options for entities stored under name.
// Callers may append their own options to override these.
func (b *Backend) Options(name string) []contentrepo.Option {
	return []contentrepo.Option{
		contentrepo.WithKind(name),
		contentrepo.WithLogger(b.Logger),
		contentrepo.WithEventSink(b.Events),
	}
}

func (b *Backend) table(name string) postgres.Table {
	return postgres.Table{Schema: b.Config.DBSchema, Name: name}
}

func (b *Backend) cacheConfig() cached.Config {
	return cached.Config{TTL: b.Config.CacheTTL, KeyPrefix: b.Config.CacheKeyPrefix}
}

type schemaEnsurer interface {
	EnsureSchema(ctx context.Context) error
}

func (b *Backend) ensure(ctx context.Context, repo schemaEnsurer, name string) error {
	if !b.Config.EnsureSchema {
		return nil
	}
	if err := repo.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to provision table %s: %w", name, err)
	}
	b.Logger.InfoContext(ctx, "Provisioned content table", "table", b.table(name).String())
	return nil
}

// NewContentRepository builds the repository for entities of type E stored under name.
func NewContentRepository[E any, T contentrepo.EntityPtr[E]](ctx context.Context, b *Backend, name string, opts ...contentrepo.Option) (contentrepo.ContentRepository[T], error) {
	if name == "" {
		return nil, errors.New("repository name is required")
	}
	opts = append(b.Options(name), opts...)

	var repo contentrepo.ContentRepository[T]
	switch b.Config.DatabaseType {
	case "memory":
		repo = memory.New[E, T](opts...)
	case "postgres":
		pg := postgres.New[E, T](b.Pool, b.table(name), opts...)
		if err := b.ensure(ctx, pg, name); err != nil {
			return nil, err
		}
		repo = pg
	default:
		return nil, fmt.Errorf("unsupported database type: %s", b.Config.DatabaseType)
	}

	if b.Redis != nil {
		repo = cached.Wrap[E, T](repo, b.Redis, b.cacheConfig(), opts...)
	}
	return repo, nil
}

// NewUserContentRepository builds the repository for owned entities of type E stored under name.
func NewUserContentRepository[E any, T contentrepo.OwnedEntityPtr[E]](ctx context.Context, b *Backend, name string, opts ...contentrepo.Option) (contentrepo.UserContentRepository[T], error) {
	if name == "" {
		return nil, errors.New("repository name is required")
	}
	opts = append(b.Options(name), opts...)

	var repo contentrepo.UserContentRepository[T]
	switch b.Config.DatabaseType {
	case "memory":
		repo = memory.NewUserContent[E, T](opts...)
	case "postgres":
		pg := postgres.NewUserContent[E, T](b.Pool, b.table(name), opts...)
		if err := b.ensure(ctx, pg, name); err != nil {
			return nil, err
		}
		repo = pg
	default:
		return nil, fmt.Errorf("unsupported database type: %s", b.Config.DatabaseType)
	}

	if b.Redis != nil {
		repo = cached.WrapUser[E, T](repo, b.Redis, b.cacheConfig(), opts...)
	}
	return repo, nil
}
