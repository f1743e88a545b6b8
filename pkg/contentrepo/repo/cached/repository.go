// Package cached provides a Redis read-through cache in front of any content repository.
package cached

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/tendant/contentrepo/pkg/contentrepo"
)

// Config configures the cache behavior
type Config struct {
	// TTL bounds how long an entry can outlive a change made by another process
	TTL time.Duration

	// KeyPrefix is prepended to all cache keys
	KeyPrefix string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		TTL:       5 * time.Minute,
		KeyPrefix: "contentrepo:",
	}
}

// Repository caches TryGetByID lookups in Redis and evicts an entry whenever
// a write through this repository changes it. Every other call goes straight
// to the wrapped repository.
//
// Cache faults never fail an operation; they are logged and the wrapped
// repository answers instead.
type Repository[E any, T contentrepo.EntityPtr[E]] struct {
	contentrepo.ContentRepository[T]

	client redis.UniversalClient
	config Config
	opts   contentrepo.Options

	hits   atomic.Int64
	misses atomic.Int64
}

// Wrap puts a cache in front of inner.
func Wrap[E any, T contentrepo.EntityPtr[E]](inner contentrepo.ContentRepository[T], client redis.UniversalClient, config Config, opts ...contentrepo.Option) *Repository[E, T] {
	if config.TTL <= 0 {
		config.TTL = DefaultConfig().TTL
	}
	return &Repository[E, T]{
		ContentRepository: inner,
		client:            client,
		config:            config,
		opts:              contentrepo.NewOptions(opts...),
	}
}

// Key returns the cache key of the entity id.
func (r *Repository[E, T]) Key(id uuid.UUID) string {
	return fmt.Sprintf("%s%s:%s", r.config.KeyPrefix, r.opts.Kind, id)
}

func (r *Repository[E, T]) ownerKey(userID uuid.UUID) string {
	return fmt.Sprintf("%s%s:owner:%s", r.config.KeyPrefix, r.opts.Kind, userID)
}

// Stats returns the number of cache hits and misses so far.
func (r *Repository[E, T]) Stats() (hits, misses int64) {
	return r.hits.Load(), r.misses.Load()
}

func (r *Repository[E, T]) TryGetByID(ctx context.Context, id uuid.UUID) (contentrepo.ResultOf[T], error) {
	if err := ctx.Err(); err != nil {
		return contentrepo.ResultOf[T]{}, err
	}

	if e, ok := r.lookup(ctx, id); ok {
		r.hits.Add(1)
		return contentrepo.SuccessOf(e), nil
	}
	r.misses.Add(1)

	res, err := r.ContentRepository.TryGetByID(ctx, id)
	if err != nil {
		return res, err
	}
	if e, ok := res.TryGet(); ok {
		r.store(ctx, e)
	}
	return res, nil
}

func (r *Repository[E, T]) lookup(ctx context.Context, id uuid.UUID) (T, bool) {
	data, err := r.client.Get(ctx, r.Key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		r.opts.Logger.WarnContext(ctx, "Cache get error", "kind", r.opts.Kind, "id", id, "err", err)
		return nil, false
	}

	e, err := contentrepo.DecodeEntity[E, T](data)
	if err != nil {
		r.opts.Logger.WarnContext(ctx, "Cache entry is invalid", "kind", r.opts.Kind, "id", id, "err", err)
		r.evict(ctx, id)
		return nil, false
	}
	return e, true
}

func (r *Repository[E, T]) store(ctx context.Context, e T) {
	id := e.Base().ID()
	data, err := contentrepo.EncodeEntity(e)
	if err != nil {
		r.opts.Logger.WarnContext(ctx, "Cache marshal error", "kind", r.opts.Kind, "id", id, "err", err)
		return
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.Key(id), data, r.config.TTL)
		if owned, ok := any(e).(contentrepo.OwnedEntity); ok {
			// The owner index lives at least as long as any entry it lists.
			key := r.ownerKey(owned.Owned().OwnerID)
			pipe.SAdd(ctx, key, id.String())
			pipe.Expire(ctx, key, r.config.TTL)
		}
		return nil
	})
	if err != nil {
		r.opts.Logger.WarnContext(ctx, "Cache set error", "kind", r.opts.Kind, "id", id, "err", err)
	}
}

func (r *Repository[E, T]) evict(ctx context.Context, ids ...uuid.UUID) {
	if len(ids) == 0 {
		return
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.Key(id)
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		r.opts.Logger.WarnContext(ctx, "Cache delete error", "kind", r.opts.Kind, "keys", keys, "err", err)
	}
}

// evicted drops the cached copies of models once the write has succeeded.
func (r *Repository[E, T]) evicted(ctx context.Context, res contentrepo.Result, err error, models ...T) (contentrepo.Result, error) {
	if err != nil || res.IsFailure() {
		return res, err
	}
	ids := make([]uuid.UUID, 0, len(models))
	for _, m := range models {
		if (*E)(m) != nil {
			ids = append(ids, m.Base().ID())
		}
	}
	r.evict(ctx, ids...)
	return res, nil
}

// Write operations that can change a stored entity

func (r *Repository[E, T]) TryUpdate(ctx context.Context, model T) (contentrepo.Result, error) {
	res, err := r.ContentRepository.TryUpdate(ctx, model)
	return r.evicted(ctx, res, err, model)
}

func (r *Repository[E, T]) TryUpdateWithResult(ctx context.Context, model T) (contentrepo.ResultOf[T], error) {
	res, err := r.ContentRepository.TryUpdateWithResult(ctx, model)
	_, err = r.evicted(ctx, res.Result(), err, model)
	return res, err
}

func (r *Repository[E, T]) TryUpdateRange(ctx context.Context, models []T) (contentrepo.Result, error) {
	res, err := r.ContentRepository.TryUpdateRange(ctx, models)
	return r.evicted(ctx, res, err, models...)
}

func (r *Repository[E, T]) TryAddOrUpdate(ctx context.Context, model T) (contentrepo.Result, error) {
	res, err := r.ContentRepository.TryAddOrUpdate(ctx, model)
	return r.evicted(ctx, res, err, model)
}

func (r *Repository[E, T]) TryAddOrUpdateRange(ctx context.Context, models []T) (contentrepo.Result, error) {
	res, err := r.ContentRepository.TryAddOrUpdateRange(ctx, models)
	return r.evicted(ctx, res, err, models...)
}

func (r *Repository[E, T]) TryDelete(ctx context.Context, model T) (contentrepo.Result, error) {
	res, err := r.ContentRepository.TryDelete(ctx, model)
	return r.evicted(ctx, res, err, model)
}

func (r *Repository[E, T]) TryDeleteRange(ctx context.Context, models []T) (contentrepo.Result, error) {
	res, err := r.ContentRepository.TryDeleteRange(ctx, models)
	return r.evicted(ctx, res, err, models...)
}

func (r *Repository[E, T]) TryRemove(ctx context.Context, model T) (contentrepo.Result, error) {
	res, err := r.ContentRepository.TryRemove(ctx, model)
	return r.evicted(ctx, res, err, model)
}

func (r *Repository[E, T]) TryRemoveRange(ctx context.Context, models []T) (contentrepo.Result, error) {
	res, err := r.ContentRepository.TryRemoveRange(ctx, models)
	return r.evicted(ctx, res, err, models...)
}
