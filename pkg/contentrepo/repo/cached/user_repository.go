package cached

import (
	"context"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/tendant/contentrepo/pkg/contentrepo"
)

// UserRepository is Repository for owned content. Purging a user also drops
// every cached entry recorded for that owner.
type UserRepository[E any, T contentrepo.OwnedEntityPtr[E]] struct {
	*Repository[E, T]
	users contentrepo.UserContentRepository[T]
}

// WrapUser puts a cache in front of inner.
func WrapUser[E any, T contentrepo.OwnedEntityPtr[E]](inner contentrepo.UserContentRepository[T], client redis.UniversalClient, config Config, opts ...contentrepo.Option) *UserRepository[E, T] {
	return &UserRepository[E, T]{
		Repository: Wrap[E, T](inner, client, config, opts...),
		users:      inner,
	}
}

func (r *UserRepository[E, T]) TryGetByUser(ctx context.Context, userID uuid.UUID) (contentrepo.ResultOf[[]T], error) {
	return r.users.TryGetByUser(ctx, userID)
}

func (r *UserRepository[E, T]) TryGetByUserPaged(ctx context.Context, userID uuid.UUID, pageInfo contentrepo.PaginationInfo) (contentrepo.ResultOf[[]T], error) {
	return r.users.TryGetByUserPaged(ctx, userID, pageInfo)
}

func (r *UserRepository[E, T]) TryPermanentRemoveAllForUser(ctx context.Context, userID uuid.UUID) (contentrepo.Result, error) {
	res, err := r.users.TryPermanentRemoveAllForUser(ctx, userID)
	if err != nil || res.IsFailure() {
		return res, err
	}

	key := r.ownerKey(userID)
	members, err := r.client.SMembers(ctx, key).Result()
	if err != nil {
		r.opts.Logger.WarnContext(ctx, "Cache owner index error", "kind", r.opts.Kind, "user_id", userID, "err", err)
		return res, nil
	}

	keys := []string{key}
	for _, member := range members {
		id, err := uuid.Parse(member)
		if err != nil {
			continue
		}
		keys = append(keys, r.Key(id))
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		r.opts.Logger.WarnContext(ctx, "Cache delete error", "kind", r.opts.Kind, "keys", keys, "err", err)
	}
	return res, nil
}
