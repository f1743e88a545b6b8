package memory

import (
	"context"

	"github.com/google/uuid"
	"github.com/tendant/contentrepo/pkg/contentrepo"
)

// UserContentRepository implements contentrepo.UserContentRepository using in-memory storage.
type UserContentRepository[E any, T contentrepo.OwnedEntityPtr[E]] struct {
	*Repository[E, T]
}

// NewUserContent creates a new in-memory repository for owned entities of type E.
func NewUserContent[E any, T contentrepo.OwnedEntityPtr[E]](opts ...contentrepo.Option) *UserContentRepository[E, T] {
	return &UserContentRepository[E, T]{Repository: New[E, T](opts...)}
}

func ownedBy[T contentrepo.OwnedEntity](userID uuid.UUID) func(T) bool {
	return func(e T) bool { return e.Owned().OwnerID == userID }
}

func (r *UserContentRepository[E, T]) TryGetByUser(ctx context.Context, userID uuid.UUID) (contentrepo.ResultOf[[]T], error) {
	if userID == uuid.Nil {
		res := r.opts.Failed(ctx, contentrepo.OpGetByUser, contentrepo.NilUserID(contentrepo.OpGetByUser))
		return contentrepo.FailureOf[[]T](res.Message()), nil
	}
	return r.query(ctx, contentrepo.OpGetByUser, contentrepo.NewCriteria[T](all[T]), ownedBy[T](userID))
}

func (r *UserContentRepository[E, T]) TryGetByUserPaged(ctx context.Context, userID uuid.UUID, pageInfo contentrepo.PaginationInfo) (contentrepo.ResultOf[[]T], error) {
	if userID == uuid.Nil {
		res := r.opts.Failed(ctx, contentrepo.OpGetByUser, contentrepo.NilUserID(contentrepo.OpGetByUser))
		return contentrepo.FailureOf[[]T](res.Message()), nil
	}
	criteria := contentrepo.NewCriteria[T](all[T], contentrepo.WithPage[T](pageInfo))
	return r.query(ctx, contentrepo.OpGetByUser, criteria, ownedBy[T](userID))
}

// TryPermanentRemoveAllForUser erases every entity owned by userID, soft-deleted
// ones included. Owning nothing is not a failure.
func (r *UserContentRepository[E, T]) TryPermanentRemoveAllForUser(ctx context.Context, userID uuid.UUID) (contentrepo.Result, error) {
	op := contentrepo.OpPurgeForUser
	if userID == uuid.Nil {
		return r.opts.Failed(ctx, op, contentrepo.NilUserID(op)), nil
	}

	purged := 0
	res, err := r.write(ctx, op, func() (contentrepo.Result, []contentrepo.Event) {
		owned := r.scanLocked(true, ownedBy[T](userID))
		events := make([]contentrepo.Event, 0, len(owned))
		for _, e := range owned {
			delete(r.entities, e.Base().ID())
			events = append(events, contentrepo.RemovedEvent(e.Base().ID()))
		}
		purged = len(owned)
		return contentrepo.Success(), events
	})
	if err != nil || res.IsFailure() {
		return res, err
	}

	r.opts.Publish(ctx, contentrepo.PurgedEvent(userID, purged))
	return res, nil
}
