package contentrepo

import (
	"context"

	"github.com/google/uuid"
)

// Operation names used in failure messages, log records and RepositoryError.
const (
	OpAdd            = "add"
	OpAddRange       = "add range"
	OpUpdate         = "update"
	OpUpdateRange    = "update range"
	OpAddOrUpdate    = "add or update"
	OpAddOrUpdateRng = "add or update range"
	OpDelete         = "delete"
	OpDeleteRange    = "delete range"
	OpRemove         = "remove"
	OpRemoveRange    = "remove range"
	OpGetByID        = "get by id"
	OpGetAll         = "get all"
	OpGetByCriteria  = "get by criteria"
	OpCount          = "count"
	OpGetByUser      = "get by user"
	OpPurgeForUser   = "permanent remove all for user"
)

// Every capability reports expected outcomes (not found, invalid input,
// conflicts) through Result or ResultOf. The error return is reserved for
// infrastructure faults and for ctx cancellation.
//
// Range operations are all-or-nothing: either every entity is applied or
// none is.

// Adder persists new entities.
type Adder[T Entity] interface {
	// TryAdd stores a new entity. It fails if the id already exists.
	TryAdd(ctx context.Context, model T) (Result, error)

	// TryAddWithResult stores a new entity and returns it on success.
	TryAddWithResult(ctx context.Context, model T) (ResultOf[T], error)

	// TryAddRange stores new entities.
	TryAddRange(ctx context.Context, models []T) (Result, error)
}

// Updater persists field changes to live entities and advances their
// last-modified date.
type Updater[T Entity] interface {
	TryUpdate(ctx context.Context, model T) (Result, error)
	TryUpdateWithResult(ctx context.Context, model T) (ResultOf[T], error)
	TryUpdateRange(ctx context.Context, models []T) (Result, error)
}

// AddOrUpdater adds entities whose id is absent and updates those that are live.
type AddOrUpdater[T Entity] interface {
	TryAddOrUpdate(ctx context.Context, model T) (Result, error)
	TryAddOrUpdateRange(ctx context.Context, models []T) (Result, error)
}

// Deleter soft-deletes live entities. They stay in storage but disappear
// from every default read.
type Deleter[T Entity] interface {
	TryDelete(ctx context.Context, model T) (Result, error)
	TryDeleteRange(ctx context.Context, models []T) (Result, error)
}

// Remover physically erases entities, live or soft-deleted. It cannot be undone.
type Remover[T Entity] interface {
	TryRemove(ctx context.Context, model T) (Result, error)
	TryRemoveRange(ctx context.Context, models []T) (Result, error)
}

// ByIDGetter looks up a live entity by id.
type ByIDGetter[T Entity] interface {
	TryGetByID(ctx context.Context, id uuid.UUID) (ResultOf[T], error)
}

// AllGetter lists live entities in ascending id order.
type AllGetter[T Entity] interface {
	TryGetAll(ctx context.Context) (ResultOf[[]T], error)
	TryGetAllPaged(ctx context.Context, pageInfo PaginationInfo) (ResultOf[[]T], error)
}

// CriteriaGetter lists live entities matching a predicate.
type CriteriaGetter[T Entity] interface {
	TryGetByCriteria(ctx context.Context, predicate Predicate[T], opts ...CriteriaOption[T]) (ResultOf[[]T], error)
	TryGetByIndexedCriteria(ctx context.Context, predicate IndexedPredicate[T], opts ...CriteriaOption[T]) (ResultOf[[]T], error)
}

// Counter counts live entities.
type Counter interface {
	TryCount(ctx context.Context) (ResultOf[int], error)
}

// ByUserGetter lists live entities owned by a user in ascending id order.
type ByUserGetter[T OwnedEntity] interface {
	TryGetByUser(ctx context.Context, userID uuid.UUID) (ResultOf[[]T], error)
	TryGetByUserPaged(ctx context.Context, userID uuid.UUID, pageInfo PaginationInfo) (ResultOf[[]T], error)
}

// UserPurger erases every entity owned by a user, soft-deleted ones included.
type UserPurger interface {
	TryPermanentRemoveAllForUser(ctx context.Context, userID uuid.UUID) (Result, error)
}

// ContentRepository is the full set of capabilities for content that has no owner.
type ContentRepository[T Entity] interface {
	Adder[T]
	Updater[T]
	AddOrUpdater[T]
	Deleter[T]
	Remover[T]
	ByIDGetter[T]
	AllGetter[T]
	CriteriaGetter[T]
	Counter
}

// UserContentRepository adds the user-scoped capabilities for owned content.
type UserContentRepository[T OwnedEntity] interface {
	ContentRepository[T]
	ByUserGetter[T]
	UserPurger
}
