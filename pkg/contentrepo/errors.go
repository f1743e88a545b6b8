package contentrepo

import (
	"fmt"

	"github.com/google/uuid"
)

// Failure messages shared by every repository implementation.
const (
	msgNilEntity    = "Entity must not be nil."
	msgUnassignedID = "Entity identity has not been assigned."
	msgNilPredicate = "Criteria predicate must not be nil."
	msgNilUserID    = "User identifier must not be empty."
)

// NotFound is the failure for an operation whose target id is absent or soft-deleted.
func NotFound(op string, id uuid.UUID) Result {
	return Failure(fmt.Sprintf("%s failed: entity %s was not found.", op, id))
}

// Conflict is the failure for an operation whose target id already exists.
func Conflict(op string, id uuid.UUID) Result {
	return Failure(fmt.Sprintf("%s failed: entity %s already exists.", op, id))
}

// SoftDeleted is the failure for storing an entity that was soft-deleted before it was ever added.
func SoftDeleted(op string, id uuid.UUID) Result {
	return Failure(fmt.Sprintf("%s failed: entity %s is soft-deleted.", op, id))
}

// NilEntity is the failure for an operation given a nil entity.
func NilEntity(op string) Result {
	return Failure(fmt.Sprintf("%s failed: %s", op, msgNilEntity))
}

// UnassignedID is the failure for an entity created without NewContentEntity.
func UnassignedID(op string) Result {
	return Failure(fmt.Sprintf("%s failed: %s", op, msgUnassignedID))
}

// NilUserID is the failure for a user-scoped operation given uuid.Nil.
func NilUserID(op string) Result {
	return Failure(fmt.Sprintf("%s failed: %s", op, msgNilUserID))
}

// CheckEntity validates the entity argument of a write operation.
func CheckEntity[E any, T EntityPtr[E]](op string, e T) Result {
	if (*E)(e) == nil {
		return NilEntity(op)
	}
	if e.Base().ID() == uuid.Nil {
		return UnassignedID(op)
	}
	return Success()
}

// CheckNewEntity validates an entity that may be inserted. Unlike CheckEntity
// it also rejects a soft-deleted entity.
func CheckNewEntity[E any, T EntityPtr[E]](op string, e T) Result {
	if res := CheckEntity[E](op, e); res.IsFailure() {
		return res
	}
	if e.Base().IsSoftDeleted() {
		return SoftDeleted(op, e.Base().ID())
	}
	return Success()
}

// RepositoryError is an infrastructure fault raised while executing an operation.
// Expected outcomes are reported through Result instead.
type RepositoryError struct {
	Op   string
	Kind string
	ID   uuid.UUID
	Err  error
}

func (e *RepositoryError) Error() string {
	if e.ID == uuid.Nil {
		return fmt.Sprintf("repository operation %s failed for %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("repository operation %s failed for %s %s: %v", e.Op, e.Kind, e.ID, e.Err)
}

func (e *RepositoryError) Unwrap() error {
	return e.Err
}
