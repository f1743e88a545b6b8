package contentrepo

import (
	"time"

	"github.com/google/uuid"
)

// now is the single clock for audit stamps. Stamps are UTC with microsecond
// precision so they survive a round trip through a timestamptz column unchanged.
var now = func() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// Entity is implemented by every content type a repository can hold.
// Embedding ContentEntity is the only intended way to satisfy it.
type Entity interface {
	Base() *ContentEntity
}

// EntityPtr constrains T to *E where *E is an Entity. Repositories are
// instantiated with the struct type E, and T is inferred.
type EntityPtr[E any] interface {
	*E
	Entity
}

// ContentEntity holds the identity, audit timestamps and soft-delete state
// shared by all content. Its fields are written only by its own methods.
type ContentEntity struct {
	id               uuid.UUID
	createdDate      time.Time
	lastModifiedDate time.Time
	softDeleteDate   *time.Time
}

// NewContentEntity assigns a fresh time-ordered id and stamps the created and
// last-modified dates with the same instant.
func NewContentEntity() ContentEntity {
	stamp := now()
	return ContentEntity{
		id:               newID(),
		createdDate:      stamp,
		lastModifiedDate: stamp,
	}
}

func newID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source does.
		panic(err)
	}
	return id
}

// Base returns e. It lets any struct embedding ContentEntity satisfy Entity.
func (e *ContentEntity) Base() *ContentEntity { return e }

// ID returns the entity identifier.
func (e *ContentEntity) ID() uuid.UUID { return e.id }

// CreatedDate returns when the entity was created.
func (e *ContentEntity) CreatedDate() time.Time { return e.createdDate }

// LastModifiedDate returns when the entity was last written.
func (e *ContentEntity) LastModifiedDate() time.Time { return e.lastModifiedDate }

// SoftDeleteDate returns when the entity was soft-deleted, and false while it is live.
func (e *ContentEntity) SoftDeleteDate() (time.Time, bool) {
	if e.softDeleteDate == nil {
		return time.Time{}, false
	}
	return *e.softDeleteDate, true
}

// IsSoftDeleted reports whether a soft-delete date is present.
func (e *ContentEntity) IsSoftDeleted() bool { return e.softDeleteDate != nil }

// Touch advances the last-modified date to the current time. The new value is
// always strictly later than the previous one.
func (e *ContentEntity) Touch() {
	e.lastModifiedDate = e.nextStamp()
}

// SoftDelete stamps the soft-delete date and the last-modified date.
// Calling it again re-stamps both; there is no way back to live.
func (e *ContentEntity) SoftDelete() {
	stamp := e.nextStamp()
	e.softDeleteDate = &stamp
	e.lastModifiedDate = stamp
}

func (e *ContentEntity) nextStamp() time.Time {
	stamp := now()
	if !stamp.After(e.lastModifiedDate) {
		stamp = e.lastModifiedDate.Add(time.Microsecond)
	}
	return stamp
}

// Record returns a snapshot of the entity's identity and audit state.
func (e *ContentEntity) Record() Record {
	rec := Record{
		ID:               e.id,
		CreatedDate:      e.createdDate,
		LastModifiedDate: e.lastModifiedDate,
	}
	if e.softDeleteDate != nil {
		stamp := *e.softDeleteDate
		rec.SoftDeleteDate = &stamp
	}
	return rec
}

// Record is the persisted form of a ContentEntity. Storage adapters use it
// to write rows and to hydrate entities read back from the store.
type Record struct {
	ID               uuid.UUID  `json:"id"`
	CreatedDate      time.Time  `json:"createdDate"`
	LastModifiedDate time.Time  `json:"lastModifiedDate"`
	SoftDeleteDate   *time.Time `json:"softDeleteDate,omitempty"`
}

// IsSoftDeleted reports whether the record carries a soft-delete date.
func (r Record) IsSoftDeleted() bool { return r.SoftDeleteDate != nil }

// RestoreContentEntity rebuilds a ContentEntity from a persisted record.
// Application code creates entities with NewContentEntity instead.
func RestoreContentEntity(rec Record) ContentEntity {
	e := ContentEntity{
		id:               rec.ID,
		createdDate:      rec.CreatedDate.UTC(),
		lastModifiedDate: rec.LastModifiedDate.UTC(),
	}
	if rec.SoftDeleteDate != nil {
		stamp := rec.SoftDeleteDate.UTC()
		e.softDeleteDate = &stamp
	}
	return e
}

// PrepareUpdate aligns model's identity and audit fields with the stored
// record and then touches it. Update paths call it right before persisting,
// so created date and soft-delete state always come from storage.
func PrepareUpdate(model Entity, stored Record) {
	align(model, stored)
	model.Base().Touch()
}

// PrepareSoftDelete aligns model with the stored record and soft-deletes it.
func PrepareSoftDelete(model Entity, stored Record) {
	align(model, stored)
	model.Base().SoftDelete()
}

func align(model Entity, stored Record) {
	rec := stored
	if lm := model.Base().LastModifiedDate(); lm.After(rec.LastModifiedDate) {
		rec.LastModifiedDate = lm
	}
	*model.Base() = RestoreContentEntity(rec)
}
