package contentrepo

import "github.com/google/uuid"

// OwnedEntity is implemented by content that belongs to a user.
type OwnedEntity interface {
	Entity
	Owned() *OwnedContentEntity
}

// OwnedEntityPtr constrains T to *E where *E is an OwnedEntity.
type OwnedEntityPtr[E any] interface {
	*E
	OwnedEntity
}

// OwnedContentEntity adds ownership and visibility flags to ContentEntity.
type OwnedContentEntity struct {
	ContentEntity

	// OwnerID identifies the owning user. Changing it is a plain field update.
	OwnerID uuid.UUID `json:"ownerId"`

	// IsPubliclyReadable grants read access to everyone when true, overriding
	// the owner-based restriction applied by the authorization layer.
	IsPubliclyReadable bool `json:"isPubliclyReadable"`

	// IsDiscoverable controls whether the content may appear in discovery
	// and search results. Lookups by id are unaffected.
	IsDiscoverable bool `json:"isDiscoverable"`
}

// NewOwnedContentEntity returns a private, discoverable entity owned by ownerID.
func NewOwnedContentEntity(ownerID uuid.UUID) OwnedContentEntity {
	return OwnedContentEntity{
		ContentEntity:  NewContentEntity(),
		OwnerID:        ownerID,
		IsDiscoverable: true,
	}
}

// Owned returns e. It lets any struct embedding OwnedContentEntity satisfy OwnedEntity.
func (e *OwnedContentEntity) Owned() *OwnedContentEntity { return e }

// IncludeInDiscoverSearch reports whether the content is both public and discoverable.
func (e *OwnedContentEntity) IncludeInDiscoverSearch() bool {
	return e.IsPubliclyReadable && e.IsDiscoverable
}
