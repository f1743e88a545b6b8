package contentrepo

import (
	"cmp"
	"slices"
)

// Predicate selects entities.
type Predicate[T any] func(T) bool

// IndexedPredicate selects entities using the entity and its position in the
// live, id-ordered sequence being filtered.
type IndexedPredicate[T any] func(T, int) bool

// CriteriaOption refines a criteria query with ordering or pagination.
type CriteriaOption[T any] func(*Criteria[T])

// Criteria describes a filtered, optionally ordered and paginated query.
// Build one with NewCriteria or NewIndexedCriteria.
type Criteria[T any] struct {
	where   IndexedPredicate[T]
	compare func(a, b T) int
	page    *PaginationInfo
}

// NewCriteria returns criteria matching every entity for which predicate holds.
func NewCriteria[T any](predicate Predicate[T], opts ...CriteriaOption[T]) Criteria[T] {
	var where IndexedPredicate[T]
	if predicate != nil {
		where = func(t T, _ int) bool { return predicate(t) }
	}
	return NewIndexedCriteria(where, opts...)
}

// NewIndexedCriteria returns criteria matching every entity for which predicate holds.
func NewIndexedCriteria[T any](predicate IndexedPredicate[T], opts ...CriteriaOption[T]) Criteria[T] {
	c := Criteria[T]{where: predicate}
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	return c
}

// OrderBy sorts matches by key in ascending order. Ties keep id order.
func OrderBy[T any, K cmp.Ordered](key func(T) K) CriteriaOption[T] {
	return func(c *Criteria[T]) {
		c.compare = func(a, b T) int { return cmp.Compare(key(a), key(b)) }
	}
}

// OrderByDescending sorts matches by key in descending order. Ties keep id order.
func OrderByDescending[T any, K cmp.Ordered](key func(T) K) CriteriaOption[T] {
	return func(c *Criteria[T]) {
		c.compare = func(a, b T) int { return cmp.Compare(key(b), key(a)) }
	}
}

// WithPage returns only the selected page of the matches.
func WithPage[T any](pageInfo PaginationInfo) CriteriaOption[T] {
	return func(c *Criteria[T]) {
		c.page = &pageInfo
	}
}

// Page returns the requested page, if any.
func (c Criteria[T]) Page() (PaginationInfo, bool) {
	if c.page == nil {
		return PaginationInfo{}, false
	}
	return *c.page, true
}

// Ordered reports whether an ordering key was supplied.
func (c Criteria[T]) Ordered() bool { return c.compare != nil }

// Validate checks the predicate and pagination.
func (c Criteria[T]) Validate() Result {
	if c.where == nil {
		return Failure(msgNilPredicate)
	}
	if c.page != nil {
		return c.page.Validate()
	}
	return Success()
}

// Apply filters items, which must be live and in id order, then orders and
// paginates the matches. It does not modify items.
func (c Criteria[T]) Apply(items []T) []T {
	matched := make([]T, 0, len(items))
	for i, item := range items {
		if c.where(item, i) {
			matched = append(matched, item)
		}
	}
	if c.compare != nil {
		slices.SortStableFunc(matched, c.compare)
	}
	if c.page != nil {
		start, end := c.page.Window(len(matched))
		matched = matched[start:end]
	}
	return matched
}
