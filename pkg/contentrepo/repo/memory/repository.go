package memory

import (
	"bytes"
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/tendant/contentrepo/pkg/contentrepo"
)

// Repository implements contentrepo.ContentRepository using in-memory storage.
// Entities are copied on the way in and on the way out. The copy is shallow:
// slices, maps and pointers in domain fields stay shared with the caller.
type Repository[E any, T contentrepo.EntityPtr[E]] struct {
	mu       sync.RWMutex
	entities map[uuid.UUID]T
	opts     contentrepo.Options
}

// New creates a new in-memory repository for entities of type E.
func New[E any, T contentrepo.EntityPtr[E]](opts ...contentrepo.Option) *Repository[E, T] {
	return &Repository[E, T]{
		entities: make(map[uuid.UUID]T),
		opts:     contentrepo.NewOptions(opts...),
	}
}

// write runs apply under the write lock. apply validates the whole batch
// before changing anything and returns the events to fire once unlocked.
func (r *Repository[E, T]) write(ctx context.Context, op string, apply func() (contentrepo.Result, []contentrepo.Event)) (contentrepo.Result, error) {
	if err := ctx.Err(); err != nil {
		return contentrepo.Result{}, err
	}

	r.mu.Lock()
	res, events := apply()
	r.mu.Unlock()

	if res.IsFailure() {
		return r.opts.Failed(ctx, op, res), nil
	}
	r.opts.Publish(ctx, events...)
	return res, nil
}

// scanLocked returns copies of the stored entities in ascending id order.
// Soft-deleted entities are skipped unless includeSoftDeleted is set.
// Callers must hold r.mu.
func (r *Repository[E, T]) scanLocked(includeSoftDeleted bool, keep func(T) bool) []T {
	out := make([]T, 0, len(r.entities))
	for _, e := range r.entities {
		if !includeSoftDeleted && e.Base().IsSoftDeleted() {
			continue
		}
		if keep != nil && !keep(e) {
			continue
		}
		out = append(out, contentrepo.Clone[E](e))
	}
	slices.SortFunc(out, func(a, b T) int {
		ida, idb := a.Base().ID(), b.Base().ID()
		return bytes.Compare(ida[:], idb[:])
	})
	return out
}

// liveLocked is the read path for every default query: live entities only.
func (r *Repository[E, T]) liveLocked(keep func(T) bool) []T {
	return r.scanLocked(false, keep)
}

// getLiveLocked returns the stored live entity with id.
func (r *Repository[E, T]) getLiveLocked(id uuid.UUID) (T, bool) {
	e, exists := r.entities[id]
	if !exists || e.Base().IsSoftDeleted() {
		return nil, false
	}
	return e, true
}

// read runs query under the read lock.
func (r *Repository[E, T]) read(ctx context.Context, query func() []T) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return query(), nil
}

// Add operations

func (r *Repository[E, T]) TryAdd(ctx context.Context, model T) (contentrepo.Result, error) {
	return r.add(ctx, contentrepo.OpAdd, []T{model})
}

func (r *Repository[E, T]) TryAddWithResult(ctx context.Context, model T) (contentrepo.ResultOf[T], error) {
	res, err := r.TryAdd(ctx, model)
	return contentrepo.WithValue(res, model), err
}

func (r *Repository[E, T]) TryAddRange(ctx context.Context, models []T) (contentrepo.Result, error) {
	return r.add(ctx, contentrepo.OpAddRange, models)
}

func (r *Repository[E, T]) add(ctx context.Context, op string, models []T) (contentrepo.Result, error) {
	return r.write(ctx, op, func() (contentrepo.Result, []contentrepo.Event) {
		seen := make(map[uuid.UUID]struct{}, len(models))
		for _, m := range models {
			if res := contentrepo.CheckNewEntity[E](op, m); res.IsFailure() {
				return res, nil
			}
			id := m.Base().ID()
			_, stored := r.entities[id]
			_, batched := seen[id]
			if stored || batched {
				return contentrepo.Conflict(op, id), nil
			}
			seen[id] = struct{}{}
		}

		events := make([]contentrepo.Event, 0, len(models))
		for _, m := range models {
			r.entities[m.Base().ID()] = contentrepo.Clone[E](m)
			events = append(events, contentrepo.AddedEvent(m.Base().ID()))
		}
		return contentrepo.Success(), events
	})
}

// Update operations

func (r *Repository[E, T]) TryUpdate(ctx context.Context, model T) (contentrepo.Result, error) {
	return r.update(ctx, contentrepo.OpUpdate, []T{model})
}

func (r *Repository[E, T]) TryUpdateWithResult(ctx context.Context, model T) (contentrepo.ResultOf[T], error) {
	res, err := r.TryUpdate(ctx, model)
	return contentrepo.WithValue(res, model), err
}

func (r *Repository[E, T]) TryUpdateRange(ctx context.Context, models []T) (contentrepo.Result, error) {
	return r.update(ctx, contentrepo.OpUpdateRange, models)
}

func (r *Repository[E, T]) update(ctx context.Context, op string, models []T) (contentrepo.Result, error) {
	return r.write(ctx, op, func() (contentrepo.Result, []contentrepo.Event) {
		seen := make(map[uuid.UUID]struct{}, len(models))
		for _, m := range models {
			if res := contentrepo.CheckEntity[E](op, m); res.IsFailure() {
				return res, nil
			}
			id := m.Base().ID()
			_, live := r.getLiveLocked(id)
			if _, batched := seen[id]; !live || batched {
				return contentrepo.NotFound(op, id), nil
			}
			seen[id] = struct{}{}
		}

		events := make([]contentrepo.Event, 0, len(models))
		for _, m := range models {
			r.updateLocked(m)
			events = append(events, contentrepo.UpdatedEvent(m.Base().ID()))
		}
		return contentrepo.Success(), events
	})
}

func (r *Repository[E, T]) updateLocked(m T) {
	stored := r.entities[m.Base().ID()]
	contentrepo.PrepareUpdate(m, stored.Base().Record())
	r.entities[m.Base().ID()] = contentrepo.Clone[E](m)
}

// AddOrUpdate operations

func (r *Repository[E, T]) TryAddOrUpdate(ctx context.Context, model T) (contentrepo.Result, error) {
	return r.addOrUpdate(ctx, contentrepo.OpAddOrUpdate, []T{model})
}

func (r *Repository[E, T]) TryAddOrUpdateRange(ctx context.Context, models []T) (contentrepo.Result, error) {
	return r.addOrUpdate(ctx, contentrepo.OpAddOrUpdateRng, models)
}

func (r *Repository[E, T]) addOrUpdate(ctx context.Context, op string, models []T) (contentrepo.Result, error) {
	return r.write(ctx, op, func() (contentrepo.Result, []contentrepo.Event) {
		seen := make(map[uuid.UUID]struct{}, len(models))
		for _, m := range models {
			if res := contentrepo.CheckNewEntity[E](op, m); res.IsFailure() {
				return res, nil
			}
			id := m.Base().ID()
			e, exists := r.entities[id]
			_, batched := seen[id]
			if batched || (exists && e.Base().IsSoftDeleted()) {
				return contentrepo.Conflict(op, id), nil
			}
			seen[id] = struct{}{}
		}

		events := make([]contentrepo.Event, 0, len(models))
		for _, m := range models {
			id := m.Base().ID()
			if _, ok := r.getLiveLocked(id); ok {
				r.updateLocked(m)
				events = append(events, contentrepo.UpdatedEvent(id))
				continue
			}
			r.entities[id] = contentrepo.Clone[E](m)
			events = append(events, contentrepo.AddedEvent(id))
		}
		return contentrepo.Success(), events
	})
}

// Soft delete operations

func (r *Repository[E, T]) TryDelete(ctx context.Context, model T) (contentrepo.Result, error) {
	return r.softDelete(ctx, contentrepo.OpDelete, []T{model})
}

func (r *Repository[E, T]) TryDeleteRange(ctx context.Context, models []T) (contentrepo.Result, error) {
	return r.softDelete(ctx, contentrepo.OpDeleteRange, models)
}

func (r *Repository[E, T]) softDelete(ctx context.Context, op string, models []T) (contentrepo.Result, error) {
	return r.write(ctx, op, func() (contentrepo.Result, []contentrepo.Event) {
		seen := make(map[uuid.UUID]struct{}, len(models))
		for _, m := range models {
			if res := contentrepo.CheckEntity[E](op, m); res.IsFailure() {
				return res, nil
			}
			id := m.Base().ID()
			_, live := r.getLiveLocked(id)
			if _, batched := seen[id]; !live || batched {
				return contentrepo.NotFound(op, id), nil
			}
			seen[id] = struct{}{}
		}

		events := make([]contentrepo.Event, 0, len(models))
		for _, m := range models {
			id := m.Base().ID()
			stored := contentrepo.Clone[E](r.entities[id])
			contentrepo.PrepareSoftDelete(m, stored.Base().Record())
			*stored.Base() = contentrepo.RestoreContentEntity(m.Base().Record())
			r.entities[id] = stored
			events = append(events, contentrepo.SoftDeletedEvent(id))
		}
		return contentrepo.Success(), events
	})
}

// Hard remove operations

func (r *Repository[E, T]) TryRemove(ctx context.Context, model T) (contentrepo.Result, error) {
	return r.remove(ctx, contentrepo.OpRemove, []T{model})
}

func (r *Repository[E, T]) TryRemoveRange(ctx context.Context, models []T) (contentrepo.Result, error) {
	return r.remove(ctx, contentrepo.OpRemoveRange, models)
}

func (r *Repository[E, T]) remove(ctx context.Context, op string, models []T) (contentrepo.Result, error) {
	return r.write(ctx, op, func() (contentrepo.Result, []contentrepo.Event) {
		seen := make(map[uuid.UUID]struct{}, len(models))
		for _, m := range models {
			if res := contentrepo.CheckEntity[E](op, m); res.IsFailure() {
				return res, nil
			}
			id := m.Base().ID()
			_, stored := r.entities[id]
			if _, batched := seen[id]; !stored || batched {
				return contentrepo.NotFound(op, id), nil
			}
			seen[id] = struct{}{}
		}

		events := make([]contentrepo.Event, 0, len(models))
		for _, m := range models {
			delete(r.entities, m.Base().ID())
			events = append(events, contentrepo.RemovedEvent(m.Base().ID()))
		}
		return contentrepo.Success(), events
	})
}

// Read operations

func (r *Repository[E, T]) TryGetByID(ctx context.Context, id uuid.UUID) (contentrepo.ResultOf[T], error) {
	found, err := r.read(ctx, func() []T {
		if e, ok := r.getLiveLocked(id); ok {
			return []T{contentrepo.Clone[E](e)}
		}
		return nil
	})
	if err != nil {
		return contentrepo.ResultOf[T]{}, err
	}
	if len(found) == 0 {
		res := r.opts.Failed(ctx, contentrepo.OpGetByID, contentrepo.NotFound(contentrepo.OpGetByID, id))
		return contentrepo.FailureOf[T](res.Message()), nil
	}
	return contentrepo.SuccessOf(found[0]), nil
}

func (r *Repository[E, T]) TryGetAll(ctx context.Context) (contentrepo.ResultOf[[]T], error) {
	items, err := r.read(ctx, func() []T { return r.liveLocked(nil) })
	if err != nil {
		return contentrepo.ResultOf[[]T]{}, err
	}
	return contentrepo.SuccessOf(items), nil
}

func (r *Repository[E, T]) TryGetAllPaged(ctx context.Context, pageInfo contentrepo.PaginationInfo) (contentrepo.ResultOf[[]T], error) {
	return r.query(ctx, contentrepo.OpGetAll, contentrepo.NewCriteria[T](all[T], contentrepo.WithPage[T](pageInfo)), nil)
}

func (r *Repository[E, T]) TryGetByCriteria(ctx context.Context, predicate contentrepo.Predicate[T], opts ...contentrepo.CriteriaOption[T]) (contentrepo.ResultOf[[]T], error) {
	return r.query(ctx, contentrepo.OpGetByCriteria, contentrepo.NewCriteria(predicate, opts...), nil)
}

func (r *Repository[E, T]) TryGetByIndexedCriteria(ctx context.Context, predicate contentrepo.IndexedPredicate[T], opts ...contentrepo.CriteriaOption[T]) (contentrepo.ResultOf[[]T], error) {
	return r.query(ctx, contentrepo.OpGetByCriteria, contentrepo.NewIndexedCriteria(predicate, opts...), nil)
}

// query validates criteria and applies it to the live entities accepted by keep.
func (r *Repository[E, T]) query(ctx context.Context, op string, criteria contentrepo.Criteria[T], keep func(T) bool) (contentrepo.ResultOf[[]T], error) {
	if res := criteria.Validate(); res.IsFailure() {
		res = r.opts.Failed(ctx, op, res)
		return contentrepo.FailureOf[[]T](res.Message()), nil
	}
	live, err := r.read(ctx, func() []T { return r.liveLocked(keep) })
	if err != nil {
		return contentrepo.ResultOf[[]T]{}, err
	}
	return contentrepo.SuccessOf(criteria.Apply(live)), nil
}

func (r *Repository[E, T]) TryCount(ctx context.Context) (contentrepo.ResultOf[int], error) {
	live, err := r.read(ctx, func() []T { return r.liveLocked(nil) })
	if err != nil {
		return contentrepo.ResultOf[int]{}, err
	}
	return contentrepo.SuccessOf(len(live)), nil
}

func all[T any](T) bool { return true }
