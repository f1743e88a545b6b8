package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tendant/contentrepo/pkg/contentrepo"
)

// UserContentRepository implements contentrepo.UserContentRepository using PostgreSQL.
type UserContentRepository[E any, T contentrepo.OwnedEntityPtr[E]] struct {
	*Repository[E, T]
}

// NewUserContent creates a new PostgreSQL repository for owned entities of type E stored in table.
func NewUserContent[E any, T contentrepo.OwnedEntityPtr[E]](db DBTX, table Table, opts ...contentrepo.Option) *UserContentRepository[E, T] {
	return &UserContentRepository[E, T]{Repository: New[E, T](db, table, opts...)}
}

func (r *UserContentRepository[E, T]) TryGetByUser(ctx context.Context, userID uuid.UUID) (contentrepo.ResultOf[[]T], error) {
	op := contentrepo.OpGetByUser
	if userID == uuid.Nil {
		res := r.opts.Failed(ctx, op, contentrepo.NilUserID(op))
		return contentrepo.FailureOf[[]T](res.Message()), nil
	}
	return r.query(ctx, op, r.selectLive("owner_id = $1", "ORDER BY id"), userID)
}

func (r *UserContentRepository[E, T]) TryGetByUserPaged(ctx context.Context, userID uuid.UUID, pageInfo contentrepo.PaginationInfo) (contentrepo.ResultOf[[]T], error) {
	op := contentrepo.OpGetByUser
	if userID == uuid.Nil {
		res := r.opts.Failed(ctx, op, contentrepo.NilUserID(op))
		return contentrepo.FailureOf[[]T](res.Message()), nil
	}
	if res := pageInfo.Validate(); res.IsFailure() {
		res = r.opts.Failed(ctx, op, res)
		return contentrepo.FailureOf[[]T](res.Message()), nil
	}
	query := r.selectLive("owner_id = $1", "ORDER BY id LIMIT $2 OFFSET $3")
	return r.query(ctx, op, query, userID, pageInfo.PageSize(), pageInfo.SkipAmount())
}

// TryPermanentRemoveAllForUser erases every row owned by userID, soft-deleted
// rows included, in a single statement.
func (r *UserContentRepository[E, T]) TryPermanentRemoveAllForUser(ctx context.Context, userID uuid.UUID) (contentrepo.Result, error) {
	op := contentrepo.OpPurgeForUser
	if userID == uuid.Nil {
		return r.opts.Failed(ctx, op, contentrepo.NilUserID(op)), nil
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE owner_id = $1 RETURNING id", r.table)
	return r.write(ctx, op, userID, func(tx pgx.Tx) (contentrepo.Result, []contentrepo.Event, error) {
		rows, err := tx.Query(ctx, query, userID)
		if err != nil {
			return contentrepo.Result{}, nil, err
		}
		ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
		if err != nil {
			return contentrepo.Result{}, nil, err
		}

		events := make([]contentrepo.Event, 0, len(ids)+1)
		for _, id := range ids {
			events = append(events, contentrepo.RemovedEvent(id))
		}
		events = append(events, contentrepo.PurgedEvent(userID, len(ids)))
		return contentrepo.Success(), events, nil
	})
}
