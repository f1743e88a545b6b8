package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/contentrepo/pkg/contentrepo"
)

// DBTX is an interface that allows us to use either a connection pool or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
	Begin(context.Context) (pgx.Tx, error)
}

const (
	recordColumns = "id, created_date, last_modified_date, soft_delete_date"

	// liveFilter is the only definition of a live row. Every read and every
	// update or soft delete is scoped by it.
	liveFilter = "soft_delete_date IS NULL"
)

// Repository implements contentrepo.ContentRepository using PostgreSQL.
// Each entity type is stored in its own table; see Schema.
type Repository[E any, T contentrepo.EntityPtr[E]] struct {
	db    DBTX
	table Table
	owned bool
	opts  contentrepo.Options
}

// New creates a new PostgreSQL repository for entities of type E stored in table.
func New[E any, T contentrepo.EntityPtr[E]](db DBTX, table Table, opts ...contentrepo.Option) *Repository[E, T] {
	_, owned := any(T(new(E))).(contentrepo.OwnedEntity)
	return &Repository[E, T]{
		db:    db,
		table: table,
		owned: owned,
		opts:  contentrepo.NewOptions(opts...),
	}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool[E any, T contentrepo.EntityPtr[E]](pool *pgxpool.Pool, table Table, opts ...contentrepo.Option) *Repository[E, T] {
	return New[E, T](pool, table, opts...)
}

// Table returns the table the repository reads and writes.
func (r *Repository[E, T]) Table() Table { return r.table }

// EnsureSchema creates the table and its indexes when they do not exist.
func (r *Repository[E, T]) EnsureSchema(ctx context.Context) error {
	for _, stmt := range Schema(r.table, r.owned) {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return r.handlePostgresError("ensure schema", err)
		}
	}
	return nil
}

// Error handling helper
func (r *Repository[E, T]) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing: %w", pgErr.ColumnName, err)
		case "42P01": // undefined_table
			return fmt.Errorf("table %s does not exist - schema provisioning required: %w", r.table, err)
		default:
			return fmt.Errorf("database error in %s: %s (code: %s): %w", operation, pgErr.Message, pgErr.Code, err)
		}
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

func (r *Repository[E, T]) fault(ctx context.Context, op string, id uuid.UUID, err error) error {
	return r.opts.Fault(ctx, op, id, r.handlePostgresError(op, err))
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Row mapping

// columns lists the stored columns in insert order. The first four hold the
// record; the rest are rewritten on update.
func (r *Repository[E, T]) columns() []string {
	cols := []string{"id", "created_date", "last_modified_date", "soft_delete_date", "payload"}
	if r.owned {
		cols = append(cols, "owner_id", "is_publicly_readable", "is_discoverable")
	}
	return cols
}

func (r *Repository[E, T]) values(e T) ([]any, error) {
	payload, err := contentrepo.EncodePayload(e)
	if err != nil {
		return nil, err
	}
	rec := e.Base().Record()
	args := []any{rec.ID, rec.CreatedDate, rec.LastModifiedDate, rec.SoftDeleteDate, payload}
	if r.owned {
		o := any(e).(contentrepo.OwnedEntity).Owned()
		args = append(args, o.OwnerID, o.IsPubliclyReadable, o.IsDiscoverable)
	}
	return args, nil
}

func scanRecord(row pgx.Row) (contentrepo.Record, error) {
	var rec contentrepo.Record
	err := row.Scan(&rec.ID, &rec.CreatedDate, &rec.LastModifiedDate, &rec.SoftDeleteDate)
	return rec, err
}

func (r *Repository[E, T]) scanEntity(row pgx.Row) (T, error) {
	var rec contentrepo.Record
	var payload []byte
	if err := row.Scan(&rec.ID, &rec.CreatedDate, &rec.LastModifiedDate, &rec.SoftDeleteDate, &payload); err != nil {
		return nil, err
	}
	return contentrepo.DecodePayload[E, T](rec, payload)
}

// selectLive builds a query over live rows. cond and tail are optional.
func (r *Repository[E, T]) selectLive(cond, tail string) string {
	query := fmt.Sprintf("SELECT %s, payload FROM %s WHERE %s", recordColumns, r.table, liveFilter)
	if cond != "" {
		query += " AND " + cond
	}
	if tail != "" {
		query += " " + tail
	}
	return query
}

func (r *Repository[E, T]) list(ctx context.Context, query string, args ...any) ([]T, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (T, error) {
		return r.scanEntity(row)
	})
}

// Statements

func (r *Repository[E, T]) insertSQL() string {
	cols := r.columns()
	params := make([]string, len(cols))
	for i := range cols {
		params[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s AS stored (%s) VALUES (%s)",
		r.table, strings.Join(cols, ", "), strings.Join(params, ", "))
}

// stampExpr is the new last-modified value for a write stamped at the given
// parameter: never earlier than one microsecond after the stored value.
func stampExpr(param int, qualifier string) string {
	return fmt.Sprintf("GREATEST($%d::timestamptz, %slast_modified_date + INTERVAL '1 microsecond')", param, qualifier)
}

// updateSQL takes $1 = id, $2 = stamp, then the mutable column values.
func (r *Repository[E, T]) updateSQL() string {
	sets := []string{"last_modified_date = " + stampExpr(2, "")}
	for i, col := range r.columns()[4:] {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, i+3))
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE id = $1 AND %s RETURNING %s",
		r.table, strings.Join(sets, ", "), liveFilter, recordColumns)
}

// upsertSQL takes the insert values followed by the update stamp. A row that
// exists but is soft-deleted is left alone and nothing is returned.
func (r *Repository[E, T]) upsertSQL() string {
	cols := r.columns()
	sets := []string{"last_modified_date = " + stampExpr(len(cols)+1, "stored.")}
	for _, col := range cols[4:] {
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
	}
	return fmt.Sprintf("%s ON CONFLICT (id) DO UPDATE SET %s WHERE stored.%s RETURNING %s, (xmax = 0) AS inserted",
		r.insertSQL(), strings.Join(sets, ", "), liveFilter, recordColumns)
}

// softDeleteSQL stamps both dates in one statement. $1 = id, $2 = stamp.
func (r *Repository[E, T]) softDeleteSQL() string {
	stamp := stampExpr(2, "")
	return fmt.Sprintf("UPDATE %s SET soft_delete_date = %s, last_modified_date = %s WHERE id = $1 AND %s RETURNING %s",
		r.table, stamp, stamp, liveFilter, recordColumns)
}

// Write plumbing

// stamped is a caller model whose base is refreshed from storage once the
// transaction commits.
type stamped[T contentrepo.Entity] struct {
	model T
	rec   contentrepo.Record
}

func restore[T contentrepo.Entity](models []stamped[T]) {
	for _, s := range models {
		*s.model.Base() = contentrepo.RestoreContentEntity(s.rec)
	}
}

// write runs fn in one transaction. A failure Result or an error from fn
// rolls everything back; events are published only after the commit.
func (r *Repository[E, T]) write(ctx context.Context, op string, id uuid.UUID, fn func(tx pgx.Tx) (contentrepo.Result, []contentrepo.Event, error)) (contentrepo.Result, error) {
	if err := ctx.Err(); err != nil {
		return contentrepo.Result{}, err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return contentrepo.Result{}, r.fault(ctx, op, id, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	res, events, err := fn(tx)
	if err != nil {
		return contentrepo.Result{}, r.fault(ctx, op, id, err)
	}
	if res.IsFailure() {
		return r.opts.Failed(ctx, op, res), nil
	}
	if err := tx.Commit(ctx); err != nil {
		return contentrepo.Result{}, r.fault(ctx, op, id, err)
	}

	r.opts.Publish(ctx, events...)
	return res, nil
}

// checkBatch validates every model with check and rejects an id repeated within the batch.
func checkBatch[E any, T contentrepo.EntityPtr[E]](op string, models []T, check func(string, T) contentrepo.Result, repeated func(string, uuid.UUID) contentrepo.Result) contentrepo.Result {
	seen := make(map[uuid.UUID]struct{}, len(models))
	for _, m := range models {
		if res := check(op, m); res.IsFailure() {
			return res
		}
		id := m.Base().ID()
		if _, dup := seen[id]; dup {
			return repeated(op, id)
		}
		seen[id] = struct{}{}
	}
	return contentrepo.Success()
}

// targetID names the entity of a single-entity write in errors.
func targetID[E any, T contentrepo.EntityPtr[E]](models []T) uuid.UUID {
	if len(models) == 1 && (*E)(models[0]) != nil {
		return models[0].Base().ID()
	}
	return uuid.Nil
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
	if res := checkBatch[E, T](op, models, contentrepo.CheckNewEntity[E, T], contentrepo.Conflict); res.IsFailure() {
		return r.opts.Failed(ctx, op, res), nil
	}

	query := r.insertSQL()
	return r.write(ctx, op, targetID[E](models), func(tx pgx.Tx) (contentrepo.Result, []contentrepo.Event, error) {
		events := make([]contentrepo.Event, 0, len(models))
		for _, m := range models {
			args, err := r.values(m)
			if err != nil {
				return contentrepo.Result{}, nil, err
			}
			if _, err := tx.Exec(ctx, query, args...); err != nil {
				if isUniqueViolation(err) {
					return contentrepo.Conflict(op, m.Base().ID()), nil, nil
				}
				return contentrepo.Result{}, nil, err
			}
			events = append(events, contentrepo.AddedEvent(m.Base().ID()))
		}
		return contentrepo.Success(), events, nil
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
	if res := checkBatch[E, T](op, models, contentrepo.CheckEntity[E, T], contentrepo.NotFound); res.IsFailure() {
		return r.opts.Failed(ctx, op, res), nil
	}

	var done []stamped[T]
	query := r.updateSQL()
	res, err := r.write(ctx, op, targetID[E](models), func(tx pgx.Tx) (contentrepo.Result, []contentrepo.Event, error) {
		events := make([]contentrepo.Event, 0, len(models))
		for _, m := range models {
			id := m.Base().ID()
			rec, err := r.updateOne(ctx, tx, query, m)
			if errors.Is(err, pgx.ErrNoRows) {
				return contentrepo.NotFound(op, id), nil, nil
			}
			if err != nil {
				return contentrepo.Result{}, nil, err
			}
			done = append(done, stamped[T]{model: m, rec: rec})
			events = append(events, contentrepo.UpdatedEvent(id))
		}
		return contentrepo.Success(), events, nil
	})
	if err == nil && res.IsSuccess() {
		restore(done)
	}
	return res, err
}

func (r *Repository[E, T]) updateOne(ctx context.Context, tx pgx.Tx, query string, m T) (contentrepo.Record, error) {
	args, err := r.values(m)
	if err != nil {
		return contentrepo.Record{}, err
	}
	next := contentrepo.Clone[E](m)
	next.Base().Touch()
	params := append([]any{m.Base().ID(), next.Base().LastModifiedDate()}, args[4:]...)
	return scanRecord(tx.QueryRow(ctx, query, params...))
}

// AddOrUpdate operations

func (r *Repository[E, T]) TryAddOrUpdate(ctx context.Context, model T) (contentrepo.Result, error) {
	return r.addOrUpdate(ctx, contentrepo.OpAddOrUpdate, []T{model})
}

func (r *Repository[E, T]) TryAddOrUpdateRange(ctx context.Context, models []T) (contentrepo.Result, error) {
	return r.addOrUpdate(ctx, contentrepo.OpAddOrUpdateRng, models)
}

func (r *Repository[E, T]) addOrUpdate(ctx context.Context, op string, models []T) (contentrepo.Result, error) {
	if res := checkBatch[E, T](op, models, contentrepo.CheckNewEntity[E, T], contentrepo.Conflict); res.IsFailure() {
		return r.opts.Failed(ctx, op, res), nil
	}

	var done []stamped[T]
	query := r.upsertSQL()
	res, err := r.write(ctx, op, targetID[E](models), func(tx pgx.Tx) (contentrepo.Result, []contentrepo.Event, error) {
		events := make([]contentrepo.Event, 0, len(models))
		for _, m := range models {
			id := m.Base().ID()
			args, err := r.values(m)
			if err != nil {
				return contentrepo.Result{}, nil, err
			}
			next := contentrepo.Clone[E](m)
			next.Base().Touch()
			args = append(args, next.Base().LastModifiedDate())

			var rec contentrepo.Record
			var inserted bool
			err = tx.QueryRow(ctx, query, args...).Scan(
				&rec.ID, &rec.CreatedDate, &rec.LastModifiedDate, &rec.SoftDeleteDate, &inserted)
			if errors.Is(err, pgx.ErrNoRows) {
				return contentrepo.Conflict(op, id), nil, nil
			}
			if err != nil {
				return contentrepo.Result{}, nil, err
			}

			done = append(done, stamped[T]{model: m, rec: rec})
			if inserted {
				events = append(events, contentrepo.AddedEvent(id))
			} else {
				events = append(events, contentrepo.UpdatedEvent(id))
			}
		}
		return contentrepo.Success(), events, nil
	})
	if err == nil && res.IsSuccess() {
		restore(done)
	}
	return res, err
}

// Soft delete operations

func (r *Repository[E, T]) TryDelete(ctx context.Context, model T) (contentrepo.Result, error) {
	return r.softDelete(ctx, contentrepo.OpDelete, []T{model})
}

func (r *Repository[E, T]) TryDeleteRange(ctx context.Context, models []T) (contentrepo.Result, error) {
	return r.softDelete(ctx, contentrepo.OpDeleteRange, models)
}

func (r *Repository[E, T]) softDelete(ctx context.Context, op string, models []T) (contentrepo.Result, error) {
	if res := checkBatch[E, T](op, models, contentrepo.CheckEntity[E, T], contentrepo.NotFound); res.IsFailure() {
		return r.opts.Failed(ctx, op, res), nil
	}

	var done []stamped[T]
	query := r.softDeleteSQL()
	res, err := r.write(ctx, op, targetID[E](models), func(tx pgx.Tx) (contentrepo.Result, []contentrepo.Event, error) {
		events := make([]contentrepo.Event, 0, len(models))
		for _, m := range models {
			id := m.Base().ID()
			next := contentrepo.Clone[E](m)
			next.Base().SoftDelete()
			stamp, _ := next.Base().SoftDeleteDate()

			rec, err := scanRecord(tx.QueryRow(ctx, query, id, stamp))
			if errors.Is(err, pgx.ErrNoRows) {
				return contentrepo.NotFound(op, id), nil, nil
			}
			if err != nil {
				return contentrepo.Result{}, nil, err
			}
			done = append(done, stamped[T]{model: m, rec: rec})
			events = append(events, contentrepo.SoftDeletedEvent(id))
		}
		return contentrepo.Success(), events, nil
	})
	if err == nil && res.IsSuccess() {
		restore(done)
	}
	return res, err
}

// Hard remove operations

func (r *Repository[E, T]) TryRemove(ctx context.Context, model T) (contentrepo.Result, error) {
	return r.remove(ctx, contentrepo.OpRemove, []T{model})
}

func (r *Repository[E, T]) TryRemoveRange(ctx context.Context, models []T) (contentrepo.Result, error) {
	return r.remove(ctx, contentrepo.OpRemoveRange, models)
}

func (r *Repository[E, T]) remove(ctx context.Context, op string, models []T) (contentrepo.Result, error) {
	if res := checkBatch[E, T](op, models, contentrepo.CheckEntity[E, T], contentrepo.NotFound); res.IsFailure() {
		return r.opts.Failed(ctx, op, res), nil
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", r.table)
	return r.write(ctx, op, targetID[E](models), func(tx pgx.Tx) (contentrepo.Result, []contentrepo.Event, error) {
		events := make([]contentrepo.Event, 0, len(models))
		for _, m := range models {
			id := m.Base().ID()
			tag, err := tx.Exec(ctx, query, id)
			if err != nil {
				return contentrepo.Result{}, nil, err
			}
			if tag.RowsAffected() == 0 {
				return contentrepo.NotFound(op, id), nil, nil
			}
			events = append(events, contentrepo.RemovedEvent(id))
		}
		return contentrepo.Success(), events, nil
	})
}

// Read operations

func (r *Repository[E, T]) TryGetByID(ctx context.Context, id uuid.UUID) (contentrepo.ResultOf[T], error) {
	op := contentrepo.OpGetByID
	if err := ctx.Err(); err != nil {
		return contentrepo.ResultOf[T]{}, err
	}

	e, err := r.scanEntity(r.db.QueryRow(ctx, r.selectLive("id = $1", ""), id))
	if errors.Is(err, pgx.ErrNoRows) {
		res := r.opts.Failed(ctx, op, contentrepo.NotFound(op, id))
		return contentrepo.FailureOf[T](res.Message()), nil
	}
	if err != nil {
		return contentrepo.ResultOf[T]{}, r.fault(ctx, op, id, err)
	}
	return contentrepo.SuccessOf(e), nil
}

func (r *Repository[E, T]) TryGetAll(ctx context.Context) (contentrepo.ResultOf[[]T], error) {
	return r.query(ctx, contentrepo.OpGetAll, r.selectLive("", "ORDER BY id"))
}

func (r *Repository[E, T]) TryGetAllPaged(ctx context.Context, pageInfo contentrepo.PaginationInfo) (contentrepo.ResultOf[[]T], error) {
	op := contentrepo.OpGetAll
	if res := pageInfo.Validate(); res.IsFailure() {
		res = r.opts.Failed(ctx, op, res)
		return contentrepo.FailureOf[[]T](res.Message()), nil
	}
	return r.query(ctx, op, r.selectLive("", "ORDER BY id LIMIT $1 OFFSET $2"), pageInfo.PageSize(), pageInfo.SkipAmount())
}

// Criteria are evaluated in process over the live rows streamed in id order.
func (r *Repository[E, T]) TryGetByCriteria(ctx context.Context, predicate contentrepo.Predicate[T], opts ...contentrepo.CriteriaOption[T]) (contentrepo.ResultOf[[]T], error) {
	return r.queryCriteria(ctx, contentrepo.NewCriteria(predicate, opts...))
}

func (r *Repository[E, T]) TryGetByIndexedCriteria(ctx context.Context, predicate contentrepo.IndexedPredicate[T], opts ...contentrepo.CriteriaOption[T]) (contentrepo.ResultOf[[]T], error) {
	return r.queryCriteria(ctx, contentrepo.NewIndexedCriteria(predicate, opts...))
}

func (r *Repository[E, T]) queryCriteria(ctx context.Context, criteria contentrepo.Criteria[T]) (contentrepo.ResultOf[[]T], error) {
	op := contentrepo.OpGetByCriteria
	if res := criteria.Validate(); res.IsFailure() {
		res = r.opts.Failed(ctx, op, res)
		return contentrepo.FailureOf[[]T](res.Message()), nil
	}
	live, err := r.query(ctx, op, r.selectLive("", "ORDER BY id"))
	if err != nil {
		return live, err
	}
	items, _ := live.TryGet()
	return contentrepo.SuccessOf(criteria.Apply(items)), nil
}

func (r *Repository[E, T]) query(ctx context.Context, op string, query string, args ...any) (contentrepo.ResultOf[[]T], error) {
	if err := ctx.Err(); err != nil {
		return contentrepo.ResultOf[[]T]{}, err
	}
	items, err := r.list(ctx, query, args...)
	if err != nil {
		return contentrepo.ResultOf[[]T]{}, r.fault(ctx, op, uuid.Nil, err)
	}
	return contentrepo.SuccessOf(items), nil
}

func (r *Repository[E, T]) TryCount(ctx context.Context) (contentrepo.ResultOf[int], error) {
	if err := ctx.Err(); err != nil {
		return contentrepo.ResultOf[int]{}, err
	}
	var count int
	query := fmt.Sprintf("SELECT count(*) FROM %s WHERE %s", r.table, liveFilter)
	if err := r.db.QueryRow(ctx, query).Scan(&count); err != nil {
		return contentrepo.ResultOf[int]{}, r.fault(ctx, contentrepo.OpCount, uuid.Nil, err)
	}
	return contentrepo.SuccessOf(count), nil
}
