package contentrepo

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// EventSink receives lifecycle notifications after a repository commits a change.
// Errors returned by a sink are logged and never fail the operation.
type EventSink interface {
	// EntityAdded is fired when an entity is stored for the first time
	EntityAdded(ctx context.Context, kind string, id uuid.UUID) error

	// EntityUpdated is fired when a live entity is updated
	EntityUpdated(ctx context.Context, kind string, id uuid.UUID) error

	// EntitySoftDeleted is fired when an entity is soft-deleted
	EntitySoftDeleted(ctx context.Context, kind string, id uuid.UUID) error

	// EntityRemoved is fired when an entity is physically erased
	EntityRemoved(ctx context.Context, kind string, id uuid.UUID) error

	// UserContentPurged is fired after every entity owned by a user was erased
	UserContentPurged(ctx context.Context, kind string, userID uuid.UUID, removed int) error
}

// NoopEventSink is a no-operation implementation of EventSink
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

func (n *NoopEventSink) EntityAdded(ctx context.Context, kind string, id uuid.UUID) error {
	return nil
}

func (n *NoopEventSink) EntityUpdated(ctx context.Context, kind string, id uuid.UUID) error {
	return nil
}

func (n *NoopEventSink) EntitySoftDeleted(ctx context.Context, kind string, id uuid.UUID) error {
	return nil
}

func (n *NoopEventSink) EntityRemoved(ctx context.Context, kind string, id uuid.UUID) error {
	return nil
}

func (n *NoopEventSink) UserContentPurged(ctx context.Context, kind string, userID uuid.UUID, removed int) error {
	return nil
}

// LoggingEventSink writes every event to a structured logger at info level.
type LoggingEventSink struct {
	logger *slog.Logger
}

// NewLoggingEventSink creates an event sink that logs to logger, or to slog.Default when logger is nil.
func NewLoggingEventSink(logger *slog.Logger) EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingEventSink{logger: logger}
}

func (l *LoggingEventSink) EntityAdded(ctx context.Context, kind string, id uuid.UUID) error {
	l.logger.InfoContext(ctx, "Entity added", "kind", kind, "id", id)
	return nil
}

func (l *LoggingEventSink) EntityUpdated(ctx context.Context, kind string, id uuid.UUID) error {
	l.logger.InfoContext(ctx, "Entity updated", "kind", kind, "id", id)
	return nil
}

func (l *LoggingEventSink) EntitySoftDeleted(ctx context.Context, kind string, id uuid.UUID) error {
	l.logger.InfoContext(ctx, "Entity soft-deleted", "kind", kind, "id", id)
	return nil
}

func (l *LoggingEventSink) EntityRemoved(ctx context.Context, kind string, id uuid.UUID) error {
	l.logger.InfoContext(ctx, "Entity removed", "kind", kind, "id", id)
	return nil
}

func (l *LoggingEventSink) UserContentPurged(ctx context.Context, kind string, userID uuid.UUID, removed int) error {
	l.logger.InfoContext(ctx, "User content purged", "kind", kind, "user_id", userID, "removed", removed)
	return nil
}

// Event is a lifecycle notification recorded while a write runs and
// delivered once it has committed.
type Event func(ctx context.Context, sink EventSink, kind string) error

// AddedEvent records that id was stored for the first time.
func AddedEvent(id uuid.UUID) Event {
	return func(ctx context.Context, sink EventSink, kind string) error {
		return sink.EntityAdded(ctx, kind, id)
	}
}

// UpdatedEvent records that the live entity id was updated.
func UpdatedEvent(id uuid.UUID) Event {
	return func(ctx context.Context, sink EventSink, kind string) error {
		return sink.EntityUpdated(ctx, kind, id)
	}
}

// SoftDeletedEvent records that id was soft-deleted.
func SoftDeletedEvent(id uuid.UUID) Event {
	return func(ctx context.Context, sink EventSink, kind string) error {
		return sink.EntitySoftDeleted(ctx, kind, id)
	}
}

// RemovedEvent records that id was erased.
func RemovedEvent(id uuid.UUID) Event {
	return func(ctx context.Context, sink EventSink, kind string) error {
		return sink.EntityRemoved(ctx, kind, id)
	}
}

// PurgedEvent records that removed entities owned by userID were erased.
func PurgedEvent(userID uuid.UUID, removed int) Event {
	return func(ctx context.Context, sink EventSink, kind string) error {
		return sink.UserContentPurged(ctx, kind, userID, removed)
	}
}
