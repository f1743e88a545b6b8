package contentrepo

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
)

// Options holds the settings shared by repository implementations.
type Options struct {
	Kind   string
	Logger *slog.Logger
	Events EventSink
}

// Option configures a repository.
type Option func(*Options)

// WithKind names the entity type in logs, events and errors.
func WithKind(kind string) Option {
	return func(o *Options) {
		o.Kind = kind
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithEventSink sets the receiver of lifecycle events.
func WithEventSink(sink EventSink) Option {
	return func(o *Options) {
		o.Events = sink
	}
}

// NewOptions applies opts over the defaults.
func NewOptions(opts ...Option) Options {
	o := Options{
		Kind:   "content",
		Logger: slog.Default(),
		Events: NewNoopEventSink(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Events == nil {
		o.Events = NewNoopEventSink()
	}
	return o
}

// Failed logs an expected failure at debug level and passes it through.
func (o Options) Failed(ctx context.Context, op string, r Result) Result {
	if r.IsFailure() {
		o.Logger.DebugContext(ctx, "Repository operation rejected", "kind", o.Kind, "op", op, "reason", r.Message())
	}
	return r
}

// Fault wraps err in a RepositoryError and logs it at error level.
// Cancellation and deadline errors are returned as they are and not logged.
func (o Options) Fault(ctx context.Context, op string, id uuid.UUID, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	o.Logger.ErrorContext(ctx, "Repository operation failed", "kind", o.Kind, "op", op, "id", id, "err", err)
	return &RepositoryError{Op: op, Kind: o.Kind, ID: id, Err: err}
}

// Publish delivers events in order. Sink errors are logged and never reach the caller.
func (o Options) Publish(ctx context.Context, events ...Event) {
	for _, ev := range events {
		if err := ev(ctx, o.Events, o.Kind); err != nil {
			o.Logger.WarnContext(ctx, "Failed to deliver repository event", "kind", o.Kind, "err", err)
		}
	}
}
