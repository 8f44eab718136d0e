package handler

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	eventsDomain "github.com/allisson/marketsync/internal/events/domain"
)

// Registry routes events to handlers by internal event type.
type Registry struct {
	handlers map[string]Handler
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
		logger:   logger,
		tracer:   otel.Tracer("github.com/allisson/marketsync/internal/events/handler"),
	}
}

// Register binds h to eventType, replacing any previous handler.
func (r *Registry) Register(eventType string, h Handler) {
	r.handlers[eventType] = h
}

// Dispatch runs the handler registered for the event type.
func (r *Registry) Dispatch(ctx context.Context, event *eventsDomain.SyncEvent) error {
	h, ok := r.handlers[event.EventType]
	if !ok {
		r.logger.Warn("dropping event with unknown type",
			slog.String("event_id", event.EventID),
			slog.String("event_type", event.EventType),
		)
		return fmt.Errorf("%w: %s", eventsDomain.ErrUnknownEventType, event.EventType)
	}

	ctx, span := r.tracer.Start(ctx, "events.handle", trace.WithAttributes(
		attribute.String("event.id", event.EventID),
		attribute.String("event.type", event.EventType),
	))
	defer span.End()

	if err := h.Handle(ctx, event); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}
