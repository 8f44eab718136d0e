package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/allisson/marketsync/internal/errors"
	eventsDomain "github.com/allisson/marketsync/internal/events/domain"
	"github.com/allisson/marketsync/internal/marketplace"
)

// Config holds event ingestion configuration.
type Config struct {
	// AccountID is the account whose credential reads the event streams.
	AccountID uuid.UUID
	// PageSize bounds the events fetched per stream and poll.
	PageSize int
	// Streams lists the polled streams; empty means offers and orders.
	Streams []marketplace.Stream
}

type eventUseCase struct {
	config     Config
	eventRepo  EventRepository
	cursors    *CursorStore
	source     EventSource
	tokens     TokenSource
	dispatcher Dispatcher
	logger     *slog.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// PollEvents polls every stream concurrently. A failing stream is logged and
// reported in StreamErrors without affecting the others. Events of one stream
// are handled sequentially in page order.
func (e *eventUseCase) PollEvents(ctx context.Context) (*eventsDomain.PollResult, error) {
	ctx, span := e.tracer.Start(ctx, "events.poll")
	defer span.End()

	if e.config.AccountID == uuid.Nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "no account configured for event polling")
	}

	token, err := e.tokens.AccessToken(ctx, e.config.AccountID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, apperrors.Wrap(err, "failed to obtain marketplace token")
	}

	streams := e.config.Streams
	if len(streams) == 0 {
		streams = []marketplace.Stream{marketplace.StreamOffers, marketplace.StreamOrders}
	}

	var mu sync.Mutex
	result := &eventsDomain.PollResult{}

	g, gctx := errgroup.WithContext(ctx)
	for _, stream := range streams {
		g.Go(func() error {
			streamResult, err := e.pollStream(gctx, token, stream)
			if err != nil {
				e.logger.Error("failed to poll event stream",
					slog.String("stream", string(stream)),
					slog.Any("error", err),
				)
				streamResult.StreamErrors = map[string]string{string(stream): err.Error()}
			}

			mu.Lock()
			result.Add(streamResult)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return result, err
	}

	span.SetAttributes(
		attribute.Int("events.ingested", result.Ingested),
		attribute.Int("events.processed", result.Processed),
		attribute.Int("events.failed", result.Failed),
	)
	e.logger.Info("event poll finished",
		slog.Int("ingested", result.Ingested),
		slog.Int("processed", result.Processed),
		slog.Int("failed", result.Failed),
		slog.Int("duplicates", result.Duplicates),
		slog.Int("dropped", result.Dropped),
	)
	return result, nil
}

func (e *eventUseCase) pollStream(
	ctx context.Context,
	token string,
	stream marketplace.Stream,
) (eventsDomain.PollResult, error) {
	var result eventsDomain.PollResult

	cursor, err := e.cursors.Cursor(ctx, eventsDomain.SourceAllegro, string(stream))
	if err != nil {
		return result, err
	}

	page, err := e.source.ListEvents(ctx, token, stream, cursor, e.config.PageSize)
	if err != nil {
		return result, err
	}
	result.Dropped += page.Skipped

	for _, remote := range page.Events {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		e.ingest(ctx, stream, remote, &result)
	}
	return result, nil
}

func (e *eventUseCase) ingest(
	ctx context.Context,
	stream marketplace.Stream,
	remote marketplace.Event,
	result *eventsDomain.PollResult,
) {
	now := e.now()

	eventID := remote.ID
	switch {
	case eventID != "":
	case remote.OccurredAt != "":
		eventID = eventsDomain.SynthesizeID(remote.Type, remote.EntityID, remote.OccurredAt)
	default:
		// the payload is the only stable part of a re-delivered event
		eventID = eventsDomain.SynthesizeIDFromPayload(remote.Type, remote.Payload)
	}

	exists, err := e.eventRepo.ExistsByEventID(ctx, eventID)
	if err != nil {
		e.logger.Error("failed to check sync event", slog.String("event_id", eventID), slog.Any("error", err))
		result.Failed++
		return
	}
	if exists {
		result.Duplicates++
		return
	}

	event := &eventsDomain.SyncEvent{
		ID:        uuid.Must(uuid.NewV7()),
		EventID:   eventID,
		EventType: eventsDomain.TranslateType(remote.Type),
		Source:    eventsDomain.SourceAllegro,
		Stream:    string(stream),
		Payload:   remote.Payload,
		CreatedAt: now,
	}
	if err := e.eventRepo.Create(ctx, event); err != nil {
		if errors.Is(err, eventsDomain.ErrDuplicateEvent) {
			result.Duplicates++
			return
		}
		e.logger.Error("failed to store sync event", slog.String("event_id", eventID), slog.Any("error", err))
		result.Failed++
		return
	}
	result.Ingested++

	switch err := e.handle(ctx, event); {
	case errors.Is(err, eventsDomain.ErrUnknownEventType):
		result.Dropped++
	case err != nil:
		result.Failed++
	default:
		result.Processed++
	}
}

// handle dispatches the event and records the outcome on it. Unknown event
// types are marked processed so they never block the stream cursor.
func (e *eventUseCase) handle(ctx context.Context, event *eventsDomain.SyncEvent) error {
	err := e.dispatcher.Dispatch(ctx, event)
	if err != nil && !errors.Is(err, eventsDomain.ErrUnknownEventType) {
		reason := err.Error()
		e.logger.Warn("event handler failed",
			slog.String("event_id", event.EventID),
			slog.String("event_type", event.EventType),
			slog.Any("error", err),
		)
		if markErr := e.eventRepo.MarkFailed(ctx, event.ID, reason); markErr != nil {
			e.logger.Error("failed to record handler failure",
				slog.String("event_id", event.EventID),
				slog.Any("error", markErr),
			)
		}
		event.ProcessingError = &reason
		event.RetryCount++
		return fmt.Errorf("%w: %w", eventsDomain.ErrHandlerFailure, err)
	}

	if err != nil {
		e.logger.Warn("dropping event without handler",
			slog.String("event_id", event.EventID),
			slog.String("event_type", event.EventType),
		)
	}

	processedAt := e.now()
	if markErr := e.eventRepo.MarkProcessed(ctx, event.ID, processedAt); markErr != nil {
		return markErr
	}
	event.Processed = true
	event.ProcessedAt = &processedAt
	event.ProcessingError = nil
	return err
}

func (e *eventUseCase) RetryEvent(ctx context.Context, eventID string) (*eventsDomain.SyncEvent, error) {
	event, err := e.eventRepo.GetByEventID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.Processed {
		return nil, eventsDomain.ErrEventAlreadyProcessed
	}

	if err := e.handle(ctx, event); err != nil && !errors.Is(err, eventsDomain.ErrUnknownEventType) {
		return event, err
	}
	return event, nil
}

func (e *eventUseCase) ListEvents(
	ctx context.Context,
	filter eventsDomain.ListFilter,
) (*eventsDomain.Page, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	filter.Normalize()

	items, total, err := e.eventRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return eventsDomain.NewPage(items, filter, total), nil
}

func (e *eventUseCase) CleanupProcessed(ctx context.Context, olderThan time.Duration, dryRun bool) (int64, error) {
	if olderThan <= 0 {
		return 0, apperrors.Wrap(apperrors.ErrInvalidInput, "retention must be positive")
	}
	cutoff := e.now().Add(-olderThan)

	if dryRun {
		return e.eventRepo.CountProcessedBefore(ctx, cutoff)
	}

	count, err := e.eventRepo.DeleteProcessedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	e.logger.Info("processed events deleted", slog.Int64("count", count), slog.Time("cutoff", cutoff))
	return count, nil
}

// NewEventUseCase creates a new EventUseCase.
func NewEventUseCase(
	config Config,
	eventRepo EventRepository,
	source EventSource,
	tokens TokenSource,
	dispatcher Dispatcher,
	logger *slog.Logger,
) EventUseCase {
	if config.PageSize <= 0 {
		config.PageSize = 100
	}
	return &eventUseCase{
		config:     config,
		eventRepo:  eventRepo,
		cursors:    NewCursorStore(eventRepo),
		source:     source,
		tokens:     tokens,
		dispatcher: dispatcher,
		logger:     logger,
		tracer:     otel.Tracer("github.com/allisson/marketsync/internal/events"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}
