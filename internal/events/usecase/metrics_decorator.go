package usecase

import (
	"context"
	"time"

	eventsDomain "github.com/allisson/marketsync/internal/events/domain"
	"github.com/allisson/marketsync/internal/metrics"
)

// eventUseCaseWithMetrics decorates EventUseCase with metrics instrumentation.
type eventUseCaseWithMetrics struct {
	next    EventUseCase
	metrics metrics.BusinessMetrics
}

// NewEventUseCaseWithMetrics wraps an EventUseCase with metrics recording.
func NewEventUseCaseWithMetrics(useCase EventUseCase, m metrics.BusinessMetrics) EventUseCase {
	return &eventUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// PollEvents records metrics for poll cycles.
func (e *eventUseCaseWithMetrics) PollEvents(ctx context.Context) (*eventsDomain.PollResult, error) {
	start := time.Now()
	result, err := e.next.PollEvents(ctx)
	e.record(ctx, "events_poll", start, err)
	return result, err
}

// RetryEvent records metrics for manual event retries.
func (e *eventUseCaseWithMetrics) RetryEvent(ctx context.Context, eventID string) (*eventsDomain.SyncEvent, error) {
	start := time.Now()
	event, err := e.next.RetryEvent(ctx, eventID)
	e.record(ctx, "event_retry", start, err)
	return event, err
}

// ListEvents records metrics for event listing.
func (e *eventUseCaseWithMetrics) ListEvents(
	ctx context.Context,
	filter eventsDomain.ListFilter,
) (*eventsDomain.Page, error) {
	start := time.Now()
	page, err := e.next.ListEvents(ctx, filter)
	e.record(ctx, "events_list", start, err)
	return page, err
}

// CleanupProcessed records metrics for retention sweeps.
func (e *eventUseCaseWithMetrics) CleanupProcessed(
	ctx context.Context,
	olderThan time.Duration,
	dryRun bool,
) (int64, error) {
	start := time.Now()
	count, err := e.next.CleanupProcessed(ctx, olderThan, dryRun)
	e.record(ctx, "events_cleanup", start, err)
	return count, err
}

func (e *eventUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	e.metrics.RecordOperation(ctx, "events", operation, status)
	e.metrics.RecordDuration(ctx, "events", operation, time.Since(start), status)
}
