// Package usecase implements event ingestion: cursor recovery, polling of the
// marketplace event streams, dispatch to entity handlers, manual retries,
// listing and the retention sweep.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	eventsDomain "github.com/allisson/marketsync/internal/events/domain"
	"github.com/allisson/marketsync/internal/marketplace"
)

// EventRepository defines the interface for SyncEvent persistence operations.
type EventRepository interface {
	Create(ctx context.Context, event *eventsDomain.SyncEvent) error
	ExistsByEventID(ctx context.Context, eventID string) (bool, error)
	GetByEventID(ctx context.Context, eventID string) (*eventsDomain.SyncEvent, error)
	LatestProcessed(ctx context.Context, source, stream string) (*eventsDomain.SyncEvent, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	List(ctx context.Context, filter eventsDomain.ListFilter) ([]*eventsDomain.SyncEvent, int, error)
	CountProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}

// EventSource reads the marketplace event streams.
type EventSource interface {
	ListEvents(
		ctx context.Context,
		token string,
		stream marketplace.Stream,
		after string,
		limit int,
	) (*marketplace.EventPage, error)
}

// TokenSource hands out decrypted marketplace access tokens.
type TokenSource interface {
	AccessToken(ctx context.Context, accountID uuid.UUID) (string, error)
}

// Dispatcher routes an event to its entity handler. It returns
// eventsDomain.ErrUnknownEventType when no handler is registered.
type Dispatcher interface {
	Dispatch(ctx context.Context, event *eventsDomain.SyncEvent) error
}

// EventUseCase defines the event ingestion operations.
type EventUseCase interface {
	// PollEvents fetches and handles one page of every stream.
	PollEvents(ctx context.Context) (*eventsDomain.PollResult, error)
	// RetryEvent re-runs the handler of a stored, unprocessed event.
	RetryEvent(ctx context.Context, eventID string) (*eventsDomain.SyncEvent, error)
	ListEvents(ctx context.Context, filter eventsDomain.ListFilter) (*eventsDomain.Page, error)
	// CleanupProcessed deletes processed events older than olderThan, or only counts them on dry run.
	CleanupProcessed(ctx context.Context, olderThan time.Duration, dryRun bool) (int64, error)
}
