package usecase

import (
	"context"
	"errors"

	eventsDomain "github.com/allisson/marketsync/internal/events/domain"
)

// CursorStore derives the resume position of a stream from persisted events.
// No offset is stored separately: the cursor is the event id of the latest
// processed event of the stream.
type CursorStore struct {
	eventRepo EventRepository
}

// NewCursorStore creates a CursorStore.
func NewCursorStore(eventRepo EventRepository) *CursorStore {
	return &CursorStore{eventRepo: eventRepo}
}

// Cursor returns the stream cursor, or an empty string when nothing was processed yet.
func (c *CursorStore) Cursor(ctx context.Context, source, stream string) (string, error) {
	event, err := c.eventRepo.LatestProcessed(ctx, source, stream)
	if err != nil {
		if errors.Is(err, eventsDomain.ErrEventNotFound) {
			return "", nil
		}
		return "", err
	}
	return event.EventID, nil
}
