package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/marketsync/internal/database"
	apperrors "github.com/allisson/marketsync/internal/errors"
	eventsDomain "github.com/allisson/marketsync/internal/events/domain"
)

// MySQLEventRepository implements SyncEvent persistence for MySQL databases.
type MySQLEventRepository struct {
	db *sql.DB
}

// Create inserts a new event. A stored event with the same event id yields ErrDuplicateEvent.
func (m *MySQLEventRepository) Create(ctx context.Context, event *eventsDomain.SyncEvent) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO sync_events (` + eventColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		event.ID,
		event.EventID,
		event.EventType,
		event.Source,
		event.Stream,
		string(event.Payload),
		event.Processed,
		event.ProcessedAt,
		event.ProcessingError,
		event.RetryCount,
		event.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return eventsDomain.ErrDuplicateEvent
		}
		return apperrors.Wrap(err, "failed to create sync event")
	}
	return nil
}

// ExistsByEventID reports whether an event with the given event id is stored.
func (m *MySQLEventRepository) ExistsByEventID(ctx context.Context, eventID string) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM sync_events WHERE event_id = ?)`
	if err := querier.QueryRowContext(ctx, query, eventID).Scan(&exists); err != nil {
		return false, apperrors.Wrap(err, "failed to check sync event")
	}
	return exists, nil
}

// GetByEventID retrieves an event by its stable event id.
func (m *MySQLEventRepository) GetByEventID(
	ctx context.Context,
	eventID string,
) (*eventsDomain.SyncEvent, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + eventColumns + ` FROM sync_events WHERE event_id = ?`

	event, err := scanEvent(querier.QueryRowContext(ctx, query, eventID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eventsDomain.ErrEventNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get sync event")
	}
	return event, nil
}

// LatestProcessed returns the most recently ingested processed event of a stream.
func (m *MySQLEventRepository) LatestProcessed(
	ctx context.Context,
	source, stream string,
) (*eventsDomain.SyncEvent, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + eventColumns + `
			  FROM sync_events
			  WHERE source = ? AND stream = ? AND processed = 1
			  ORDER BY created_at DESC, id DESC
			  LIMIT 1`

	event, err := scanEvent(querier.QueryRowContext(ctx, query, source, stream))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eventsDomain.ErrEventNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get latest processed sync event")
	}
	return event, nil
}

// MarkProcessed flags the event as handled and clears its last error.
func (m *MySQLEventRepository) MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE sync_events SET processed = 1, processed_at = ?, processing_error = NULL WHERE id = ?`

	if _, err := querier.ExecContext(ctx, query, at, id); err != nil {
		return apperrors.Wrap(err, "failed to mark sync event processed")
	}
	return nil
}

// MarkFailed records a handler error and increments the retry counter.
func (m *MySQLEventRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE sync_events SET processing_error = ?, retry_count = retry_count + 1 WHERE id = ?`

	if _, err := querier.ExecContext(ctx, query, reason, id); err != nil {
		return apperrors.Wrap(err, "failed to mark sync event failed")
	}
	return nil
}

// List returns one page of events matching the filter, newest first, and the total match count.
func (m *MySQLEventRepository) List(
	ctx context.Context,
	filter eventsDomain.ListFilter,
) ([]*eventsDomain.SyncEvent, int, error) {
	querier := database.GetTx(ctx, m.db)

	where, args := buildEventFilter(filter, func(int) string { return "?" })

	var total int
	countQuery := `SELECT COUNT(*) FROM sync_events` + where
	if err := querier.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, apperrors.Wrap(err, "failed to count sync events")
	}

	query := `SELECT ` + eventColumns + ` FROM sync_events` + where +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := querier.QueryContext(ctx, query, append(args, filter.Limit, filter.Offset())...)
	if err != nil {
		return nil, 0, apperrors.Wrap(err, "failed to list sync events")
	}
	defer rows.Close() //nolint:errcheck

	events, err := scanEvents(rows)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// CountProcessedBefore counts processed events ingested before the cutoff,
// including the stream cursors that DeleteProcessedBefore keeps.
func (m *MySQLEventRepository) CountProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	var count int64
	query := `SELECT COUNT(*) FROM sync_events WHERE processed = 1 AND created_at < ?`
	if err := querier.QueryRowContext(ctx, query, before).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count processed sync events")
	}
	return count, nil
}

// DeleteProcessedBefore removes processed events ingested before the cutoff.
// The newest processed event of each stream is kept because it is the stream cursor.
func (m *MySQLEventRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	// The derived table is materialized, which lets MySQL read the target table in the subquery.
	query := `DELETE FROM sync_events
			  WHERE processed = 1 AND created_at < ?
			    AND id NOT IN (
			        SELECT id FROM (
			            SELECT e.id
			            FROM sync_events e
			            WHERE e.processed = 1
			              AND NOT EXISTS (
			                  SELECT 1 FROM sync_events n
			                  WHERE n.source = e.source AND n.stream = e.stream AND n.processed = 1
			                    AND (n.created_at > e.created_at OR (n.created_at = e.created_at AND n.id > e.id))
			              )
			        ) AS cursors
			    )`

	result, err := querier.ExecContext(ctx, query, before)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete processed sync events")
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to read affected rows")
	}
	return count, nil
}

// NewMySQLEventRepository creates a new MySQL SyncEvent repository instance.
func NewMySQLEventRepository(db *sql.DB) *MySQLEventRepository {
	return &MySQLEventRepository{db: db}
}
