// Package repository implements sync event persistence for PostgreSQL and MySQL.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/marketsync/internal/database"
	apperrors "github.com/allisson/marketsync/internal/errors"
	eventsDomain "github.com/allisson/marketsync/internal/events/domain"
)

const eventColumns = `id, event_id, event_type, source, stream, payload, processed, processed_at,
	processing_error, retry_count, created_at`

// PostgreSQLEventRepository implements SyncEvent persistence for PostgreSQL databases.
type PostgreSQLEventRepository struct {
	db *sql.DB
}

// Create inserts a new event. A stored event with the same event id yields ErrDuplicateEvent.
func (p *PostgreSQLEventRepository) Create(ctx context.Context, event *eventsDomain.SyncEvent) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO sync_events (` + eventColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

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
func (p *PostgreSQLEventRepository) ExistsByEventID(ctx context.Context, eventID string) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM sync_events WHERE event_id = $1)`
	if err := querier.QueryRowContext(ctx, query, eventID).Scan(&exists); err != nil {
		return false, apperrors.Wrap(err, "failed to check sync event")
	}
	return exists, nil
}

// GetByEventID retrieves an event by its stable event id.
func (p *PostgreSQLEventRepository) GetByEventID(
	ctx context.Context,
	eventID string,
) (*eventsDomain.SyncEvent, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + eventColumns + ` FROM sync_events WHERE event_id = $1`

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
// Ingestion order is used rather than processing time so that retrying an old
// event never moves the cursor backwards.
func (p *PostgreSQLEventRepository) LatestProcessed(
	ctx context.Context,
	source, stream string,
) (*eventsDomain.SyncEvent, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + eventColumns + `
			  FROM sync_events
			  WHERE source = $1 AND stream = $2 AND processed = TRUE
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
func (p *PostgreSQLEventRepository) MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE sync_events SET processed = TRUE, processed_at = $1, processing_error = NULL WHERE id = $2`

	if _, err := querier.ExecContext(ctx, query, at, id); err != nil {
		return apperrors.Wrap(err, "failed to mark sync event processed")
	}
	return nil
}

// MarkFailed records a handler error and increments the retry counter.
func (p *PostgreSQLEventRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE sync_events SET processing_error = $1, retry_count = retry_count + 1 WHERE id = $2`

	if _, err := querier.ExecContext(ctx, query, reason, id); err != nil {
		return apperrors.Wrap(err, "failed to mark sync event failed")
	}
	return nil
}

// List returns one page of events matching the filter, newest first, and the total match count.
func (p *PostgreSQLEventRepository) List(
	ctx context.Context,
	filter eventsDomain.ListFilter,
) ([]*eventsDomain.SyncEvent, int, error) {
	querier := database.GetTx(ctx, p.db)

	where, args := buildEventFilter(filter, func(n int) string { return fmt.Sprintf("$%d", n) })

	var total int
	countQuery := `SELECT COUNT(*) FROM sync_events` + where
	if err := querier.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, apperrors.Wrap(err, "failed to count sync events")
	}

	query := fmt.Sprintf(
		`SELECT %s FROM sync_events%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		eventColumns, where, len(args)+1, len(args)+2,
	)
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
func (p *PostgreSQLEventRepository) CountProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	var count int64
	query := `SELECT COUNT(*) FROM sync_events WHERE processed = TRUE AND created_at < $1`
	if err := querier.QueryRowContext(ctx, query, before).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count processed sync events")
	}
	return count, nil
}

// DeleteProcessedBefore removes processed events ingested before the cutoff.
// The newest processed event of each stream is kept because it is the stream cursor.
func (p *PostgreSQLEventRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM sync_events
			  WHERE processed = TRUE AND created_at < $1
			    AND id NOT IN (
			        SELECT DISTINCT ON (source, stream) id
			        FROM sync_events
			        WHERE processed = TRUE
			        ORDER BY source, stream, created_at DESC, id DESC
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

// NewPostgreSQLEventRepository creates a new PostgreSQL SyncEvent repository instance.
func NewPostgreSQLEventRepository(db *sql.DB) *PostgreSQLEventRepository {
	return &PostgreSQLEventRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (*eventsDomain.SyncEvent, error) {
	var event eventsDomain.SyncEvent
	var payload []byte
	err := row.Scan(
		&event.ID,
		&event.EventID,
		&event.EventType,
		&event.Source,
		&event.Stream,
		&payload,
		&event.Processed,
		&event.ProcessedAt,
		&event.ProcessingError,
		&event.RetryCount,
		&event.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	event.Payload = payload
	return &event, nil
}

func scanEvents(rows *sql.Rows) ([]*eventsDomain.SyncEvent, error) {
	var events []*eventsDomain.SyncEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan sync event")
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate sync events")
	}
	return events, nil
}

// buildEventFilter renders the WHERE clause of a list query with the driver's placeholders.
func buildEventFilter(filter eventsDomain.ListFilter, placeholder func(n int) string) (string, []any) {
	var conditions []string
	var args []any

	if filter.EventType != "" {
		args = append(args, filter.EventType)
		conditions = append(conditions, "event_type = "+placeholder(len(args)))
	}
	if filter.Processed != nil {
		args = append(args, *filter.Processed)
		conditions = append(conditions, "processed = "+placeholder(len(args)))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
