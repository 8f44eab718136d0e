package repository

import (
	"context"
	"database/sql"

	"github.com/allisson/marketsync/internal/database"
	apperrors "github.com/allisson/marketsync/internal/errors"
	notificationDomain "github.com/allisson/marketsync/internal/notification/domain"
)

// MySQLOutboxRepository handles notification outbox persistence for MySQL.
type MySQLOutboxRepository struct {
	db *sql.DB
}

// NewMySQLOutboxRepository creates a new MySQLOutboxRepository.
func NewMySQLOutboxRepository(db *sql.DB) *MySQLOutboxRepository {
	return &MySQLOutboxRepository{db: db}
}

// Create inserts a new outbox entry.
func (r *MySQLOutboxRepository) Create(ctx context.Context, entry *notificationDomain.OutboxEntry) error {
	querier := database.GetTx(ctx, r.db)

	templateData, err := encodeTemplateData(entry.Notification.TemplateData)
	if err != nil {
		return err
	}

	query := `INSERT INTO notification_outbox (` + outboxColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(ctx, query,
		entry.ID, entry.Notification.Channel, entry.Notification.Type, entry.Notification.Recipient,
		entry.Notification.Subject, entry.Notification.Message, templateData, entry.Status, entry.Retries,
		entry.LastError, entry.ProcessedAt, entry.CreatedAt, entry.UpdatedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to create outbox entry")
	}
	return nil
}

// GetPending locks and returns up to limit pending entries, oldest first.
func (r *MySQLOutboxRepository) GetPending(
	ctx context.Context,
	limit int,
) ([]*notificationDomain.OutboxEntry, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + outboxColumns + `
			  FROM notification_outbox
			  WHERE status = ?
			  ORDER BY created_at ASC
			  LIMIT ?
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, notificationDomain.OutboxStatusPending, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get pending outbox entries")
	}
	defer rows.Close() //nolint:errcheck

	return scanEntries(rows)
}

// Update persists the delivery state of an entry.
func (r *MySQLOutboxRepository) Update(ctx context.Context, entry *notificationDomain.OutboxEntry) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE notification_outbox
			  SET status = ?, retries = ?, last_error = ?, processed_at = ?, updated_at = ?
			  WHERE id = ?`

	_, err := querier.ExecContext(ctx, query,
		entry.Status, entry.Retries, entry.LastError, entry.ProcessedAt, entry.UpdatedAt, entry.ID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update outbox entry")
	}
	return nil
}
