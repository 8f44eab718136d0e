// Package repository provides notification outbox persistence for PostgreSQL and MySQL.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/allisson/marketsync/internal/database"
	apperrors "github.com/allisson/marketsync/internal/errors"
	notificationDomain "github.com/allisson/marketsync/internal/notification/domain"
)

const outboxColumns = `id, channel, type, recipient, subject, message, template_data, status, retries,
	last_error, processed_at, created_at, updated_at`

// PostgreSQLOutboxRepository handles notification outbox persistence for PostgreSQL.
type PostgreSQLOutboxRepository struct {
	db *sql.DB
}

// NewPostgreSQLOutboxRepository creates a new PostgreSQLOutboxRepository.
func NewPostgreSQLOutboxRepository(db *sql.DB) *PostgreSQLOutboxRepository {
	return &PostgreSQLOutboxRepository{db: db}
}

// Create inserts a new outbox entry.
func (r *PostgreSQLOutboxRepository) Create(ctx context.Context, entry *notificationDomain.OutboxEntry) error {
	querier := database.GetTx(ctx, r.db)

	templateData, err := encodeTemplateData(entry.Notification.TemplateData)
	if err != nil {
		return err
	}

	query := `INSERT INTO notification_outbox (` + outboxColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

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
// Concurrent workers skip rows locked by each other.
func (r *PostgreSQLOutboxRepository) GetPending(
	ctx context.Context,
	limit int,
) ([]*notificationDomain.OutboxEntry, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + outboxColumns + `
			  FROM notification_outbox
			  WHERE status = $1
			  ORDER BY created_at ASC
			  LIMIT $2
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, notificationDomain.OutboxStatusPending, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get pending outbox entries")
	}
	defer rows.Close() //nolint:errcheck

	return scanEntries(rows)
}

// Update persists the delivery state of an entry.
func (r *PostgreSQLOutboxRepository) Update(ctx context.Context, entry *notificationDomain.OutboxEntry) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE notification_outbox
			  SET status = $1, retries = $2, last_error = $3, processed_at = $4, updated_at = $5
			  WHERE id = $6`

	_, err := querier.ExecContext(ctx, query,
		entry.Status, entry.Retries, entry.LastError, entry.ProcessedAt, entry.UpdatedAt, entry.ID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update outbox entry")
	}
	return nil
}

func encodeTemplateData(data map[string]any) (string, error) {
	if data == nil {
		return "{}", nil
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to encode template data")
	}
	return string(encoded), nil
}

func scanEntries(rows *sql.Rows) ([]*notificationDomain.OutboxEntry, error) {
	var entries []*notificationDomain.OutboxEntry
	for rows.Next() {
		var entry notificationDomain.OutboxEntry
		var templateData []byte

		err := rows.Scan(&entry.ID, &entry.Notification.Channel, &entry.Notification.Type,
			&entry.Notification.Recipient, &entry.Notification.Subject, &entry.Notification.Message,
			&templateData, &entry.Status, &entry.Retries, &entry.LastError, &entry.ProcessedAt,
			&entry.CreatedAt, &entry.UpdatedAt)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan outbox entry")
		}
		if len(templateData) > 0 {
			if err := json.Unmarshal(templateData, &entry.Notification.TemplateData); err != nil {
				return nil, apperrors.Wrap(err, "failed to decode template data")
			}
		}

		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate outbox entries")
	}
	return entries, nil
}
