package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/allisson/marketsync/internal/database"
	apperrors "github.com/allisson/marketsync/internal/errors"
	producersDomain "github.com/allisson/marketsync/internal/producers/domain"
)

// MySQLProducerRepository handles producer persistence for MySQL.
type MySQLProducerRepository struct {
	db *sql.DB
}

// Upsert inserts the producer or refreshes the stored one with the same
// (account_id, remote_id). MySQL has no RETURNING, so the stored row is read
// back in the same transaction or connection.
func (m *MySQLProducerRepository) Upsert(ctx context.Context, producer *producersDomain.Producer) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO producers (` + producerColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			  ON DUPLICATE KEY UPDATE
			  name = VALUES(name), email = VALUES(email), phone = VALUES(phone),
			  address = VALUES(address), raw_data = VALUES(raw_data),
			  sync_status = VALUES(sync_status), last_synced_at = VALUES(last_synced_at),
			  updated_at = VALUES(updated_at)`

	_, err := querier.ExecContext(
		ctx,
		query,
		producer.ID,
		producer.AccountID,
		producer.RemoteID,
		producer.Name,
		producer.Email,
		producer.Phone,
		jsonOrNull(producer.Address),
		jsonOrNull(producer.RawData),
		producer.SyncStatus,
		producer.LastSyncedAt,
		producer.CreatedAt,
		producer.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to upsert producer")
	}

	err = querier.QueryRowContext(
		ctx,
		`SELECT id, created_at FROM producers WHERE account_id = ? AND remote_id = ?`,
		producer.AccountID,
		producer.RemoteID,
	).Scan(&producer.ID, &producer.CreatedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to read upserted producer")
	}
	return nil
}

// GetByRemoteID retrieves the producer of an account by its marketplace id.
func (m *MySQLProducerRepository) GetByRemoteID(
	ctx context.Context,
	accountID uuid.UUID,
	remoteID string,
) (*producersDomain.Producer, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + producerColumns + ` FROM producers WHERE account_id = ? AND remote_id = ?`

	return scanProducer(querier.QueryRowContext(ctx, query, accountID, remoteID))
}

// NewMySQLProducerRepository creates a new MySQL producer repository.
func NewMySQLProducerRepository(db *sql.DB) *MySQLProducerRepository {
	return &MySQLProducerRepository{db: db}
}
