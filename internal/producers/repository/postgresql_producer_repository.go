// Package repository provides producer persistence for PostgreSQL and MySQL.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/allisson/marketsync/internal/database"
	apperrors "github.com/allisson/marketsync/internal/errors"
	producersDomain "github.com/allisson/marketsync/internal/producers/domain"
)

const producerColumns = `id, account_id, remote_id, name, email, phone, address, raw_data, sync_status,
	last_synced_at, created_at, updated_at`

// PostgreSQLProducerRepository handles producer persistence for PostgreSQL.
type PostgreSQLProducerRepository struct {
	db *sql.DB
}

// Upsert inserts the producer or refreshes the stored one with the same
// (account_id, remote_id). The stored id is written back to producer.
func (p *PostgreSQLProducerRepository) Upsert(ctx context.Context, producer *producersDomain.Producer) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO producers (` + producerColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			  ON CONFLICT (account_id, remote_id) DO UPDATE
			  SET name = EXCLUDED.name, email = EXCLUDED.email, phone = EXCLUDED.phone,
			      address = EXCLUDED.address, raw_data = EXCLUDED.raw_data,
			      sync_status = EXCLUDED.sync_status, last_synced_at = EXCLUDED.last_synced_at,
			      updated_at = EXCLUDED.updated_at
			  RETURNING id, created_at`

	err := querier.QueryRowContext(
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
	).Scan(&producer.ID, &producer.CreatedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to upsert producer")
	}
	return nil
}

// GetByRemoteID retrieves the producer of an account by its marketplace id.
func (p *PostgreSQLProducerRepository) GetByRemoteID(
	ctx context.Context,
	accountID uuid.UUID,
	remoteID string,
) (*producersDomain.Producer, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + producerColumns + ` FROM producers WHERE account_id = $1 AND remote_id = $2`

	return scanProducer(querier.QueryRowContext(ctx, query, accountID, remoteID))
}

// NewPostgreSQLProducerRepository creates a new PostgreSQL producer repository.
func NewPostgreSQLProducerRepository(db *sql.DB) *PostgreSQLProducerRepository {
	return &PostgreSQLProducerRepository{db: db}
}

// jsonOrNull passes JSON documents as text so both drivers store them in JSON columns.
func jsonOrNull(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func scanProducer(row *sql.Row) (*producersDomain.Producer, error) {
	var producer producersDomain.Producer
	var address, rawData []byte

	err := row.Scan(
		&producer.ID,
		&producer.AccountID,
		&producer.RemoteID,
		&producer.Name,
		&producer.Email,
		&producer.Phone,
		&address,
		&rawData,
		&producer.SyncStatus,
		&producer.LastSyncedAt,
		&producer.CreatedAt,
		&producer.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, producersDomain.ErrProducerNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get producer")
	}

	if len(address) > 0 {
		producer.Address = json.RawMessage(address)
	}
	if len(rawData) > 0 {
		producer.RawData = json.RawMessage(rawData)
	}
	return &producer, nil
}
