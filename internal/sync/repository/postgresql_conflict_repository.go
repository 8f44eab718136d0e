// Package repository provides persistence of the manual-review conflict queue.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/allisson/marketsync/internal/database"
	apperrors "github.com/allisson/marketsync/internal/errors"
	syncDomain "github.com/allisson/marketsync/internal/sync/domain"
)

const conflictColumns = `id, entity_type, entity_id, strategy, db_updated_at, remote_updated_at,
	db_snapshot, remote_snapshot, created_at`

// PostgreSQLConflictRepository handles conflict persistence for PostgreSQL.
type PostgreSQLConflictRepository struct {
	db *sql.DB
}

// Create queues a conflict for review.
func (p *PostgreSQLConflictRepository) Create(ctx context.Context, c *syncDomain.Conflict) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO sync_conflicts (` + conflictColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := querier.ExecContext(
		ctx,
		query,
		c.ID,
		c.EntityType,
		c.EntityID,
		c.Strategy,
		c.DBUpdatedAt,
		c.RemoteUpdatedAt,
		snapshot(c.DBSnapshot),
		snapshot(c.RemoteSnapshot),
		c.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create sync conflict")
	}
	return nil
}

// List returns the newest conflicts first.
func (p *PostgreSQLConflictRepository) List(ctx context.Context, limit int) ([]*syncDomain.Conflict, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + conflictColumns + ` FROM sync_conflicts ORDER BY created_at DESC LIMIT $1`

	rows, err := querier.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list sync conflicts")
	}
	return scanConflicts(rows)
}

// NewPostgreSQLConflictRepository creates a new PostgreSQL conflict repository.
func NewPostgreSQLConflictRepository(db *sql.DB) *PostgreSQLConflictRepository {
	return &PostgreSQLConflictRepository{db: db}
}

func snapshot(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "null"
	}
	return string(raw)
}

func scanConflicts(rows *sql.Rows) ([]*syncDomain.Conflict, error) {
	defer rows.Close() //nolint:errcheck

	var conflicts []*syncDomain.Conflict
	for rows.Next() {
		var (
			c              syncDomain.Conflict
			dbSnapshot     []byte
			remoteSnapshot []byte
		)
		err := rows.Scan(
			&c.ID,
			&c.EntityType,
			&c.EntityID,
			&c.Strategy,
			&c.DBUpdatedAt,
			&c.RemoteUpdatedAt,
			&dbSnapshot,
			&remoteSnapshot,
			&c.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan sync conflict")
		}
		c.DBSnapshot = dbSnapshot
		c.RemoteSnapshot = remoteSnapshot
		conflicts = append(conflicts, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate sync conflicts")
	}
	return conflicts, nil
}
