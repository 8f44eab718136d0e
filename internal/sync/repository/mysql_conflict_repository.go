package repository

import (
	"context"
	"database/sql"

	"github.com/allisson/marketsync/internal/database"
	apperrors "github.com/allisson/marketsync/internal/errors"
	syncDomain "github.com/allisson/marketsync/internal/sync/domain"
)

// MySQLConflictRepository handles conflict persistence for MySQL.
type MySQLConflictRepository struct {
	db *sql.DB
}

// Create queues a conflict for review.
func (m *MySQLConflictRepository) Create(ctx context.Context, c *syncDomain.Conflict) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO sync_conflicts (` + conflictColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

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
func (m *MySQLConflictRepository) List(ctx context.Context, limit int) ([]*syncDomain.Conflict, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + conflictColumns + ` FROM sync_conflicts ORDER BY created_at DESC LIMIT ?`

	rows, err := querier.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list sync conflicts")
	}
	return scanConflicts(rows)
}

// NewMySQLConflictRepository creates a new MySQL conflict repository.
func NewMySQLConflictRepository(db *sql.DB) *MySQLConflictRepository {
	return &MySQLConflictRepository{db: db}
}
