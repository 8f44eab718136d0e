// Package repository provides lease persistence for PostgreSQL and MySQL.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/allisson/marketsync/internal/database"
	apperrors "github.com/allisson/marketsync/internal/errors"
	leaseDomain "github.com/allisson/marketsync/internal/lease/domain"
)

// PostgreSQLLeaseRepository handles lease persistence for PostgreSQL.
type PostgreSQLLeaseRepository struct {
	db *sql.DB
}

// TryAcquire takes the lease when it is free, expired or already held by the
// same holder. It reports whether the lease is now held by lease.Holder.
func (p *PostgreSQLLeaseRepository) TryAcquire(ctx context.Context, lease *leaseDomain.Lease) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO sync_leases (name, holder, expires_at, acquired_at)
			  VALUES ($1, $2, $3, $4)
			  ON CONFLICT (name) DO UPDATE
			  SET holder = EXCLUDED.holder, expires_at = EXCLUDED.expires_at, acquired_at = EXCLUDED.acquired_at
			  WHERE sync_leases.expires_at < EXCLUDED.acquired_at OR sync_leases.holder = EXCLUDED.holder`

	result, err := querier.ExecContext(ctx, query, lease.Name, lease.Holder, lease.ExpiresAt, lease.AcquiredAt)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to acquire lease")
	}
	return affectedOne(result)
}

// Renew extends a lease still held by holder.
func (p *PostgreSQLLeaseRepository) Renew(
	ctx context.Context,
	name, holder string,
	expiresAt time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE sync_leases SET expires_at = $1 WHERE name = $2 AND holder = $3`

	result, err := querier.ExecContext(ctx, query, expiresAt, name, holder)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to renew lease")
	}
	return affectedOne(result)
}

// Release drops the lease if holder still owns it.
func (p *PostgreSQLLeaseRepository) Release(ctx context.Context, name, holder string) error {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM sync_leases WHERE name = $1 AND holder = $2`

	if _, err := querier.ExecContext(ctx, query, name, holder); err != nil {
		return apperrors.Wrap(err, "failed to release lease")
	}
	return nil
}

// NewPostgreSQLLeaseRepository creates a new PostgreSQL lease repository.
func NewPostgreSQLLeaseRepository(db *sql.DB) *PostgreSQLLeaseRepository {
	return &PostgreSQLLeaseRepository{db: db}
}

func affectedOne(result sql.Result) (bool, error) {
	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to read affected rows")
	}
	return affected > 0, nil
}
