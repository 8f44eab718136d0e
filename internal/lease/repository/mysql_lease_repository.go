package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/allisson/marketsync/internal/database"
	apperrors "github.com/allisson/marketsync/internal/errors"
	leaseDomain "github.com/allisson/marketsync/internal/lease/domain"
)

// MySQLLeaseRepository handles lease persistence for MySQL.
type MySQLLeaseRepository struct {
	db *sql.DB
}

// TryAcquire takes the lease when it is free, expired or already held by the
// same holder. ON DUPLICATE KEY UPDATE evaluates assignments in order, so the
// takeover is done with a separate conditional UPDATE instead.
func (m *MySQLLeaseRepository) TryAcquire(ctx context.Context, lease *leaseDomain.Lease) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	result, err := querier.ExecContext(
		ctx,
		`INSERT IGNORE INTO sync_leases (name, holder, expires_at, acquired_at) VALUES (?, ?, ?, ?)`,
		lease.Name, lease.Holder, lease.ExpiresAt, lease.AcquiredAt,
	)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to acquire lease")
	}
	if ok, err := affectedOne(result); err != nil || ok {
		return ok, err
	}

	result, err = querier.ExecContext(
		ctx,
		`UPDATE sync_leases SET holder = ?, expires_at = ?, acquired_at = ?
		 WHERE name = ? AND (expires_at < ? OR holder = ?)`,
		lease.Holder, lease.ExpiresAt, lease.AcquiredAt, lease.Name, lease.AcquiredAt, lease.Holder,
	)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to take over lease")
	}
	return affectedOne(result)
}

// Renew extends a lease still held by holder.
func (m *MySQLLeaseRepository) Renew(ctx context.Context, name, holder string, expiresAt time.Time) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	result, err := querier.ExecContext(
		ctx,
		`UPDATE sync_leases SET expires_at = ? WHERE name = ? AND holder = ?`,
		expiresAt, name, holder,
	)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to renew lease")
	}
	return affectedOne(result)
}

// Release drops the lease if holder still owns it.
func (m *MySQLLeaseRepository) Release(ctx context.Context, name, holder string) error {
	querier := database.GetTx(ctx, m.db)

	if _, err := querier.ExecContext(ctx, `DELETE FROM sync_leases WHERE name = ? AND holder = ?`, name, holder); err != nil {
		return apperrors.Wrap(err, "failed to release lease")
	}
	return nil
}

// NewMySQLLeaseRepository creates a new MySQL lease repository.
func NewMySQLLeaseRepository(db *sql.DB) *MySQLLeaseRepository {
	return &MySQLLeaseRepository{db: db}
}
