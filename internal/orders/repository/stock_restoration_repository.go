package repository

import (
	"context"
	"database/sql"

	"github.com/allisson/marketsync/internal/database"
	apperrors "github.com/allisson/marketsync/internal/errors"
	ordersDomain "github.com/allisson/marketsync/internal/orders/domain"
)

// PostgreSQLStockRestorationRepository records stock restorations in PostgreSQL.
type PostgreSQLStockRestorationRepository struct {
	db *sql.DB
}

// TryRecord inserts the restoration guard row. It returns false when the order
// was already restored. The insert never fails on the duplicate, so it is safe
// inside a transaction that performs the increments.
func (p *PostgreSQLStockRestorationRepository) TryRecord(
	ctx context.Context,
	restoration *ordersDomain.StockRestoration,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO stock_restorations (order_id, quantity, restored_at)
			  VALUES ($1, $2, $3)
			  ON CONFLICT (order_id) DO NOTHING`

	result, err := querier.ExecContext(ctx, query, restoration.OrderID, restoration.Quantity, restoration.RestoredAt)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to record stock restoration")
	}
	return inserted(result)
}

// NewPostgreSQLStockRestorationRepository creates a new PostgreSQL StockRestoration repository instance.
func NewPostgreSQLStockRestorationRepository(db *sql.DB) *PostgreSQLStockRestorationRepository {
	return &PostgreSQLStockRestorationRepository{db: db}
}

// MySQLStockRestorationRepository records stock restorations in MySQL.
type MySQLStockRestorationRepository struct {
	db *sql.DB
}

// TryRecord inserts the restoration guard row. It returns false when the order
// was already restored.
func (m *MySQLStockRestorationRepository) TryRecord(
	ctx context.Context,
	restoration *ordersDomain.StockRestoration,
) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT IGNORE INTO stock_restorations (order_id, quantity, restored_at) VALUES (?, ?, ?)`

	result, err := querier.ExecContext(ctx, query, restoration.OrderID, restoration.Quantity, restoration.RestoredAt)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to record stock restoration")
	}
	return inserted(result)
}

// NewMySQLStockRestorationRepository creates a new MySQL StockRestoration repository instance.
func NewMySQLStockRestorationRepository(db *sql.DB) *MySQLStockRestorationRepository {
	return &MySQLStockRestorationRepository{db: db}
}

func inserted(result sql.Result) (bool, error) {
	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to read affected rows")
	}
	return affected > 0, nil
}
