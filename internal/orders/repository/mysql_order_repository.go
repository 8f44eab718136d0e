package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/allisson/marketsync/internal/database"
	apperrors "github.com/allisson/marketsync/internal/errors"
	ordersDomain "github.com/allisson/marketsync/internal/orders/domain"
)

// MySQLOrderRepository implements Order persistence for MySQL databases.
type MySQLOrderRepository struct {
	db *sql.DB
}

// Upsert inserts the order or overwrites the stored one with the same remote id.
// The stored id and creation time are read back afterwards.
func (m *MySQLOrderRepository) Upsert(ctx context.Context, order *ordersDomain.Order) error {
	querier := database.GetTx(ctx, m.db)

	lineItems, err := json.Marshal(order.LineItems)
	if err != nil {
		return apperrors.Wrap(err, "failed to encode line items")
	}

	query := `INSERT INTO orders (` + orderColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			  ON DUPLICATE KEY UPDATE
			      status = VALUES(status), payment_status = VALUES(payment_status),
			      fulfillment_status = VALUES(fulfillment_status), buyer_email = VALUES(buyer_email),
			      total_amount = VALUES(total_amount), currency = VALUES(currency),
			      line_items = VALUES(line_items), sync_status = VALUES(sync_status),
			      last_synced_at = VALUES(last_synced_at), updated_at = VALUES(updated_at)`

	_, err = querier.ExecContext(
		ctx,
		query,
		order.ID,
		order.RemoteOrderID,
		order.Status,
		order.PaymentStatus,
		order.FulfillmentStatus,
		order.BuyerEmail,
		decimalOrZero(order.TotalAmount),
		order.Currency,
		string(lineItems),
		order.SyncStatus,
		order.LastSyncedAt,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to upsert order")
	}

	err = querier.QueryRowContext(
		ctx,
		`SELECT id, created_at FROM orders WHERE remote_order_id = ?`,
		order.RemoteOrderID,
	).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to read upserted order")
	}
	return nil
}

// GetByRemoteID retrieves the order mirroring the given marketplace order.
func (m *MySQLOrderRepository) GetByRemoteID(
	ctx context.Context,
	remoteOrderID string,
) (*ordersDomain.Order, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + orderColumns + ` FROM orders WHERE remote_order_id = ?`

	order, err := scanOrder(querier.QueryRowContext(ctx, query, remoteOrderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ordersDomain.ErrOrderNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get order by remote id")
	}
	return order, nil
}

// NewMySQLOrderRepository creates a new MySQL Order repository instance.
func NewMySQLOrderRepository(db *sql.DB) *MySQLOrderRepository {
	return &MySQLOrderRepository{db: db}
}
