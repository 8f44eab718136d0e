// Package repository implements order persistence for PostgreSQL and MySQL.
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

const orderColumns = `id, remote_order_id, status, payment_status, fulfillment_status, buyer_email,
	total_amount, currency, line_items, sync_status, last_synced_at, created_at, updated_at`

// PostgreSQLOrderRepository implements Order persistence for PostgreSQL databases.
type PostgreSQLOrderRepository struct {
	db *sql.DB
}

// Upsert inserts the order or overwrites the stored one with the same remote id.
// The stored id and creation time are kept on update.
func (p *PostgreSQLOrderRepository) Upsert(ctx context.Context, order *ordersDomain.Order) error {
	querier := database.GetTx(ctx, p.db)

	lineItems, err := json.Marshal(order.LineItems)
	if err != nil {
		return apperrors.Wrap(err, "failed to encode line items")
	}

	query := `INSERT INTO orders (` + orderColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			  ON CONFLICT (remote_order_id) DO UPDATE
			  SET status = EXCLUDED.status, payment_status = EXCLUDED.payment_status,
			      fulfillment_status = EXCLUDED.fulfillment_status, buyer_email = EXCLUDED.buyer_email,
			      total_amount = EXCLUDED.total_amount, currency = EXCLUDED.currency,
			      line_items = EXCLUDED.line_items, sync_status = EXCLUDED.sync_status,
			      last_synced_at = EXCLUDED.last_synced_at, updated_at = EXCLUDED.updated_at
			  RETURNING id, created_at`

	err = querier.QueryRowContext(
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
	).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to upsert order")
	}
	return nil
}

// GetByRemoteID retrieves the order mirroring the given marketplace order.
func (p *PostgreSQLOrderRepository) GetByRemoteID(
	ctx context.Context,
	remoteOrderID string,
) (*ordersDomain.Order, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + orderColumns + ` FROM orders WHERE remote_order_id = $1`

	order, err := scanOrder(querier.QueryRowContext(ctx, query, remoteOrderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ordersDomain.ErrOrderNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get order by remote id")
	}
	return order, nil
}

// NewPostgreSQLOrderRepository creates a new PostgreSQL Order repository instance.
func NewPostgreSQLOrderRepository(db *sql.DB) *PostgreSQLOrderRepository {
	return &PostgreSQLOrderRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (*ordersDomain.Order, error) {
	var order ordersDomain.Order
	var lineItems []byte
	err := row.Scan(
		&order.ID,
		&order.RemoteOrderID,
		&order.Status,
		&order.PaymentStatus,
		&order.FulfillmentStatus,
		&order.BuyerEmail,
		&order.TotalAmount,
		&order.Currency,
		&lineItems,
		&order.SyncStatus,
		&order.LastSyncedAt,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(lineItems) > 0 {
		if err := json.Unmarshal(lineItems, &order.LineItems); err != nil {
			return nil, apperrors.Wrap(err, "failed to decode line items")
		}
	}
	return &order, nil
}

func decimalOrZero(amount string) string {
	if amount == "" {
		return "0"
	}
	return amount
}
