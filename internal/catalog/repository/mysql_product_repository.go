package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	catalogDomain "github.com/allisson/marketsync/internal/catalog/domain"
	"github.com/allisson/marketsync/internal/database"
	apperrors "github.com/allisson/marketsync/internal/errors"
)

// MySQLProductRepository implements Product persistence for MySQL databases.
type MySQLProductRepository struct {
	db *sql.DB
}

// Create inserts a new product.
func (p *MySQLProductRepository) Create(ctx context.Context, product *catalogDomain.Product) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO products (` + productColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		product.ID,
		product.AccountID,
		product.UserID,
		product.Code,
		product.Title,
		product.Description,
		decimalOrZero(product.PurchasePrice),
		decimalOrZero(product.SellingPrice),
		product.StockQuantity,
		product.MinimumStockQuantity,
		product.ProducerRemoteID,
		product.ProducerID,
		product.Active,
		product.SyncStatus,
		product.SyncSource,
		product.SyncError,
		product.LastSyncedAt,
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create product")
	}
	return nil
}

// Get retrieves a product by id.
func (p *MySQLProductRepository) Get(ctx context.Context, id uuid.UUID) (*catalogDomain.Product, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + productColumns + ` FROM products WHERE id = ?`

	product, err := scanProduct(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, catalogDomain.ErrProductNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get product")
	}
	return product, nil
}

// ListChangedSince returns active products modified after since and not yet pushed,
// oldest change first.
func (p *MySQLProductRepository) ListChangedSince(
	ctx context.Context,
	since time.Time,
	limit int,
) ([]*catalogDomain.Product, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + productColumns + `
			  FROM products
			  WHERE active = 1
			    AND updated_at >= ?
			    AND (last_synced_at IS NULL OR updated_at > last_synced_at)
			  ORDER BY updated_at ASC, id ASC
			  LIMIT ?`

	rows, err := querier.QueryContext(ctx, query, since, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list changed products")
	}
	defer rows.Close() //nolint:errcheck

	var products []*catalogDomain.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan product")
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate products")
	}
	return products, nil
}

// SetStock writes an absolute stock quantity. A product with unpushed local
// edits keeps its sync timestamps so the next push still selects it.
func (p *MySQLProductRepository) SetStock(ctx context.Context, id uuid.UUID, stock int) error {
	querier := database.GetTx(ctx, p.db)

	now := time.Now().UTC()
	query := `UPDATE products
			  SET stock_quantity = ?, sync_source = ?, last_synced_at = ?, updated_at = ?
			  WHERE id = ? AND ` + inSyncCondition

	result, err := querier.ExecContext(ctx, query, stock, catalogDomain.SyncSourceMarketplace, now, now, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to set product stock")
	}
	if changed, err := changedRows(result); err != nil || changed {
		return err
	}

	_, err = querier.ExecContext(ctx, `UPDATE products SET stock_quantity = ? WHERE id = ?`, stock, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to set product stock")
	}
	return nil
}

// IncrementStock atomically adds delta to the product stock.
func (p *MySQLProductRepository) IncrementStock(ctx context.Context, id uuid.UUID, delta int) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE products SET stock_quantity = stock_quantity + ?, updated_at = ? WHERE id = ?`

	result, err := querier.ExecContext(ctx, query, delta, time.Now().UTC(), id)
	if err != nil {
		return apperrors.Wrap(err, "failed to increment product stock")
	}
	return requireOneRow(result, catalogDomain.ErrProductNotFound)
}

// ApplyMarketplaceValues overwrites the fields owned by the marketplace after a pull.
// The product is marked synced only when it has no unpushed local edits.
func (p *MySQLProductRepository) ApplyMarketplaceValues(
	ctx context.Context,
	id uuid.UUID,
	sellingPrice string,
	stock int,
	description string,
) error {
	querier := database.GetTx(ctx, p.db)

	now := time.Now().UTC()
	price := decimalOrZero(sellingPrice)
	// WHERE is evaluated before the assignments, so the timestamps below do not
	// affect which rows match.
	query := `UPDATE products
			  SET selling_price = ?, stock_quantity = ?, description = ?, sync_status = ?,
			      sync_source = ?, sync_error = NULL, last_synced_at = ?, updated_at = ?
			  WHERE id = ? AND ` + inSyncCondition

	result, err := querier.ExecContext(
		ctx,
		query,
		price,
		stock,
		description,
		catalogDomain.SyncStatusSynced,
		catalogDomain.SyncSourceMarketplace,
		now,
		now,
		id,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to apply marketplace values to product")
	}
	if changed, err := changedRows(result); err != nil || changed {
		return err
	}

	query = `UPDATE products SET selling_price = ?, stock_quantity = ?, description = ? WHERE id = ?`
	if _, err := querier.ExecContext(ctx, query, price, stock, description, id); err != nil {
		return apperrors.Wrap(err, "failed to apply marketplace values to product")
	}
	return nil
}

// SetProducer links the product to a locally stored producer.
func (p *MySQLProductRepository) SetProducer(ctx context.Context, id, producerID uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE products SET producer_id = ? WHERE id = ?`

	_, err := querier.ExecContext(ctx, query, producerID, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to set product producer")
	}
	return nil
}

// MarkSynced records a successful push of the product version last modified at
// pushedVersion. A product edited while the push was in flight stays pending.
func (p *MySQLProductRepository) MarkSynced(ctx context.Context, id uuid.UUID, pushedVersion time.Time) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE products
			  SET sync_status = ?, sync_source = ?, sync_error = NULL, last_synced_at = ?
			  WHERE id = ? AND updated_at = ?`

	_, err := querier.ExecContext(
		ctx,
		query,
		catalogDomain.SyncStatusSynced,
		catalogDomain.SyncSourceLocal,
		pushedVersion,
		id,
		pushedVersion,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to mark product synced")
	}
	return nil
}

// MarkError records a failed push without touching updated_at, so the product is retried.
func (p *MySQLProductRepository) MarkError(ctx context.Context, id uuid.UUID, reason string) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE products SET sync_status = ?, sync_error = ? WHERE id = ?`

	_, err := querier.ExecContext(ctx, query, catalogDomain.SyncStatusError, reason, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to mark product error")
	}
	return nil
}

// NewMySQLProductRepository creates a new MySQL Product repository instance.
func NewMySQLProductRepository(db *sql.DB) *MySQLProductRepository {
	return &MySQLProductRepository{db: db}
}
