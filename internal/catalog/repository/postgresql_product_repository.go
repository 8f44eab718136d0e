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

const productColumns = `id, account_id, user_id, code, title, description, purchase_price, selling_price,
	stock_quantity, minimum_stock_quantity, producer_remote_id, producer_id, active, sync_status,
	sync_source, sync_error, last_synced_at, created_at, updated_at`

// PostgreSQLProductRepository implements Product persistence for PostgreSQL databases.
type PostgreSQLProductRepository struct {
	db *sql.DB
}

// Create inserts a new product.
func (p *PostgreSQLProductRepository) Create(ctx context.Context, product *catalogDomain.Product) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO products (` + productColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

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
func (p *PostgreSQLProductRepository) Get(ctx context.Context, id uuid.UUID) (*catalogDomain.Product, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

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
func (p *PostgreSQLProductRepository) ListChangedSince(
	ctx context.Context,
	since time.Time,
	limit int,
) ([]*catalogDomain.Product, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + productColumns + `
			  FROM products
			  WHERE active = TRUE
			    AND updated_at >= $1
			    AND (last_synced_at IS NULL OR updated_at > last_synced_at)
			  ORDER BY updated_at ASC, id ASC
			  LIMIT $2`

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
func (p *PostgreSQLProductRepository) SetStock(ctx context.Context, id uuid.UUID, stock int) error {
	querier := database.GetTx(ctx, p.db)

	now := time.Now().UTC()
	query := `UPDATE products
			  SET stock_quantity = $1, sync_source = $2, last_synced_at = $3, updated_at = $3
			  WHERE id = $4 AND ` + inSyncCondition

	result, err := querier.ExecContext(ctx, query, stock, catalogDomain.SyncSourceMarketplace, now, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to set product stock")
	}
	if changed, err := changedRows(result); err != nil || changed {
		return err
	}

	_, err = querier.ExecContext(ctx, `UPDATE products SET stock_quantity = $1 WHERE id = $2`, stock, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to set product stock")
	}
	return nil
}

// IncrementStock atomically adds delta to the product stock.
func (p *PostgreSQLProductRepository) IncrementStock(ctx context.Context, id uuid.UUID, delta int) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE products SET stock_quantity = stock_quantity + $1, updated_at = $2 WHERE id = $3`

	result, err := querier.ExecContext(ctx, query, delta, time.Now().UTC(), id)
	if err != nil {
		return apperrors.Wrap(err, "failed to increment product stock")
	}
	return requireOneRow(result, catalogDomain.ErrProductNotFound)
}

// ApplyMarketplaceValues overwrites the fields owned by the marketplace after a pull.
// The product is marked synced only when it has no unpushed local edits; otherwise
// only the values are written and its timestamps are left for the next push.
func (p *PostgreSQLProductRepository) ApplyMarketplaceValues(
	ctx context.Context,
	id uuid.UUID,
	sellingPrice string,
	stock int,
	description string,
) error {
	querier := database.GetTx(ctx, p.db)

	now := time.Now().UTC()
	price := decimalOrZero(sellingPrice)
	query := `UPDATE products
			  SET selling_price = $1, stock_quantity = $2, description = $3, sync_status = $4,
			      sync_source = $5, sync_error = NULL, last_synced_at = $6, updated_at = $6
			  WHERE id = $7 AND ` + inSyncCondition

	result, err := querier.ExecContext(
		ctx,
		query,
		price,
		stock,
		description,
		catalogDomain.SyncStatusSynced,
		catalogDomain.SyncSourceMarketplace,
		now,
		id,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to apply marketplace values to product")
	}
	if changed, err := changedRows(result); err != nil || changed {
		return err
	}

	query = `UPDATE products SET selling_price = $1, stock_quantity = $2, description = $3 WHERE id = $4`
	if _, err := querier.ExecContext(ctx, query, price, stock, description, id); err != nil {
		return apperrors.Wrap(err, "failed to apply marketplace values to product")
	}
	return nil
}

// SetProducer links the product to a locally stored producer.
func (p *PostgreSQLProductRepository) SetProducer(ctx context.Context, id, producerID uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE products SET producer_id = $1 WHERE id = $2`

	_, err := querier.ExecContext(ctx, query, producerID, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to set product producer")
	}
	return nil
}

// MarkSynced records a successful push of the product version last modified at
// pushedVersion. A product edited while the push was in flight no longer matches
// and stays selected for the next push.
func (p *PostgreSQLProductRepository) MarkSynced(ctx context.Context, id uuid.UUID, pushedVersion time.Time) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE products
			  SET sync_status = $1, sync_source = $2, sync_error = NULL, last_synced_at = $3
			  WHERE id = $4 AND updated_at = $3`

	_, err := querier.ExecContext(
		ctx,
		query,
		catalogDomain.SyncStatusSynced,
		catalogDomain.SyncSourceLocal,
		pushedVersion,
		id,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to mark product synced")
	}
	return nil
}

// MarkError records a failed push without touching updated_at, so the product is retried.
func (p *PostgreSQLProductRepository) MarkError(ctx context.Context, id uuid.UUID, reason string) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE products SET sync_status = $1, sync_error = $2 WHERE id = $3`

	_, err := querier.ExecContext(ctx, query, catalogDomain.SyncStatusError, reason, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to mark product error")
	}
	return nil
}

// NewPostgreSQLProductRepository creates a new PostgreSQL Product repository instance.
func NewPostgreSQLProductRepository(db *sql.DB) *PostgreSQLProductRepository {
	return &PostgreSQLProductRepository{db: db}
}

func scanProduct(row scanner) (*catalogDomain.Product, error) {
	var product catalogDomain.Product
	err := row.Scan(
		&product.ID,
		&product.AccountID,
		&product.UserID,
		&product.Code,
		&product.Title,
		&product.Description,
		&product.PurchasePrice,
		&product.SellingPrice,
		&product.StockQuantity,
		&product.MinimumStockQuantity,
		&product.ProducerRemoteID,
		&product.ProducerID,
		&product.Active,
		&product.SyncStatus,
		&product.SyncSource,
		&product.SyncError,
		&product.LastSyncedAt,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &product, nil
}
