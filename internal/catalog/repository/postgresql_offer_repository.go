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

const offerColumns = `id, account_id, product_id, remote_offer_id, title, description, price, currency,
	quantity, stock_quantity, status, sync_status, sync_source, sync_error, last_synced_at,
	created_at, updated_at`

// PostgreSQLOfferRepository implements Offer persistence for PostgreSQL databases.
type PostgreSQLOfferRepository struct {
	db *sql.DB
}

// Create inserts a new offer.
func (p *PostgreSQLOfferRepository) Create(ctx context.Context, offer *catalogDomain.Offer) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO offers (` + offerColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err := querier.ExecContext(
		ctx,
		query,
		offer.ID,
		offer.AccountID,
		offer.ProductID,
		offer.RemoteOfferID,
		offer.Title,
		offer.Description,
		decimalOrZero(offer.Price),
		offer.Currency,
		offer.Quantity,
		offer.StockQuantity,
		offer.Status,
		offer.SyncStatus,
		offer.SyncSource,
		offer.SyncError,
		offer.LastSyncedAt,
		offer.CreatedAt,
		offer.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create offer")
	}
	return nil
}

// GetByRemoteID retrieves the offer mirroring the given marketplace offer.
func (p *PostgreSQLOfferRepository) GetByRemoteID(
	ctx context.Context,
	remoteOfferID string,
) (*catalogDomain.Offer, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + offerColumns + ` FROM offers WHERE remote_offer_id = $1`

	offer, err := scanOffer(querier.QueryRowContext(ctx, query, remoteOfferID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, catalogDomain.ErrOfferNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get offer by remote id")
	}
	return offer, nil
}

// GetByProductID retrieves the offer linked to a product.
func (p *PostgreSQLOfferRepository) GetByProductID(
	ctx context.Context,
	productID uuid.UUID,
) (*catalogDomain.Offer, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + offerColumns + ` FROM offers WHERE product_id = $1 ORDER BY created_at ASC LIMIT 1`

	offer, err := scanOffer(querier.QueryRowContext(ctx, query, productID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, catalogDomain.ErrOfferNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get offer by product id")
	}
	return offer, nil
}

// Update overwrites every mutable field of the offer.
func (p *PostgreSQLOfferRepository) Update(ctx context.Context, offer *catalogDomain.Offer) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE offers
			  SET product_id = $1, title = $2, description = $3, price = $4, currency = $5, quantity = $6,
			      stock_quantity = $7, status = $8, sync_status = $9, sync_source = $10, sync_error = $11,
			      last_synced_at = $12, updated_at = $13
			  WHERE id = $14`

	result, err := querier.ExecContext(
		ctx,
		query,
		offer.ProductID,
		offer.Title,
		offer.Description,
		decimalOrZero(offer.Price),
		offer.Currency,
		offer.Quantity,
		offer.StockQuantity,
		offer.Status,
		offer.SyncStatus,
		offer.SyncSource,
		offer.SyncError,
		offer.LastSyncedAt,
		offer.UpdatedAt,
		offer.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update offer")
	}
	return requireOneRow(result, catalogDomain.ErrOfferNotFound)
}

// IncrementStock atomically adds delta to the stock and listed quantity of the offer
// mirroring remoteOfferID.
func (p *PostgreSQLOfferRepository) IncrementStock(ctx context.Context, remoteOfferID string, delta int) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE offers
			  SET stock_quantity = stock_quantity + $1, quantity = quantity + $1, updated_at = $2
			  WHERE remote_offer_id = $3`

	result, err := querier.ExecContext(ctx, query, delta, time.Now().UTC(), remoteOfferID)
	if err != nil {
		return apperrors.Wrap(err, "failed to increment offer stock")
	}
	return requireOneRow(result, catalogDomain.ErrOfferNotFound)
}

// ListForSync returns up to limit offers, least recently synced first.
func (p *PostgreSQLOfferRepository) ListForSync(ctx context.Context, limit int) ([]*catalogDomain.Offer, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + offerColumns + `
			  FROM offers
			  WHERE remote_offer_id <> '' AND status <> 'ENDED'
			  ORDER BY last_synced_at ASC NULLS FIRST, id ASC
			  LIMIT $1`

	rows, err := querier.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list offers for sync")
	}
	defer rows.Close() //nolint:errcheck

	var offers []*catalogDomain.Offer
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan offer")
		}
		offers = append(offers, offer)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate offers")
	}
	return offers, nil
}

// MarkError flags the offer as out of sync with the given reason. updated_at is
// kept so later timestamp comparisons still see the last real change, while
// last_synced_at moves the offer to the back of the sync queue.
func (p *PostgreSQLOfferRepository) MarkError(ctx context.Context, id uuid.UUID, reason string) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE offers SET sync_status = $1, sync_error = $2, last_synced_at = $3 WHERE id = $4`

	_, err := querier.ExecContext(ctx, query, catalogDomain.SyncStatusError, reason, time.Now().UTC(), id)
	if err != nil {
		return apperrors.Wrap(err, "failed to mark offer error")
	}
	return nil
}

// MarkChecked records that the offer was compared with the marketplace and kept as is.
func (p *PostgreSQLOfferRepository) MarkChecked(ctx context.Context, id uuid.UUID, at time.Time) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE offers SET last_synced_at = $1 WHERE id = $2`

	_, err := querier.ExecContext(ctx, query, at, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to mark offer checked")
	}
	return nil
}

// NewPostgreSQLOfferRepository creates a new PostgreSQL Offer repository instance.
func NewPostgreSQLOfferRepository(db *sql.DB) *PostgreSQLOfferRepository {
	return &PostgreSQLOfferRepository{db: db}
}

func scanOffer(row scanner) (*catalogDomain.Offer, error) {
	var offer catalogDomain.Offer
	err := row.Scan(
		&offer.ID,
		&offer.AccountID,
		&offer.ProductID,
		&offer.RemoteOfferID,
		&offer.Title,
		&offer.Description,
		&offer.Price,
		&offer.Currency,
		&offer.Quantity,
		&offer.StockQuantity,
		&offer.Status,
		&offer.SyncStatus,
		&offer.SyncSource,
		&offer.SyncError,
		&offer.LastSyncedAt,
		&offer.CreatedAt,
		&offer.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

func requireOneRow(result sql.Result, notFound error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		return notFound
	}
	return nil
}
