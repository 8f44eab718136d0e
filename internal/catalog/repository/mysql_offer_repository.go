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

// MySQLOfferRepository implements Offer persistence for MySQL databases.
type MySQLOfferRepository struct {
	db *sql.DB
}

// Create inserts a new offer.
func (p *MySQLOfferRepository) Create(ctx context.Context, offer *catalogDomain.Offer) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO offers (` + offerColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

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
func (p *MySQLOfferRepository) GetByRemoteID(
	ctx context.Context,
	remoteOfferID string,
) (*catalogDomain.Offer, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + offerColumns + ` FROM offers WHERE remote_offer_id = ?`

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
func (p *MySQLOfferRepository) GetByProductID(
	ctx context.Context,
	productID uuid.UUID,
) (*catalogDomain.Offer, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + offerColumns + ` FROM offers WHERE product_id = ? ORDER BY created_at ASC LIMIT 1`

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
func (p *MySQLOfferRepository) Update(ctx context.Context, offer *catalogDomain.Offer) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE offers
			  SET product_id = ?, title = ?, description = ?, price = ?, currency = ?, quantity = ?,
			      stock_quantity = ?, status = ?, sync_status = ?, sync_source = ?, sync_error = ?,
			      last_synced_at = ?, updated_at = ?
			  WHERE id = ?`

	_, err := querier.ExecContext(
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
	// MySQL reports changed rows, so an identical rewrite affects zero rows.
	return nil
}

// IncrementStock atomically adds delta to the stock of the offer mirroring remoteOfferID.
func (p *MySQLOfferRepository) IncrementStock(ctx context.Context, remoteOfferID string, delta int) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE offers
			  SET stock_quantity = stock_quantity + ?, quantity = quantity + ?, updated_at = ?
			  WHERE remote_offer_id = ?`

	result, err := querier.ExecContext(ctx, query, delta, delta, time.Now().UTC(), remoteOfferID)
	if err != nil {
		return apperrors.Wrap(err, "failed to increment offer stock")
	}
	return requireOneRow(result, catalogDomain.ErrOfferNotFound)
}

// ListForSync returns up to limit offers, least recently synced first.
func (p *MySQLOfferRepository) ListForSync(ctx context.Context, limit int) ([]*catalogDomain.Offer, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + offerColumns + `
			  FROM offers
			  WHERE remote_offer_id <> '' AND status <> 'ENDED'
			  ORDER BY last_synced_at ASC, id ASC
			  LIMIT ?`

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
func (p *MySQLOfferRepository) MarkError(ctx context.Context, id uuid.UUID, reason string) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE offers SET sync_status = ?, sync_error = ?, last_synced_at = ? WHERE id = ?`

	_, err := querier.ExecContext(ctx, query, catalogDomain.SyncStatusError, reason, time.Now().UTC(), id)
	if err != nil {
		return apperrors.Wrap(err, "failed to mark offer error")
	}
	return nil
}

// MarkChecked records that the offer was compared with the marketplace and kept as is.
func (p *MySQLOfferRepository) MarkChecked(ctx context.Context, id uuid.UUID, at time.Time) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE offers SET last_synced_at = ? WHERE id = ?`

	_, err := querier.ExecContext(ctx, query, at, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to mark offer checked")
	}
	return nil
}

// NewMySQLOfferRepository creates a new MySQL Offer repository instance.
func NewMySQLOfferRepository(db *sql.DB) *MySQLOfferRepository {
	return &MySQLOfferRepository{db: db}
}
