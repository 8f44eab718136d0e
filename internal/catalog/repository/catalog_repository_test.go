package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalogDomain "github.com/allisson/marketsync/internal/catalog/domain"
)

var (
	offerRowColumns = []string{
		"id", "account_id", "product_id", "remote_offer_id", "title", "description", "price", "currency",
		"quantity", "stock_quantity", "status", "sync_status", "sync_source", "sync_error", "last_synced_at",
		"created_at", "updated_at",
	}
	productRowColumns = []string{
		"id", "account_id", "user_id", "code", "title", "description", "purchase_price", "selling_price",
		"stock_quantity", "minimum_stock_quantity", "producer_remote_id", "producer_id", "active", "sync_status",
		"sync_source", "sync_error", "last_synced_at", "created_at", "updated_at",
	}
)

func TestPostgreSQLOfferRepository_GetByRemoteID(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("Success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close() //nolint:errcheck

		id := uuid.Must(uuid.NewV7())
		productID := uuid.Must(uuid.NewV7())
		mock.ExpectQuery(regexp.QuoteMeta("FROM offers WHERE remote_offer_id = $1")).
			WithArgs("A1").
			WillReturnRows(sqlmock.NewRows(offerRowColumns).AddRow(
				id.String(), uuid.NewString(), productID.String(), "A1", "Mug", "", "19.99", "PLN",
				5, 5, "ACTIVE", "SYNCED", "MARKETPLACE", nil, now, now, now,
			))

		offer, err := NewPostgreSQLOfferRepository(db).GetByRemoteID(ctx, "A1")
		require.NoError(t, err)
		assert.Equal(t, id, offer.ID)
		assert.True(t, offer.ProductID.Valid)
		assert.Equal(t, productID, offer.ProductID.UUID)
		assert.Equal(t, "19.99", offer.Price)
		assert.Equal(t, catalogDomain.SyncStatusSynced, offer.SyncStatus)
		assert.Nil(t, offer.SyncError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close() //nolint:errcheck

		mock.ExpectQuery("FROM offers").WithArgs("missing").WillReturnRows(sqlmock.NewRows(offerRowColumns))

		_, err = NewPostgreSQLOfferRepository(db).GetByRemoteID(ctx, "missing")
		assert.ErrorIs(t, err, catalogDomain.ErrOfferNotFound)
	})
}

func TestOfferRepository_IncrementStock(t *testing.T) {
	ctx := context.Background()

	t.Run("PostgreSQL_Success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close() //nolint:errcheck

		mock.ExpectExec(regexp.QuoteMeta("SET stock_quantity = stock_quantity + $1")).
			WithArgs(2, sqlmock.AnyArg(), "A1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, NewPostgreSQLOfferRepository(db).IncrementStock(ctx, "A1", 2))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("MySQL_NotFound", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close() //nolint:errcheck

		mock.ExpectExec(regexp.QuoteMeta("SET stock_quantity = stock_quantity + ?")).
			WithArgs(1, 1, sqlmock.AnyArg(), "gone").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err = NewMySQLOfferRepository(db).IncrementStock(ctx, "gone", 1)
		assert.ErrorIs(t, err, catalogDomain.ErrOfferNotFound)
	})
}

func TestOfferRepository_Create_DefaultsEmptyPrice(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	now := time.Now().UTC()
	offer := &catalogDomain.Offer{
		ID:            uuid.Must(uuid.NewV7()),
		AccountID:     uuid.Must(uuid.NewV7()),
		RemoteOfferID: "A9",
		Status:        catalogDomain.OfferStatusInactive,
		SyncStatus:    catalogDomain.SyncStatusSynced,
		SyncSource:    catalogDomain.SyncSourceMarketplace,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	mock.ExpectExec("INSERT INTO offers").
		WithArgs(
			offer.ID, offer.AccountID, nil, "A9", "", "", "0", "", 0, 0, "INACTIVE", "SYNCED", "MARKETPLACE",
			nil, nil, now, now,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewPostgreSQLOfferRepository(db).Create(context.Background(), offer))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_ListChangedSince(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	now := time.Now().UTC()
	since := now.Add(-24 * time.Hour)
	id := uuid.Must(uuid.NewV7())

	mock.ExpectQuery(regexp.QuoteMeta("(last_synced_at IS NULL OR updated_at > last_synced_at)")).
		WithArgs(since, 10).
		WillReturnRows(sqlmock.NewRows(productRowColumns).AddRow(
			id.String(), uuid.NewString(), uuid.NewString(), "SKU-1", "Mug", "Blue mug", "5.00", "19.99",
			3, 2, "P1", nil, true, "PENDING", "LOCAL", nil, nil, now, now,
		))

	products, err := NewMySQLProductRepository(db).ListChangedSince(context.Background(), since, 10)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, id, products[0].ID)
	assert.Equal(t, "P1", products[0].ProducerRemoteID)
	assert.False(t, products[0].ProducerID.Valid)
	assert.Nil(t, products[0].LastSyncedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProduct_IsLowStock(t *testing.T) {
	tests := []struct {
		name     string
		stock    int
		minimum  int
		expected bool
	}{
		{"AboveMinimum", 5, 2, false},
		{"AtMinimum", 2, 2, true},
		{"BelowMinimum", 0, 2, true},
		{"NoMinimum", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &catalogDomain.Product{StockQuantity: tt.stock, MinimumStockQuantity: tt.minimum}
			assert.Equal(t, tt.expected, p.IsLowStock())
		})
	}
}

func TestOfferRepository_MarkErrorKeepsUpdatedAt(t *testing.T) {
	ctx := context.Background()
	id := uuid.Must(uuid.NewV7())

	t.Run("PostgreSQL", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close() //nolint:errcheck

		mock.ExpectExec(regexp.QuoteMeta("SET sync_status = $1, sync_error = $2, last_synced_at = $3 WHERE id = $4")).
			WithArgs(catalogDomain.SyncStatusError, "manual review required", sqlmock.AnyArg(), id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, NewPostgreSQLOfferRepository(db).MarkError(ctx, id, "manual review required"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("MySQL_MarkChecked", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close() //nolint:errcheck

		at := time.Now().UTC()
		mock.ExpectExec(regexp.QuoteMeta("UPDATE offers SET last_synced_at = ? WHERE id = ?")).
			WithArgs(at, id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, NewMySQLOfferRepository(db).MarkChecked(ctx, id, at))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestProduct_HasUnpushedChanges(t *testing.T) {
	pushed := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name         string
		lastSyncedAt *time.Time
		updatedAt    time.Time
		expected     bool
	}{
		{"NeverPushed", nil, pushed, true},
		{"UnchangedSincePush", &pushed, pushed, false},
		{"EditedAfterPush", &pushed, pushed.Add(time.Minute), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &catalogDomain.Product{LastSyncedAt: tt.lastSyncedAt, UpdatedAt: tt.updatedAt}
			assert.Equal(t, tt.expected, p.HasUnpushedChanges())
		})
	}
}

func TestProductRepository_ApplyMarketplaceValues(t *testing.T) {
	ctx := context.Background()
	id := uuid.Must(uuid.NewV7())

	t.Run("PostgreSQL_InSyncProductIsMarkedSynced", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close() //nolint:errcheck

		mock.ExpectExec(regexp.QuoteMeta("WHERE id = $7 AND last_synced_at IS NOT NULL AND updated_at <= last_synced_at")).
			WithArgs("12.00", 3, "remote", catalogDomain.SyncStatusSynced, catalogDomain.SyncSourceMarketplace,
				sqlmock.AnyArg(), id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, NewPostgreSQLProductRepository(db).ApplyMarketplaceValues(ctx, id, "12.00", 3, "remote"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("PostgreSQL_PendingProductKeepsTimestamps", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close() //nolint:errcheck

		mock.ExpectExec(regexp.QuoteMeta("AND last_synced_at IS NOT NULL AND updated_at <= last_synced_at")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(regexp.QuoteMeta(
			"UPDATE products SET selling_price = $1, stock_quantity = $2, description = $3 WHERE id = $4",
		)).
			WithArgs("12.00", 3, "remote", id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, NewPostgreSQLProductRepository(db).ApplyMarketplaceValues(ctx, id, "12.00", 3, "remote"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("MySQL_PendingProductKeepsTimestamps", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close() //nolint:errcheck

		mock.ExpectExec(regexp.QuoteMeta("WHERE id = ? AND last_synced_at IS NOT NULL")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(regexp.QuoteMeta(
			"UPDATE products SET selling_price = ?, stock_quantity = ?, description = ? WHERE id = ?",
		)).
			WithArgs("0", 3, "remote", id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, NewMySQLProductRepository(db).ApplyMarketplaceValues(ctx, id, "", 3, "remote"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestProductRepository_SetStock_PendingProductKeepsTimestamps(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	id := uuid.Must(uuid.NewV7())
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $4 AND last_synced_at IS NOT NULL")).
		WithArgs(2, catalogDomain.SyncSourceMarketplace, sqlmock.AnyArg(), id).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock_quantity = $1 WHERE id = $2")).
		WithArgs(2, id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewPostgreSQLProductRepository(db).SetStock(context.Background(), id, 2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_MarkSynced_OnlyMatchesPushedVersion(t *testing.T) {
	ctx := context.Background()
	id := uuid.Must(uuid.NewV7())
	pushedVersion := time.Now().UTC().Add(-time.Hour)

	t.Run("PostgreSQL", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close() //nolint:errcheck

		mock.ExpectExec(regexp.QuoteMeta("WHERE id = $4 AND updated_at = $3")).
			WithArgs(catalogDomain.SyncStatusSynced, catalogDomain.SyncSourceLocal, pushedVersion, id).
			WillReturnResult(sqlmock.NewResult(0, 0))

		require.NoError(t, NewPostgreSQLProductRepository(db).MarkSynced(ctx, id, pushedVersion))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("MySQL", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close() //nolint:errcheck

		mock.ExpectExec(regexp.QuoteMeta("WHERE id = ? AND updated_at = ?")).
			WithArgs(catalogDomain.SyncStatusSynced, catalogDomain.SyncSourceLocal, pushedVersion, id, pushedVersion).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, NewMySQLProductRepository(db).MarkSynced(ctx, id, pushedVersion))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
