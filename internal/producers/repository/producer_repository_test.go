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
	producersDomain "github.com/allisson/marketsync/internal/producers/domain"
)

var producerRowColumns = []string{
	"id", "account_id", "remote_id", "name", "email", "phone", "address", "raw_data", "sync_status",
	"last_synced_at", "created_at", "updated_at",
}

func newProducer() *producersDomain.Producer {
	now := time.Now().UTC()
	return &producersDomain.Producer{
		ID:           uuid.Must(uuid.NewV7()),
		AccountID:    uuid.Must(uuid.NewV7()),
		RemoteID:     "P1",
		Name:         "Acme",
		Address:      []byte(`{"city":"Warsaw"}`),
		RawData:      []byte(`{"id":"P1"}`),
		SyncStatus:   catalogDomain.SyncStatusSynced,
		LastSyncedAt: &now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestProducerRepository_Upsert(t *testing.T) {
	ctx := context.Background()

	t.Run("PostgreSQL_ReturnsStoredID", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close() //nolint:errcheck

		producer := newProducer()
		storedID := uuid.Must(uuid.NewV7())
		createdAt := producer.CreatedAt.Add(-time.Hour)

		mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (account_id, remote_id) DO UPDATE")).
			WithArgs(
				producer.ID, producer.AccountID, "P1", "Acme", "", "", `{"city":"Warsaw"}`, `{"id":"P1"}`,
				"SYNCED", producer.LastSyncedAt, producer.CreatedAt, producer.UpdatedAt,
			).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(storedID.String(), createdAt))

		require.NoError(t, NewPostgreSQLProducerRepository(db).Upsert(ctx, producer))
		assert.Equal(t, storedID, producer.ID)
		assert.Equal(t, createdAt, producer.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("MySQL_ReadsBackStoredID", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close() //nolint:errcheck

		producer := newProducer()
		producer.Address = nil
		storedID := uuid.Must(uuid.NewV7())

		mock.ExpectExec(regexp.QuoteMeta("ON DUPLICATE KEY UPDATE")).
			WithArgs(
				producer.ID, producer.AccountID, "P1", "Acme", "", "", nil, `{"id":"P1"}`,
				"SYNCED", producer.LastSyncedAt, producer.CreatedAt, producer.UpdatedAt,
			).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, created_at FROM producers WHERE account_id = ? AND remote_id = ?")).
			WithArgs(producer.AccountID, "P1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(storedID.String(), producer.CreatedAt))

		require.NoError(t, NewMySQLProducerRepository(db).Upsert(ctx, producer))
		assert.Equal(t, storedID, producer.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestProducerRepository_GetByRemoteID(t *testing.T) {
	ctx := context.Background()

	t.Run("PostgreSQL_Found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close() //nolint:errcheck

		p := newProducer()
		mock.ExpectQuery(regexp.QuoteMeta("WHERE account_id = $1 AND remote_id = $2")).
			WithArgs(p.AccountID, "P1").
			WillReturnRows(sqlmock.NewRows(producerRowColumns).AddRow(
				p.ID.String(), p.AccountID.String(), "P1", "Acme", "", "", []byte(`{"city":"Warsaw"}`),
				nil, "SYNCED", *p.LastSyncedAt, p.CreatedAt, p.UpdatedAt,
			))

		got, err := NewPostgreSQLProducerRepository(db).GetByRemoteID(ctx, p.AccountID, "P1")
		require.NoError(t, err)
		assert.Equal(t, p.ID, got.ID)
		assert.JSONEq(t, `{"city":"Warsaw"}`, string(got.Address))
		assert.Nil(t, got.RawData)
	})

	t.Run("MySQL_NotFound", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close() //nolint:errcheck

		accountID := uuid.New()
		mock.ExpectQuery(regexp.QuoteMeta("WHERE account_id = ? AND remote_id = ?")).
			WithArgs(accountID, "missing").
			WillReturnRows(sqlmock.NewRows(producerRowColumns))

		_, err = NewMySQLProducerRepository(db).GetByRemoteID(ctx, accountID, "missing")
		assert.ErrorIs(t, err, producersDomain.ErrProducerNotFound)
	})
}
