// Package integration runs the engine end to end against PostgreSQL and MySQL
// with a fake marketplace API.
package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/marketsync/internal/app"
	"github.com/allisson/marketsync/internal/config"
	eventsDomain "github.com/allisson/marketsync/internal/events/domain"
	syncDomain "github.com/allisson/marketsync/internal/sync/domain"
	"github.com/allisson/marketsync/internal/testutil"
)

//nolint:gosec // fixed test key
const testKMSKeyURI = "base64key://smGbjm71Nxd1Ig5FS0wj9SlbzAIrnolCz9bQQ6uAhl4="

// fakeMarketplace serves the event feeds and offer resources used by the engine.
type fakeMarketplace struct {
	offerEvents  []map[string]any
	orderEvents  []map[string]any
	ordersOpen   atomic.Bool
	replay       atomic.Bool
	remoteOffer  map[string]any
	offerReads   atomic.Int32
	lastAuthSeen atomic.Value
}

func (f *fakeMarketplace) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /sale/offer-events", func(w http.ResponseWriter, r *http.Request) {
		f.lastAuthSeen.Store(r.Header.Get("Authorization"))
		events := f.offerEvents
		if r.URL.Query().Get("from") != "" && !f.replay.Load() {
			events = nil
		}
		writeFeed(w, "offerEvents", events)
	})
	mux.HandleFunc("GET /order/events", func(w http.ResponseWriter, r *http.Request) {
		events := f.orderEvents
		if !f.ordersOpen.Load() || (r.URL.Query().Get("from") != "" && !f.replay.Load()) {
			events = nil
		}
		writeFeed(w, "events", events)
	})
	mux.HandleFunc("GET /sale/offers/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.offerReads.Add(1)
		if f.remoteOffer == nil || r.PathValue("id") != f.remoteOffer["id"] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(f.remoteOffer)
	})
	return mux
}

func writeFeed(w http.ResponseWriter, key string, events []map[string]any) {
	if events == nil {
		events = []map[string]any{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{key: events})
}

// integrationTestContext holds all dependencies and state for integration testing.
type integrationTestContext struct {
	container   *app.Container
	db          *sql.DB
	marketplace *fakeMarketplace
	remote      *httptest.Server
	dbDriver    string
	accountID   uuid.UUID
	productID   uuid.UUID
}

func setupIntegrationTest(t *testing.T, dbDriver string) *integrationTestContext {
	t.Helper()

	gin.SetMode(gin.TestMode)

	var db *sql.DB
	var dsn string
	if dbDriver == "postgres" {
		testutil.SkipIfNoPostgres(t)
		db = testutil.SetupPostgresDB(t)
		dsn = testutil.GetPostgresTestDSN()
	} else {
		testutil.SkipIfNoMySQL(t)
		db = testutil.SetupMySQLDB(t)
		dsn = testutil.GetMySQLTestDSN()
	}

	fake := &fakeMarketplace{}
	remote := httptest.NewServer(fake.handler())

	cfg := &config.Config{
		DBDriver:                   dbDriver,
		DBConnectionString:         dsn,
		DBMaxOpenConnections:       10,
		DBMaxIdleConnections:       5,
		DBConnMaxLifetime:          time.Hour,
		ServerHost:                 "localhost",
		ServerPort:                 8080,
		LogLevel:                   "error",
		MarketplaceAPIURL:          remote.URL,
		MarketplaceTimeout:         5 * time.Second,
		MarketplaceRateLimitPerSec: 100,
		MarketplaceRateLimitBurst:  100,
		RetryMaxAttempts:           1,
		RetryBaseDelay:             time.Millisecond,
		RetryMaxDelay:              time.Millisecond,
		EventsPageSize:             100,
		EventsRetentionDays:        30,
		SyncConflictStrategy:       "TIMESTAMP",
		SyncBatchSize:              100,
		SyncChangeWindow:           time.Hour,
		SyncLeaseTTL:               time.Minute,
		KMSKeyURI:                  testKMSKeyURI,
		NotificationEmailTo:        "ops@example.com",
		NotificationStockLow:       true,
		NotificationOrderUpdated:   true,
		NotificationMaxRetries:     3,
		NotificationBatchSize:      10,
	}

	container := app.NewContainer(cfg)

	accountUseCase, err := container.AccountUseCase()
	require.NoError(t, err, "failed to get account use case")

	account, err := accountUseCase.Create(context.Background(), uuid.Must(uuid.NewV7()), "main shop", "remote-token")
	require.NoError(t, err, "failed to create account")

	// The event use case reads the account lazily, on first resolution.
	cfg.EventsAccountID = account.ID.String()

	productID := testutil.CreateTestProduct(t, db, dbDriver, account.ID, "SKU-1", 10, 2)
	testutil.CreateTestOffer(t, db, dbDriver, account.ID, productID, "offer-1", 10)

	return &integrationTestContext{
		container:   container,
		db:          db,
		marketplace: fake,
		remote:      remote,
		dbDriver:    dbDriver,
		accountID:   account.ID,
		productID:   productID,
	}
}

// teardownIntegrationTest cleans up all resources.
func teardownIntegrationTest(t *testing.T, ctx *integrationTestContext) {
	t.Helper()

	if ctx.remote != nil {
		ctx.remote.Close()
	}

	if ctx.container != nil {
		if err := ctx.container.Shutdown(context.Background()); err != nil {
			t.Logf("Warning: container shutdown error: %v", err)
		}
	}

	if ctx.db != nil {
		testutil.TeardownDB(t, ctx.db)
	}
}

func (ctx *integrationTestContext) productStock(t *testing.T) int {
	t.Helper()

	query := "SELECT stock_quantity FROM products WHERE id = ?"
	var id any = ctx.productID.String()
	if ctx.dbDriver == "postgres" {
		query = "SELECT stock_quantity FROM products WHERE id = $1"
		id = ctx.productID
	}

	var stock int
	require.NoError(t, ctx.db.QueryRow(query, id).Scan(&stock))
	return stock
}

func (ctx *integrationTestContext) offerQuantity(t *testing.T) int {
	t.Helper()

	query := "SELECT quantity FROM offers WHERE remote_offer_id = ?"
	if ctx.dbDriver == "postgres" {
		query = "SELECT quantity FROM offers WHERE remote_offer_id = $1"
	}

	var quantity int
	require.NoError(t, ctx.db.QueryRow(query, "offer-1").Scan(&quantity))
	return quantity
}

func testCases() []struct {
	name     string
	dbDriver string
} {
	return []struct {
		name     string
		dbDriver string
	}{
		{"PostgreSQL", "postgres"},
		{"MySQL", "mysql"},
	}
}

// TestIntegration_Events_CompleteFlow ingests offer and order events, replays
// them and delivers the queued notification.
func TestIntegration_Events_CompleteFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	for _, tc := range testCases() {
		t.Run(tc.name, func(t *testing.T) {
			ctx := setupIntegrationTest(t, tc.dbDriver)
			defer teardownIntegrationTest(t, ctx)

			ctx.marketplace.offerEvents = []map[string]any{
				{
					"id":         "evt-offer-1",
					"type":       "OFFER_STOCK_CHANGED",
					"occurredAt": "2026-03-01T10:00:00Z",
					"offer":      map[string]any{"id": "offer-1", "stock": map[string]any{"available": 2}},
				},
			}
			ctx.marketplace.orderEvents = []map[string]any{
				{
					"id":         "evt-order-1",
					"type":       "ORDER_CANCELLED",
					"occurredAt": "2026-03-01T10:05:00Z",
					"order": map[string]any{
						"id":     "order-1",
						"status": "CANCELLED",
						"lineItems": []map[string]any{
							{"offer": map[string]any{"id": "offer-1"}, "quantity": 3},
						},
					},
				},
			}

			eventUseCase, err := ctx.container.EventUseCase()
			require.NoError(t, err)

			t.Run("01_PollOfferEvents", func(t *testing.T) {
				result, err := eventUseCase.PollEvents(context.Background())
				require.NoError(t, err)
				assert.Equal(t, 1, result.Ingested)
				assert.Equal(t, 1, result.Processed)
				assert.Empty(t, result.StreamErrors)

				assert.Equal(t, 2, ctx.productStock(t))
				assert.Equal(t, 2, ctx.offerQuantity(t))
				assert.Equal(t, "Bearer remote-token", ctx.marketplace.lastAuthSeen.Load())
				assert.Equal(t, 1, testutil.CountRows(t, ctx.db, "notification_outbox"))
			})

			t.Run("02_PollCancelledOrder", func(t *testing.T) {
				ctx.marketplace.ordersOpen.Store(true)

				result, err := eventUseCase.PollEvents(context.Background())
				require.NoError(t, err)
				assert.Equal(t, 1, result.Ingested)
				assert.Equal(t, 1, result.Processed)

				assert.Equal(t, 5, ctx.productStock(t))
				assert.Equal(t, 5, ctx.offerQuantity(t))
				assert.Equal(t, 1, testutil.CountRows(t, ctx.db, "stock_restorations"))
			})

			t.Run("03_ReplayIsIdempotent", func(t *testing.T) {
				ctx.marketplace.replay.Store(true)
				defer ctx.marketplace.replay.Store(false)

				result, err := eventUseCase.PollEvents(context.Background())
				require.NoError(t, err)
				assert.Equal(t, 0, result.Ingested)
				assert.Equal(t, 2, result.Duplicates)
				assert.Equal(t, 5, ctx.productStock(t))
			})

			t.Run("04_ListEvents", func(t *testing.T) {
				processed := true
				page, err := eventUseCase.ListEvents(context.Background(), eventsDomain.ListFilter{Processed: &processed})
				require.NoError(t, err)
				assert.Equal(t, 2, page.Total)
				require.Len(t, page.Items, 2)
				assert.Equal(t, "evt-order-1", page.Items[0].EventID)
			})

			t.Run("05_DeliverNotifications", func(t *testing.T) {
				deliveryUseCase, err := ctx.container.DeliveryUseCase()
				require.NoError(t, err)

				sent, err := deliveryUseCase.ProcessPending(context.Background())
				require.NoError(t, err)
				assert.Equal(t, 1, sent)

				sent, err = deliveryUseCase.ProcessPending(context.Background())
				require.NoError(t, err)
				assert.Equal(t, 0, sent)
			})

			t.Run("06_CleanupKeepsCursors", func(t *testing.T) {
				// Both events are the newest of their stream, so nothing is swept.
				count, err := eventUseCase.CleanupProcessed(context.Background(), 0, false)
				require.NoError(t, err)
				assert.Equal(t, int64(0), count)
				assert.Equal(t, 2, testutil.CountRows(t, ctx.db, "sync_events"))
			})
		})
	}
}

// TestIntegration_Sync_MarketplaceToDB pulls a newer remote offer into the catalog.
func TestIntegration_Sync_MarketplaceToDB(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	for _, tc := range testCases() {
		t.Run(tc.name, func(t *testing.T) {
			ctx := setupIntegrationTest(t, tc.dbDriver)
			defer teardownIntegrationTest(t, ctx)

			ctx.marketplace.remoteOffer = map[string]any{
				"id":          "offer-1",
				"name":        "Offer offer-1",
				"sellingMode": map[string]any{"price": map[string]any{"amount": "12.50", "currency": "PLN"}},
				"stock":       map[string]any{"available": 7},
				"publication": map[string]any{"status": "ACTIVE"},
				"updatedAt":   time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
			}

			syncUseCase, err := ctx.container.SyncUseCase()
			require.NoError(t, err)

			report, err := syncUseCase.Run(context.Background(), syncDomain.TypeMarketplaceToDB)
			require.NoError(t, err)
			assert.Equal(t, 1, report.Total.Processed)
			assert.Equal(t, 1, report.Total.Successful)
			assert.Equal(t, int32(1), ctx.marketplace.offerReads.Load())

			assert.Equal(t, 7, ctx.offerQuantity(t))
			assert.Equal(t, 7, ctx.productStock(t))
			assert.Equal(t, 0, testutil.CountRows(t, ctx.db, "sync_leases"), "lease is released after the run")
		})
	}
}

// TestIntegration_Health_BasicChecks validates the ops server endpoints.
func TestIntegration_Health_BasicChecks(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	for _, tc := range testCases() {
		t.Run(tc.name, func(t *testing.T) {
			ctx := setupIntegrationTest(t, tc.dbDriver)
			defer teardownIntegrationTest(t, ctx)

			httpSrv, err := ctx.container.HTTPServer()
			require.NoError(t, err)
			server := httptest.NewServer(httpSrv.GetHandler())
			defer server.Close()

			for path, want := range map[string]string{"/health": "healthy", "/ready": "ready"} {
				resp, err := http.Get(server.URL + path) //nolint:gosec // localhost test server
				require.NoError(t, err)

				var body map[string]any
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				_ = resp.Body.Close()

				assert.Equal(t, http.StatusOK, resp.StatusCode)
				assert.Equal(t, want, body["status"])
			}
		})
	}
}
