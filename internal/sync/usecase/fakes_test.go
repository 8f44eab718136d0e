package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	catalogDomain "github.com/allisson/marketsync/internal/catalog/domain"
	databaseMocks "github.com/allisson/marketsync/internal/database/mocks"
	leaseDomain "github.com/allisson/marketsync/internal/lease/domain"
	"github.com/allisson/marketsync/internal/marketplace"
	notificationMocks "github.com/allisson/marketsync/internal/notification/usecase/mocks"
	syncDomain "github.com/allisson/marketsync/internal/sync/domain"
)

// memoryOffers is an in-memory OfferRepository.
type memoryOffers struct {
	mu     sync.Mutex
	offers map[uuid.UUID]*catalogDomain.Offer
}

func newMemoryOffers() *memoryOffers {
	return &memoryOffers{offers: make(map[uuid.UUID]*catalogDomain.Offer)}
}

func (r *memoryOffers) Create(_ context.Context, offer *catalogDomain.Offer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.offers {
		if stored.RemoteOfferID == offer.RemoteOfferID {
			return errors.New("duplicate remote offer id")
		}
	}
	clone := *offer
	r.offers[offer.ID] = &clone
	return nil
}

func (r *memoryOffers) GetByRemoteID(_ context.Context, remoteOfferID string) (*catalogDomain.Offer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.offers {
		if stored.RemoteOfferID == remoteOfferID {
			clone := *stored
			return &clone, nil
		}
	}
	return nil, catalogDomain.ErrOfferNotFound
}

func (r *memoryOffers) GetByProductID(_ context.Context, productID uuid.UUID) (*catalogDomain.Offer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.offers {
		if stored.ProductID.Valid && stored.ProductID.UUID == productID {
			clone := *stored
			return &clone, nil
		}
	}
	return nil, catalogDomain.ErrOfferNotFound
}

func (r *memoryOffers) Update(_ context.Context, offer *catalogDomain.Offer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.offers[offer.ID]; !ok {
		return catalogDomain.ErrOfferNotFound
	}
	clone := *offer
	r.offers[offer.ID] = &clone
	return nil
}

func (r *memoryOffers) ListForSync(_ context.Context, limit int) ([]*catalogDomain.Offer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var offers []*catalogDomain.Offer
	for _, stored := range r.offers {
		if stored.Status == catalogDomain.OfferStatusEnded {
			continue
		}
		clone := *stored
		offers = append(offers, &clone)
	}
	sort.Slice(offers, func(i, j int) bool { return offers[i].RemoteOfferID < offers[j].RemoteOfferID })
	if len(offers) > limit {
		offers = offers[:limit]
	}
	return offers, nil
}

func (r *memoryOffers) MarkError(_ context.Context, id uuid.UUID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.offers[id]
	if !ok {
		return catalogDomain.ErrOfferNotFound
	}
	stored.SyncStatus = catalogDomain.SyncStatusError
	stored.SyncError = &reason
	return nil
}

func (r *memoryOffers) MarkChecked(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.offers[id]
	if !ok {
		return catalogDomain.ErrOfferNotFound
	}
	stored.LastSyncedAt = &at
	return nil
}

func (r *memoryOffers) get(remoteOfferID string) *catalogDomain.Offer {
	offer, _ := r.GetByRemoteID(context.Background(), remoteOfferID)
	return offer
}

func (r *memoryOffers) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.offers)
}

// relinkingOffers returns a different product link once the offer is read by remote id.
type relinkingOffers struct {
	*memoryOffers
	relinked *catalogDomain.Offer
}

func (r *relinkingOffers) GetByRemoteID(_ context.Context, remoteOfferID string) (*catalogDomain.Offer, error) {
	if remoteOfferID == r.relinked.RemoteOfferID {
		clone := *r.relinked
		return &clone, nil
	}
	return nil, catalogDomain.ErrOfferNotFound
}

// memoryProducts is an in-memory ProductRepository.
type memoryProducts struct {
	mu       sync.Mutex
	products map[uuid.UUID]*catalogDomain.Product
}

func newMemoryProducts() *memoryProducts {
	return &memoryProducts{products: make(map[uuid.UUID]*catalogDomain.Product)}
}

func (r *memoryProducts) add(product *catalogDomain.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *product
	r.products[product.ID] = &clone
}

func (r *memoryProducts) Get(_ context.Context, id uuid.UUID) (*catalogDomain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.products[id]
	if !ok {
		return nil, catalogDomain.ErrProductNotFound
	}
	clone := *stored
	return &clone, nil
}

func (r *memoryProducts) ListChangedSince(
	_ context.Context,
	since time.Time,
	limit int,
) ([]*catalogDomain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var products []*catalogDomain.Product
	for _, stored := range r.products {
		if !stored.Active || stored.UpdatedAt.Before(since) {
			continue
		}
		if !stored.HasUnpushedChanges() {
			continue
		}
		clone := *stored
		products = append(products, &clone)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].UpdatedAt.Before(products[j].UpdatedAt) })
	if len(products) > limit {
		products = products[:limit]
	}
	return products, nil
}

func (r *memoryProducts) ApplyMarketplaceValues(
	_ context.Context,
	id uuid.UUID,
	sellingPrice string,
	stock int,
	description string,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.products[id]
	if !ok {
		return catalogDomain.ErrProductNotFound
	}
	stored.SellingPrice = sellingPrice
	stored.StockQuantity = stock
	stored.Description = description
	if stored.HasUnpushedChanges() {
		return nil
	}
	now := time.Now().UTC()
	stored.SyncStatus = catalogDomain.SyncStatusSynced
	stored.SyncSource = catalogDomain.SyncSourceMarketplace
	stored.LastSyncedAt = &now
	stored.UpdatedAt = now
	return nil
}

func (r *memoryProducts) SetProducer(_ context.Context, id, producerID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.products[id]
	if !ok {
		return catalogDomain.ErrProductNotFound
	}
	stored.ProducerID = uuid.NullUUID{UUID: producerID, Valid: true}
	return nil
}

func (r *memoryProducts) MarkSynced(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.products[id]
	if !ok {
		return catalogDomain.ErrProductNotFound
	}
	if !stored.UpdatedAt.Equal(at) {
		return nil
	}
	stored.SyncStatus = catalogDomain.SyncStatusSynced
	stored.SyncSource = catalogDomain.SyncSourceLocal
	stored.SyncError = nil
	stored.LastSyncedAt = &at
	return nil
}

// edit simulates a local change to the product title.
func (r *memoryProducts) edit(id uuid.UUID, title string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := r.products[id]
	stored.Title = title
	stored.UpdatedAt = at
}

func (r *memoryProducts) MarkError(_ context.Context, id uuid.UUID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.products[id]
	if !ok {
		return catalogDomain.ErrProductNotFound
	}
	stored.SyncStatus = catalogDomain.SyncStatusError
	stored.SyncError = &reason
	return nil
}

// memoryConflicts is an in-memory ConflictRepository.
type memoryConflicts struct {
	mu        sync.Mutex
	conflicts []*syncDomain.Conflict
}

func (r *memoryConflicts) Create(_ context.Context, c *syncDomain.Conflict) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *c
	r.conflicts = append(r.conflicts, &clone)
	return nil
}

func (r *memoryConflicts) List(_ context.Context, limit int) ([]*syncDomain.Conflict, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.conflicts) < limit {
		limit = len(r.conflicts)
	}
	return append([]*syncDomain.Conflict(nil), r.conflicts[:limit]...), nil
}

// MockRemoteOffers is a RemoteOffers double.
type MockRemoteOffers struct {
	mock.Mock
}

func NewMockRemoteOffers(t *testing.T) *MockRemoteOffers {
	m := &MockRemoteOffers{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockRemoteOffers) GetOffer(ctx context.Context, token, offerID string) (*marketplace.Offer, error) {
	args := m.Called(ctx, token, offerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*marketplace.Offer), args.Error(1)
}

func (m *MockRemoteOffers) UpdateOffer(
	ctx context.Context,
	token, offerID string,
	offer *marketplace.Offer,
) (*marketplace.Offer, error) {
	args := m.Called(ctx, token, offerID, offer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*marketplace.Offer), args.Error(1)
}

func (m *MockRemoteOffers) CreateOffer(
	ctx context.Context,
	token string,
	offer *marketplace.Offer,
) (*marketplace.Offer, error) {
	args := m.Called(ctx, token, offer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*marketplace.Offer), args.Error(1)
}

// MockProducers is a DependencyGuarantor double.
type MockProducers struct {
	mock.Mock
}

func NewMockProducers(t *testing.T) *MockProducers {
	m := &MockProducers{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockProducers) EnsureExists(
	ctx context.Context,
	userID, accountID uuid.UUID,
	remoteID string,
) (uuid.UUID, error) {
	args := m.Called(ctx, userID, accountID, remoteID)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

type staticTokens struct{}

func (staticTokens) AccessToken(_ context.Context, _ uuid.UUID) (string, error) {
	return "token", nil
}

// fakeRunner runs fn directly unless the lease is marked as held.
type fakeRunner struct {
	mu    sync.Mutex
	held  map[string]bool
	names []string
}

func (r *fakeRunner) Run(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	if r.held[name] {
		r.mu.Unlock()
		return leaseDomain.ErrRunInProgress
	}
	r.names = append(r.names, name)
	r.mu.Unlock()
	return fn(ctx)
}

type fixture struct {
	offers    *memoryOffers
	products  *memoryProducts
	conflicts *memoryConflicts
	remote    *MockRemoteOffers
	producers *MockProducers
	notifier  *notificationMocks.MockNotifier
	runner    *fakeRunner
	deps      Dependencies
	accountID uuid.UUID
	userID    uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	txManager := databaseMocks.NewMockTxManager(t)
	txManager.On("WithTx", mock.Anything, mock.Anything).Return(nil).Maybe()

	f := &fixture{
		offers:    newMemoryOffers(),
		products:  newMemoryProducts(),
		conflicts: &memoryConflicts{},
		remote:    NewMockRemoteOffers(t),
		producers: NewMockProducers(t),
		notifier:  notificationMocks.NewMockNotifier(t),
		runner:    &fakeRunner{held: map[string]bool{}},
		accountID: uuid.Must(uuid.NewV7()),
		userID:    uuid.Must(uuid.NewV7()),
	}
	f.deps = Dependencies{
		TxManager: txManager,
		Offers:    f.offers,
		Products:  f.products,
		Conflicts: f.conflicts,
		Remote:    f.remote,
		Tokens:    staticTokens{},
		Producers: f.producers,
		Runner:    f.runner,
		Notifier:  f.notifier,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return f
}

func (f *fixture) addOffer(remoteID string, productID uuid.NullUUID, updatedAt time.Time) *catalogDomain.Offer {
	offer := &catalogDomain.Offer{
		ID:            uuid.Must(uuid.NewV7()),
		AccountID:     f.accountID,
		ProductID:     productID,
		RemoteOfferID: remoteID,
		Title:         "Local title",
		Description:   "local description",
		Price:         "10.00",
		Currency:      "PLN",
		Quantity:      5,
		StockQuantity: 5,
		Status:        "ACTIVE",
		SyncStatus:    catalogDomain.SyncStatusSynced,
		SyncSource:    catalogDomain.SyncSourceLocal,
		CreatedAt:     updatedAt,
		UpdatedAt:     updatedAt,
	}
	_ = f.offers.Create(context.Background(), offer)
	return offer
}

func (f *fixture) addProduct(code string, updatedAt time.Time) *catalogDomain.Product {
	product := &catalogDomain.Product{
		ID:                   uuid.Must(uuid.NewV7()),
		AccountID:            f.accountID,
		UserID:               f.userID,
		Code:                 code,
		Title:                "Product " + code,
		Description:          "product description",
		PurchasePrice:        "8.00",
		SellingPrice:         "11.00",
		StockQuantity:        7,
		MinimumStockQuantity: 2,
		Active:               true,
		SyncStatus:           catalogDomain.SyncStatusPending,
		SyncSource:           catalogDomain.SyncSourceLocal,
		CreatedAt:            updatedAt,
		UpdatedAt:            updatedAt,
	}
	f.products.add(product)
	return product
}

func remoteOffer(id, price string, stock int, updatedAt *time.Time) *marketplace.Offer {
	return &marketplace.Offer{
		ID:          id,
		Name:        "Remote title",
		Description: "remote description",
		SellingMode: &marketplace.SellingMode{Price: marketplace.Price{Amount: price, Currency: "PLN"}},
		Stock:       &marketplace.Stock{Available: stock},
		Publication: &marketplace.Publication{Status: "ACTIVE"},
		UpdatedAt:   updatedAt,
	}
}

func externalID(code string) any {
	return mock.MatchedBy(func(o *marketplace.Offer) bool {
		return o.External != nil && o.External.ID == code
	})
}
