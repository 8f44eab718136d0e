package handler

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	catalogDomain "github.com/allisson/marketsync/internal/catalog/domain"
	"github.com/allisson/marketsync/internal/marketplace"
	ordersDomain "github.com/allisson/marketsync/internal/orders/domain"
)

type MockOfferRepository struct {
	mock.Mock
}

func NewMockOfferRepository(t *testing.T) *MockOfferRepository {
	m := &MockOfferRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockOfferRepository) Create(ctx context.Context, offer *catalogDomain.Offer) error {
	args := m.Called(ctx, offer)
	return args.Error(0)
}

func (m *MockOfferRepository) GetByRemoteID(ctx context.Context, remoteOfferID string) (*catalogDomain.Offer, error) {
	args := m.Called(ctx, remoteOfferID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogDomain.Offer), args.Error(1)
}

func (m *MockOfferRepository) Update(ctx context.Context, offer *catalogDomain.Offer) error {
	args := m.Called(ctx, offer)
	return args.Error(0)
}

func (m *MockOfferRepository) IncrementStock(ctx context.Context, remoteOfferID string, delta int) error {
	args := m.Called(ctx, remoteOfferID, delta)
	return args.Error(0)
}

type MockProductRepository struct {
	mock.Mock
}

func NewMockProductRepository(t *testing.T) *MockProductRepository {
	m := &MockProductRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockProductRepository) Get(ctx context.Context, id uuid.UUID) (*catalogDomain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogDomain.Product), args.Error(1)
}

func (m *MockProductRepository) SetStock(ctx context.Context, id uuid.UUID, stock int) error {
	args := m.Called(ctx, id, stock)
	return args.Error(0)
}

func (m *MockProductRepository) IncrementStock(ctx context.Context, id uuid.UUID, delta int) error {
	args := m.Called(ctx, id, delta)
	return args.Error(0)
}

type MockOrderRepository struct {
	mock.Mock
}

func NewMockOrderRepository(t *testing.T) *MockOrderRepository {
	m := &MockOrderRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockOrderRepository) Upsert(ctx context.Context, order *ordersDomain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByRemoteID(ctx context.Context, remoteOrderID string) (*ordersDomain.Order, error) {
	args := m.Called(ctx, remoteOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ordersDomain.Order), args.Error(1)
}

type MockStockRestorationRepository struct {
	mock.Mock
}

func NewMockStockRestorationRepository(t *testing.T) *MockStockRestorationRepository {
	m := &MockStockRestorationRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockStockRestorationRepository) TryRecord(
	ctx context.Context,
	restoration *ordersDomain.StockRestoration,
) (bool, error) {
	args := m.Called(ctx, restoration)
	return args.Bool(0), args.Error(1)
}

type MockOrderSource struct {
	mock.Mock
}

func NewMockOrderSource(t *testing.T) *MockOrderSource {
	m := &MockOrderSource{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockOrderSource) GetOrder(ctx context.Context, token, orderID string) (*marketplace.Order, error) {
	args := m.Called(ctx, token, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*marketplace.Order), args.Error(1)
}

type MockTokenSource struct {
	mock.Mock
}

func NewMockTokenSource(t *testing.T) *MockTokenSource {
	m := &MockTokenSource{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockTokenSource) AccessToken(ctx context.Context, accountID uuid.UUID) (string, error) {
	args := m.Called(ctx, accountID)
	return args.String(0), args.Error(1)
}
