// Package mocks provides testify doubles for the accounts use cases.
package mocks

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	accountsDomain "github.com/allisson/marketsync/internal/accounts/domain"
)

// MockAccountRepository is an AccountRepository double.
type MockAccountRepository struct {
	mock.Mock
}

// NewMockAccountRepository creates a MockAccountRepository that asserts its expectations on cleanup.
func NewMockAccountRepository(t *testing.T) *MockAccountRepository {
	m := &MockAccountRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockAccountRepository) Create(ctx context.Context, account *accountsDomain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) Get(ctx context.Context, id uuid.UUID) (*accountsDomain.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accountsDomain.Account), args.Error(1)
}

func (m *MockAccountRepository) ListActive(ctx context.Context) ([]*accountsDomain.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*accountsDomain.Account), args.Error(1)
}

// MockAccountUseCase is an AccountUseCase double.
type MockAccountUseCase struct {
	mock.Mock
}

// NewMockAccountUseCase creates a MockAccountUseCase that asserts its expectations on cleanup.
func NewMockAccountUseCase(t *testing.T) *MockAccountUseCase {
	m := &MockAccountUseCase{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockAccountUseCase) Create(
	ctx context.Context,
	userID uuid.UUID,
	name, accessToken string,
) (*accountsDomain.Account, error) {
	args := m.Called(ctx, userID, name, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accountsDomain.Account), args.Error(1)
}

func (m *MockAccountUseCase) Get(ctx context.Context, id uuid.UUID) (*accountsDomain.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accountsDomain.Account), args.Error(1)
}

func (m *MockAccountUseCase) ListActive(ctx context.Context) ([]*accountsDomain.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*accountsDomain.Account), args.Error(1)
}

func (m *MockAccountUseCase) AccessToken(ctx context.Context, id uuid.UUID) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}
