// Package mocks provides testify doubles for the sync use cases.
package mocks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"

	syncDomain "github.com/allisson/marketsync/internal/sync/domain"
)

// MockSyncUseCase is a SyncUseCase double.
type MockSyncUseCase struct {
	mock.Mock
}

// NewMockSyncUseCase creates a MockSyncUseCase that asserts its expectations on cleanup.
func NewMockSyncUseCase(t *testing.T) *MockSyncUseCase {
	m := &MockSyncUseCase{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockSyncUseCase) Run(ctx context.Context, syncType syncDomain.Type) (*syncDomain.Report, error) {
	args := m.Called(ctx, syncType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*syncDomain.Report), args.Error(1)
}

func (m *MockSyncUseCase) ListConflicts(ctx context.Context, limit int) ([]*syncDomain.Conflict, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*syncDomain.Conflict), args.Error(1)
}
