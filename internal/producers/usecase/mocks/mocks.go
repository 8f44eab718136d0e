// Package mocks provides testify doubles for the producer use cases.
package mocks

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	producersDomain "github.com/allisson/marketsync/internal/producers/domain"
)

// MockProducerUseCase is a ProducerUseCase double.
type MockProducerUseCase struct {
	mock.Mock
}

// NewMockProducerUseCase creates a MockProducerUseCase that asserts its expectations on cleanup.
func NewMockProducerUseCase(t *testing.T) *MockProducerUseCase {
	m := &MockProducerUseCase{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockProducerUseCase) EnsureExists(
	ctx context.Context,
	userID, accountID uuid.UUID,
	remoteID string,
) (uuid.UUID, error) {
	args := m.Called(ctx, userID, accountID, remoteID)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockProducerUseCase) SyncForAccount(
	ctx context.Context,
	userID, accountID uuid.UUID,
) (*producersDomain.SyncSummary, error) {
	args := m.Called(ctx, userID, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*producersDomain.SyncSummary), args.Error(1)
}
