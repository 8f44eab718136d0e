// Package mocks provides testify doubles for the event use cases.
package mocks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	eventsDomain "github.com/allisson/marketsync/internal/events/domain"
)

// MockEventUseCase is an EventUseCase double.
type MockEventUseCase struct {
	mock.Mock
}

// NewMockEventUseCase creates a MockEventUseCase that asserts its expectations on cleanup.
func NewMockEventUseCase(t *testing.T) *MockEventUseCase {
	m := &MockEventUseCase{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockEventUseCase) PollEvents(ctx context.Context) (*eventsDomain.PollResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*eventsDomain.PollResult), args.Error(1)
}

func (m *MockEventUseCase) RetryEvent(ctx context.Context, eventID string) (*eventsDomain.SyncEvent, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*eventsDomain.SyncEvent), args.Error(1)
}

func (m *MockEventUseCase) ListEvents(ctx context.Context, filter eventsDomain.ListFilter) (*eventsDomain.Page, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*eventsDomain.Page), args.Error(1)
}

func (m *MockEventUseCase) CleanupProcessed(ctx context.Context, olderThan time.Duration, dryRun bool) (int64, error) {
	args := m.Called(ctx, olderThan, dryRun)
	return args.Get(0).(int64), args.Error(1)
}
