// Package mocks provides testify doubles for the notification use cases.
package mocks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"

	notificationDomain "github.com/allisson/marketsync/internal/notification/domain"
)

// MockOutboxRepository is an OutboxRepository double.
type MockOutboxRepository struct {
	mock.Mock
}

// NewMockOutboxRepository creates a MockOutboxRepository that asserts its expectations on cleanup.
func NewMockOutboxRepository(t *testing.T) *MockOutboxRepository {
	m := &MockOutboxRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockOutboxRepository) Create(ctx context.Context, entry *notificationDomain.OutboxEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockOutboxRepository) GetPending(ctx context.Context, limit int) ([]*notificationDomain.OutboxEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*notificationDomain.OutboxEntry), args.Error(1)
}

func (m *MockOutboxRepository) Update(ctx context.Context, entry *notificationDomain.OutboxEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// MockSender is a Sender double.
type MockSender struct {
	mock.Mock
}

// NewMockSender creates a MockSender that asserts its expectations on cleanup.
func NewMockSender(t *testing.T) *MockSender {
	m := &MockSender{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockSender) Send(ctx context.Context, n notificationDomain.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// MockNotifier is a Notifier double.
type MockNotifier struct {
	mock.Mock
}

// NewMockNotifier creates a MockNotifier that asserts its expectations on cleanup.
func NewMockNotifier(t *testing.T) *MockNotifier {
	m := &MockNotifier{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockNotifier) Notify(ctx context.Context, n notificationDomain.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}
