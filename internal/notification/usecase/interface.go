// Package usecase queues notifications in the outbox and delivers them through a Sender.
package usecase

import (
	"context"

	notificationDomain "github.com/allisson/marketsync/internal/notification/domain"
)

// OutboxRepository defines notification outbox persistence.
type OutboxRepository interface {
	Create(ctx context.Context, entry *notificationDomain.OutboxEntry) error
	GetPending(ctx context.Context, limit int) ([]*notificationDomain.OutboxEntry, error)
	Update(ctx context.Context, entry *notificationDomain.OutboxEntry) error
}

// Sender delivers a single notification.
type Sender interface {
	Send(ctx context.Context, n notificationDomain.Notification) error
}

// Notifier queues notifications for delivery.
type Notifier interface {
	Notify(ctx context.Context, n notificationDomain.Notification) error
}

// DeliveryUseCase drains the outbox.
type DeliveryUseCase interface {
	// ProcessPending delivers one batch and returns the number of entries sent.
	ProcessPending(ctx context.Context) (int, error)
}
