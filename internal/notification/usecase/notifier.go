package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/allisson/marketsync/internal/errors"
	notificationDomain "github.com/allisson/marketsync/internal/notification/domain"
)

// outboxNotifier writes notifications to the outbox. When called inside a
// transaction the entry commits or rolls back with it.
type outboxNotifier struct {
	repo   OutboxRepository
	logger *slog.Logger
	now    func() time.Time
}

// Notify validates n and inserts a pending outbox entry.
func (o *outboxNotifier) Notify(ctx context.Context, n notificationDomain.Notification) error {
	if err := n.Validate(); err != nil {
		return err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return apperrors.Wrap(err, "failed to generate notification id")
	}

	now := o.now().UTC()
	entry := &notificationDomain.OutboxEntry{
		ID:           id,
		Notification: n,
		Status:       notificationDomain.OutboxStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := o.repo.Create(ctx, entry); err != nil {
		return err
	}

	o.logger.Debug("notification queued",
		slog.String("notification_id", id.String()),
		slog.String("type", string(n.Type)),
	)
	return nil
}

// NewNotifier creates a Notifier backed by the outbox repository.
func NewNotifier(repo OutboxRepository, logger *slog.Logger) Notifier {
	return &outboxNotifier{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// NoopNotifier discards every notification.
type NoopNotifier struct{}

// Notify implements Notifier.
func (NoopNotifier) Notify(context.Context, notificationDomain.Notification) error { return nil }
