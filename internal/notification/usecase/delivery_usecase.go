package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/allisson/marketsync/internal/database"
	notificationDomain "github.com/allisson/marketsync/internal/notification/domain"
)

// DeliveryConfig holds outbox delivery settings.
type DeliveryConfig struct {
	BatchSize  int
	MaxRetries int
}

type deliveryUseCase struct {
	config    DeliveryConfig
	txManager database.TxManager
	repo      OutboxRepository
	sender    Sender
	logger    *slog.Logger
	now       func() time.Time
}

// ProcessPending locks a batch of pending entries and sends each of them. A
// failed send increments the retry counter; once MaxRetries is reached the
// entry is marked failed and left alone.
func (d *deliveryUseCase) ProcessPending(ctx context.Context) (int, error) {
	sent := 0
	err := d.txManager.WithTx(ctx, func(ctx context.Context) error {
		entries, err := d.repo.GetPending(ctx, d.config.BatchSize)
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			return nil
		}

		d.logger.Info("delivering notifications", slog.Int("count", len(entries)))

		for _, entry := range entries {
			if err := d.sender.Send(ctx, entry.Notification); err != nil {
				d.logger.Error("failed to deliver notification",
					slog.String("notification_id", entry.ID.String()),
					slog.String("type", string(entry.Notification.Type)),
					slog.Any("error", err),
				)

				entry.Retries++
				errorMsg := err.Error()
				entry.LastError = &errorMsg
				entry.UpdatedAt = d.now().UTC()

				if entry.Retries >= d.config.MaxRetries {
					entry.Status = notificationDomain.OutboxStatusFailed
				}

				if err := d.repo.Update(ctx, entry); err != nil {
					return err
				}
				continue
			}

			now := d.now().UTC()
			entry.Status = notificationDomain.OutboxStatusProcessed
			entry.ProcessedAt = &now
			entry.UpdatedAt = now

			if err := d.repo.Update(ctx, entry); err != nil {
				return err
			}
			sent++
		}

		return nil
	})
	if err != nil {
		return 0, err
	}
	return sent, nil
}

// NewDeliveryUseCase creates a DeliveryUseCase. Non-positive settings fall back to
// a batch of 50 and 3 retries.
func NewDeliveryUseCase(
	config DeliveryConfig,
	txManager database.TxManager,
	repo OutboxRepository,
	sender Sender,
	logger *slog.Logger,
) DeliveryUseCase {
	if config.BatchSize <= 0 {
		config.BatchSize = 50
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	return &deliveryUseCase{
		config:    config,
		txManager: txManager,
		repo:      repo,
		sender:    sender,
		logger:    logger,
		now:       time.Now,
	}
}
