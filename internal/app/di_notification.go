package app

import (
	"fmt"
	stdhttp "net/http"
	"sync"

	notificationRepository "github.com/allisson/marketsync/internal/notification/repository"
	"github.com/allisson/marketsync/internal/notification/sender"
	notificationUseCase "github.com/allisson/marketsync/internal/notification/usecase"
)

type notificationComponents struct {
	outboxRepo      notificationUseCase.OutboxRepository
	notifier        notificationUseCase.Notifier
	deliveryUseCase notificationUseCase.DeliveryUseCase

	outboxRepoInit      sync.Once
	notifierInit        sync.Once
	deliveryUseCaseInit sync.Once
}

// OutboxRepository returns the notification outbox repository based on database driver.
func (c *Container) OutboxRepository() (notificationUseCase.OutboxRepository, error) {
	var err error
	c.outboxRepoInit.Do(func() {
		c.outboxRepo, err = c.initOutboxRepository()
		if err != nil {
			c.initErrors["outboxRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["outboxRepo"]; exists {
		return nil, storedErr
	}
	return c.outboxRepo, nil
}

// Notifier returns the notifier that queues notifications in the outbox.
func (c *Container) Notifier() (notificationUseCase.Notifier, error) {
	var err error
	c.notifierInit.Do(func() {
		var outboxRepo notificationUseCase.OutboxRepository
		outboxRepo, err = c.OutboxRepository()
		if err != nil {
			err = fmt.Errorf("failed to get outbox repository for notifier: %w", err)
			c.initErrors["notifier"] = err
			return
		}
		c.notifier = notificationUseCase.NewNotifier(outboxRepo, c.Logger())
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["notifier"]; exists {
		return nil, storedErr
	}
	return c.notifier, nil
}

// DeliveryUseCase returns the outbox delivery use case.
func (c *Container) DeliveryUseCase() (notificationUseCase.DeliveryUseCase, error) {
	var err error
	c.deliveryUseCaseInit.Do(func() {
		c.deliveryUseCase, err = c.initDeliveryUseCase()
		if err != nil {
			c.initErrors["deliveryUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["deliveryUseCase"]; exists {
		return nil, storedErr
	}
	return c.deliveryUseCase, nil
}

func (c *Container) initOutboxRepository() (notificationUseCase.OutboxRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for outbox repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return notificationRepository.NewMySQLOutboxRepository(db), nil
	case "postgres":
		return notificationRepository.NewPostgreSQLOutboxRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// notificationSender posts to the configured webhook, or only logs when none is set.
func (c *Container) notificationSender() notificationUseCase.Sender {
	if c.config.NotificationWebhookURL == "" {
		return sender.NewLogSender(c.Logger())
	}
	client := &stdhttp.Client{Timeout: c.config.MarketplaceTimeout}
	return sender.NewWebhookSender(c.config.NotificationWebhookURL, client, c.RetryExecutor())
}

func (c *Container) initDeliveryUseCase() (notificationUseCase.DeliveryUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for delivery use case: %w", err)
	}

	outboxRepo, err := c.OutboxRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox repository for delivery use case: %w", err)
	}

	return notificationUseCase.NewDeliveryUseCase(
		notificationUseCase.DeliveryConfig{
			BatchSize:  c.config.NotificationBatchSize,
			MaxRetries: c.config.NotificationMaxRetries,
		},
		txManager,
		outboxRepo,
		c.notificationSender(),
		c.Logger(),
	), nil
}
