package app

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	eventsHandler "github.com/allisson/marketsync/internal/events/handler"
	eventsRepository "github.com/allisson/marketsync/internal/events/repository"
	eventsUseCase "github.com/allisson/marketsync/internal/events/usecase"
)

type eventsComponents struct {
	eventRepo    eventsUseCase.EventRepository
	dispatcher   eventsUseCase.Dispatcher
	eventUseCase eventsUseCase.EventUseCase

	eventRepoInit    sync.Once
	dispatcherInit   sync.Once
	eventUseCaseInit sync.Once
}

// EventRepository returns the sync event repository based on database driver.
func (c *Container) EventRepository() (eventsUseCase.EventRepository, error) {
	var err error
	c.eventRepoInit.Do(func() {
		c.eventRepo, err = c.initEventRepository()
		if err != nil {
			c.initErrors["eventRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["eventRepo"]; exists {
		return nil, storedErr
	}
	return c.eventRepo, nil
}

// Dispatcher returns the event dispatcher with every entity handler registered.
func (c *Container) Dispatcher() (eventsUseCase.Dispatcher, error) {
	var err error
	c.dispatcherInit.Do(func() {
		c.dispatcher, err = c.initDispatcher()
		if err != nil {
			c.initErrors["dispatcher"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["dispatcher"]; exists {
		return nil, storedErr
	}
	return c.dispatcher, nil
}

// EventUseCase returns the event ingestion use case.
func (c *Container) EventUseCase() (eventsUseCase.EventUseCase, error) {
	var err error
	c.eventUseCaseInit.Do(func() {
		c.eventUseCase, err = c.initEventUseCase()
		if err != nil {
			c.initErrors["eventUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["eventUseCase"]; exists {
		return nil, storedErr
	}
	return c.eventUseCase, nil
}

// eventsAccountID parses the configured events account. An empty value yields uuid.Nil.
func (c *Container) eventsAccountID() (uuid.UUID, error) {
	if c.config.EventsAccountID == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(c.config.EventsAccountID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid EVENTS_ACCOUNT_ID: %w", err)
	}
	return id, nil
}

func (c *Container) initEventRepository() (eventsUseCase.EventRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for event repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return eventsRepository.NewMySQLEventRepository(db), nil
	case "postgres":
		return eventsRepository.NewPostgreSQLEventRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initDispatcher wires the offer, inventory and order handlers.
func (c *Container) initDispatcher() (eventsUseCase.Dispatcher, error) {
	accountID, err := c.eventsAccountID()
	if err != nil {
		return nil, err
	}

	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for dispatcher: %w", err)
	}

	offerRepo, err := c.OfferRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get offer repository for dispatcher: %w", err)
	}

	productRepo, err := c.ProductRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get product repository for dispatcher: %w", err)
	}

	orderRepo, err := c.OrderRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get order repository for dispatcher: %w", err)
	}

	restorationRepo, err := c.StockRestorationRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get stock restoration repository for dispatcher: %w", err)
	}

	notifier, err := c.Notifier()
	if err != nil {
		return nil, fmt.Errorf("failed to get notifier for dispatcher: %w", err)
	}

	accountUseCase, err := c.AccountUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get account use case for dispatcher: %w", err)
	}

	return eventsHandler.NewDispatcher(eventsHandler.Config{
		AccountID:           accountID,
		StockLowEnabled:     c.config.NotificationStockLow,
		OrderPaidEnabled:    c.config.NotificationOrderUpdated,
		NotificationEmailTo: c.config.NotificationEmailTo,
	}, eventsHandler.Dependencies{
		TxManager:    txManager,
		Locker:       c.Locker(),
		Offers:       offerRepo,
		Products:     productRepo,
		Orders:       orderRepo,
		Restorations: restorationRepo,
		Notifier:     notifier,
		OrderSource:  c.MarketplaceClient(),
		Tokens:       accountUseCase,
		Logger:       c.Logger(),
	}), nil
}

// initEventUseCase creates the event use case, wrapped with metrics when enabled.
func (c *Container) initEventUseCase() (eventsUseCase.EventUseCase, error) {
	if _, err := c.TracingProvider(); err != nil {
		return nil, fmt.Errorf("failed to get tracing provider for event use case: %w", err)
	}

	accountID, err := c.eventsAccountID()
	if err != nil {
		return nil, err
	}

	eventRepo, err := c.EventRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get event repository for event use case: %w", err)
	}

	accountUseCase, err := c.AccountUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get account use case for event use case: %w", err)
	}

	dispatcher, err := c.Dispatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to get dispatcher for event use case: %w", err)
	}

	baseUseCase := eventsUseCase.NewEventUseCase(
		eventsUseCase.Config{
			AccountID: accountID,
			PageSize:  c.config.EventsPageSize,
		},
		eventRepo,
		c.MarketplaceClient(),
		accountUseCase,
		dispatcher,
		c.Logger(),
	)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for event use case: %w", err)
		}
		return eventsUseCase.NewEventUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}
