package app

import (
	"fmt"
	"sync"

	catalogRepository "github.com/allisson/marketsync/internal/catalog/repository"
	eventsHandler "github.com/allisson/marketsync/internal/events/handler"
	ordersRepository "github.com/allisson/marketsync/internal/orders/repository"
	syncUseCase "github.com/allisson/marketsync/internal/sync/usecase"
)

// OfferRepository is the offer store shared by the event handlers and sync runs.
type OfferRepository interface {
	eventsHandler.OfferRepository
	syncUseCase.OfferRepository
}

// ProductRepository is the product store shared by the event handlers and sync runs.
type ProductRepository interface {
	eventsHandler.ProductRepository
	syncUseCase.ProductRepository
}

type catalogComponents struct {
	offerRepo       OfferRepository
	productRepo     ProductRepository
	orderRepo       eventsHandler.OrderRepository
	restorationRepo eventsHandler.StockRestorationRepository

	offerRepoInit       sync.Once
	productRepoInit     sync.Once
	orderRepoInit       sync.Once
	restorationRepoInit sync.Once
}

// OfferRepository returns the offer repository based on database driver.
func (c *Container) OfferRepository() (OfferRepository, error) {
	var err error
	c.offerRepoInit.Do(func() {
		c.offerRepo, err = c.initOfferRepository()
		if err != nil {
			c.initErrors["offerRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["offerRepo"]; exists {
		return nil, storedErr
	}
	return c.offerRepo, nil
}

// ProductRepository returns the product repository based on database driver.
func (c *Container) ProductRepository() (ProductRepository, error) {
	var err error
	c.productRepoInit.Do(func() {
		c.productRepo, err = c.initProductRepository()
		if err != nil {
			c.initErrors["productRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["productRepo"]; exists {
		return nil, storedErr
	}
	return c.productRepo, nil
}

// OrderRepository returns the order repository based on database driver.
func (c *Container) OrderRepository() (eventsHandler.OrderRepository, error) {
	var err error
	c.orderRepoInit.Do(func() {
		c.orderRepo, err = c.initOrderRepository()
		if err != nil {
			c.initErrors["orderRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["orderRepo"]; exists {
		return nil, storedErr
	}
	return c.orderRepo, nil
}

// StockRestorationRepository returns the stock restoration ledger based on database driver.
func (c *Container) StockRestorationRepository() (eventsHandler.StockRestorationRepository, error) {
	var err error
	c.restorationRepoInit.Do(func() {
		c.restorationRepo, err = c.initStockRestorationRepository()
		if err != nil {
			c.initErrors["restorationRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["restorationRepo"]; exists {
		return nil, storedErr
	}
	return c.restorationRepo, nil
}

func (c *Container) initOfferRepository() (OfferRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for offer repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return catalogRepository.NewMySQLOfferRepository(db), nil
	case "postgres":
		return catalogRepository.NewPostgreSQLOfferRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initProductRepository() (ProductRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for product repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return catalogRepository.NewMySQLProductRepository(db), nil
	case "postgres":
		return catalogRepository.NewPostgreSQLProductRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initOrderRepository() (eventsHandler.OrderRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for order repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return ordersRepository.NewMySQLOrderRepository(db), nil
	case "postgres":
		return ordersRepository.NewPostgreSQLOrderRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initStockRestorationRepository() (eventsHandler.StockRestorationRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for stock restoration repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return ordersRepository.NewMySQLStockRestorationRepository(db), nil
	case "postgres":
		return ordersRepository.NewPostgreSQLStockRestorationRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}
