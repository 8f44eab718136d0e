package app

import (
	"fmt"
	"sync"

	accountsRepository "github.com/allisson/marketsync/internal/accounts/repository"
	accountsUseCase "github.com/allisson/marketsync/internal/accounts/usecase"
	producersRepository "github.com/allisson/marketsync/internal/producers/repository"
	producersUseCase "github.com/allisson/marketsync/internal/producers/usecase"
)

type accountsComponents struct {
	accountRepo     accountsUseCase.AccountRepository
	accountUseCase  accountsUseCase.AccountUseCase
	producerRepo    producersUseCase.ProducerRepository
	producerUseCase producersUseCase.ProducerUseCase

	accountRepoInit     sync.Once
	accountUseCaseInit  sync.Once
	producerRepoInit    sync.Once
	producerUseCaseInit sync.Once
}

// AccountRepository returns the account repository based on database driver.
func (c *Container) AccountRepository() (accountsUseCase.AccountRepository, error) {
	var err error
	c.accountRepoInit.Do(func() {
		c.accountRepo, err = c.initAccountRepository()
		if err != nil {
			c.initErrors["accountRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["accountRepo"]; exists {
		return nil, storedErr
	}
	return c.accountRepo, nil
}

// AccountUseCase returns the account use case.
func (c *Container) AccountUseCase() (accountsUseCase.AccountUseCase, error) {
	var err error
	c.accountUseCaseInit.Do(func() {
		c.accountUseCase, err = c.initAccountUseCase()
		if err != nil {
			c.initErrors["accountUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["accountUseCase"]; exists {
		return nil, storedErr
	}
	return c.accountUseCase, nil
}

// ProducerRepository returns the producer repository based on database driver.
func (c *Container) ProducerRepository() (producersUseCase.ProducerRepository, error) {
	var err error
	c.producerRepoInit.Do(func() {
		c.producerRepo, err = c.initProducerRepository()
		if err != nil {
			c.initErrors["producerRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["producerRepo"]; exists {
		return nil, storedErr
	}
	return c.producerRepo, nil
}

// ProducerUseCase returns the producer use case.
func (c *Container) ProducerUseCase() (producersUseCase.ProducerUseCase, error) {
	var err error
	c.producerUseCaseInit.Do(func() {
		c.producerUseCase, err = c.initProducerUseCase()
		if err != nil {
			c.initErrors["producerUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["producerUseCase"]; exists {
		return nil, storedErr
	}
	return c.producerUseCase, nil
}

// initAccountRepository creates the account repository for the configured driver.
func (c *Container) initAccountRepository() (accountsUseCase.AccountRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for account repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return accountsRepository.NewMySQLAccountRepository(db), nil
	case "postgres":
		return accountsRepository.NewPostgreSQLAccountRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initAccountUseCase creates the account use case with the KMS keeper.
func (c *Container) initAccountUseCase() (accountsUseCase.AccountUseCase, error) {
	accountRepo, err := c.AccountRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get account repository for account use case: %w", err)
	}

	keeper, err := c.Keeper()
	if err != nil {
		return nil, fmt.Errorf("failed to get kms keeper for account use case: %w", err)
	}

	return accountsUseCase.NewAccountUseCase(accountRepo, keeper), nil
}

// initProducerRepository creates the producer repository for the configured driver.
func (c *Container) initProducerRepository() (producersUseCase.ProducerRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for producer repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return producersRepository.NewMySQLProducerRepository(db), nil
	case "postgres":
		return producersRepository.NewPostgreSQLProducerRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initProducerUseCase creates the producer use case, wrapped with metrics when enabled.
func (c *Container) initProducerUseCase() (producersUseCase.ProducerUseCase, error) {
	producerRepo, err := c.ProducerRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get producer repository for producer use case: %w", err)
	}

	accountUseCase, err := c.AccountUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get account use case for producer use case: %w", err)
	}

	baseUseCase := producersUseCase.NewProducerUseCase(
		producerRepo,
		accountUseCase,
		c.MarketplaceClient(),
		c.Logger(),
	)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for producer use case: %w", err)
		}
		return producersUseCase.NewProducerUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}
