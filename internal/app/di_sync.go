package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/allisson/marketsync/internal/conflict"
	leaseRepository "github.com/allisson/marketsync/internal/lease/repository"
	leaseUseCase "github.com/allisson/marketsync/internal/lease/usecase"
	"github.com/allisson/marketsync/internal/scheduler"
	syncDomain "github.com/allisson/marketsync/internal/sync/domain"
	syncRepository "github.com/allisson/marketsync/internal/sync/repository"
	syncUseCase "github.com/allisson/marketsync/internal/sync/usecase"
)

// pollLeaseName serializes event polls across worker processes.
const pollLeaseName = "events:poll"

type syncComponents struct {
	conflictRepo syncUseCase.ConflictRepository
	leaseRepo    leaseUseCase.LeaseRepository
	leaseRunner  leaseUseCase.Runner
	resolver     *conflict.Resolver
	syncUseCase  syncUseCase.SyncUseCase
	scheduler    *scheduler.Scheduler

	conflictRepoInit sync.Once
	leaseRepoInit    sync.Once
	leaseRunnerInit  sync.Once
	resolverInit     sync.Once
	syncUseCaseInit  sync.Once
	schedulerInit    sync.Once
}

// ConflictRepository returns the sync conflict repository based on database driver.
func (c *Container) ConflictRepository() (syncUseCase.ConflictRepository, error) {
	var err error
	c.conflictRepoInit.Do(func() {
		c.conflictRepo, err = c.initConflictRepository()
		if err != nil {
			c.initErrors["conflictRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["conflictRepo"]; exists {
		return nil, storedErr
	}
	return c.conflictRepo, nil
}

// LeaseRepository returns the run lease repository based on database driver.
func (c *Container) LeaseRepository() (leaseUseCase.LeaseRepository, error) {
	var err error
	c.leaseRepoInit.Do(func() {
		c.leaseRepo, err = c.initLeaseRepository()
		if err != nil {
			c.initErrors["leaseRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["leaseRepo"]; exists {
		return nil, storedErr
	}
	return c.leaseRepo, nil
}

// LeaseRunner returns the runner that keeps runs of the same name exclusive.
func (c *Container) LeaseRunner() (leaseUseCase.Runner, error) {
	var err error
	c.leaseRunnerInit.Do(func() {
		var repo leaseUseCase.LeaseRepository
		repo, err = c.LeaseRepository()
		if err != nil {
			err = fmt.Errorf("failed to get lease repository for lease runner: %w", err)
			c.initErrors["leaseRunner"] = err
			return
		}
		c.leaseRunner = leaseUseCase.NewRunner(repo, c.config.SyncLeaseTTL, c.Logger())
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["leaseRunner"]; exists {
		return nil, storedErr
	}
	return c.leaseRunner, nil
}

// ConflictResolver returns the resolver with the configured field policy.
func (c *Container) ConflictResolver() (*conflict.Resolver, error) {
	var err error
	c.resolverInit.Do(func() {
		var policy conflict.FieldPolicy
		policy, err = conflict.LoadFieldPolicy(c.config.SyncFieldPolicyFile)
		if err != nil {
			err = fmt.Errorf("failed to load field policy: %w", err)
			c.initErrors["resolver"] = err
			return
		}
		c.resolver = conflict.NewResolver(policy)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["resolver"]; exists {
		return nil, storedErr
	}
	return c.resolver, nil
}

// SyncUseCase returns the sync use case.
func (c *Container) SyncUseCase() (syncUseCase.SyncUseCase, error) {
	var err error
	c.syncUseCaseInit.Do(func() {
		c.syncUseCase, err = c.initSyncUseCase()
		if err != nil {
			c.initErrors["syncUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["syncUseCase"]; exists {
		return nil, storedErr
	}
	return c.syncUseCase, nil
}

// Scheduler returns the worker scheduler with every periodic job registered.
func (c *Container) Scheduler() (*scheduler.Scheduler, error) {
	var err error
	c.schedulerInit.Do(func() {
		c.scheduler, err = c.initScheduler()
		if err != nil {
			c.initErrors["scheduler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["scheduler"]; exists {
		return nil, storedErr
	}
	return c.scheduler, nil
}

func (c *Container) initConflictRepository() (syncUseCase.ConflictRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for conflict repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return syncRepository.NewMySQLConflictRepository(db), nil
	case "postgres":
		return syncRepository.NewPostgreSQLConflictRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initLeaseRepository() (leaseUseCase.LeaseRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for lease repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return leaseRepository.NewMySQLLeaseRepository(db), nil
	case "postgres":
		return leaseRepository.NewPostgreSQLLeaseRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initSyncUseCase wires the pull, push and bidirectional strategies.
func (c *Container) initSyncUseCase() (syncUseCase.SyncUseCase, error) {
	if _, err := c.TracingProvider(); err != nil {
		return nil, fmt.Errorf("failed to get tracing provider for sync use case: %w", err)
	}

	strategy, err := conflict.ParseStrategy(c.config.SyncConflictStrategy)
	if err != nil {
		return nil, fmt.Errorf("failed to parse sync conflict strategy: %w", err)
	}

	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for sync use case: %w", err)
	}

	offerRepo, err := c.OfferRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get offer repository for sync use case: %w", err)
	}

	productRepo, err := c.ProductRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get product repository for sync use case: %w", err)
	}

	conflictRepo, err := c.ConflictRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get conflict repository for sync use case: %w", err)
	}

	accountUseCase, err := c.AccountUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get account use case for sync use case: %w", err)
	}

	producerUseCase, err := c.ProducerUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get producer use case for sync use case: %w", err)
	}

	resolver, err := c.ConflictResolver()
	if err != nil {
		return nil, fmt.Errorf("failed to get conflict resolver for sync use case: %w", err)
	}

	runner, err := c.LeaseRunner()
	if err != nil {
		return nil, fmt.Errorf("failed to get lease runner for sync use case: %w", err)
	}

	notifier, err := c.Notifier()
	if err != nil {
		return nil, fmt.Errorf("failed to get notifier for sync use case: %w", err)
	}

	baseUseCase := syncUseCase.NewSyncUseCase(syncUseCase.Config{
		Strategy:            strategy,
		BatchSize:           c.config.SyncBatchSize,
		ChangeWindow:        c.config.SyncChangeWindow,
		NotifyFailures:      c.config.NotificationSyncError,
		NotificationEmailTo: c.config.NotificationEmailTo,
	}, syncUseCase.Dependencies{
		TxManager: txManager,
		Locker:    c.Locker(),
		Offers:    offerRepo,
		Products:  productRepo,
		Conflicts: conflictRepo,
		Remote:    c.MarketplaceClient(),
		Tokens:    accountUseCase,
		Producers: producerUseCase,
		Resolver:  resolver,
		Runner:    runner,
		Notifier:  notifier,
		Logger:    c.Logger(),
	})

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for sync use case: %w", err)
		}
		return syncUseCase.NewSyncUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

// initScheduler registers the periodic jobs of the worker.
func (c *Container) initScheduler() (*scheduler.Scheduler, error) {
	eventUseCase, err := c.EventUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get event use case for scheduler: %w", err)
	}

	syncUC, err := c.SyncUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get sync use case for scheduler: %w", err)
	}

	deliveryUseCase, err := c.DeliveryUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get delivery use case for scheduler: %w", err)
	}

	runner, err := c.LeaseRunner()
	if err != nil {
		return nil, fmt.Errorf("failed to get lease runner for scheduler: %w", err)
	}

	logger := c.Logger()
	retention := time.Duration(c.config.EventsRetentionDays) * 24 * time.Hour

	s := scheduler.New(logger)
	s.Add(scheduler.Job{
		Name:       "poll-events",
		Interval:   c.config.SchedulePollEvents,
		RunOnStart: true,
		Run: func(ctx context.Context) error {
			return runner.Run(ctx, pollLeaseName, func(ctx context.Context) error {
				_, err := eventUseCase.PollEvents(ctx)
				return err
			})
		},
	})
	s.Add(syncJob("marketplace-to-db", c.config.ScheduleMarketplaceToDB, syncUC, syncDomain.TypeMarketplaceToDB))
	s.Add(syncJob("db-to-marketplace", c.config.ScheduleDBToMarketplace, syncUC, syncDomain.TypeDBToMarketplace))
	s.Add(syncJob("bidirectional", c.config.ScheduleBidirectional, syncUC, syncDomain.TypeBidirectional))
	s.Add(scheduler.Job{
		Name:     "cleanup-events",
		Interval: c.config.ScheduleCleanup,
		Run: func(ctx context.Context) error {
			_, err := eventUseCase.CleanupProcessed(ctx, retention, false)
			return err
		},
	})
	s.Add(scheduler.Job{
		Name:     "deliver-notifications",
		Interval: c.config.ScheduleNotifications,
		Run: func(ctx context.Context) error {
			sent, err := deliveryUseCase.ProcessPending(ctx)
			if sent > 0 {
				logger.Debug("notifications delivered", slog.Int("count", sent))
			}
			return err
		},
	})
	return s, nil
}

func syncJob(name string, interval time.Duration, uc syncUseCase.SyncUseCase, syncType syncDomain.Type) scheduler.Job {
	return scheduler.Job{
		Name:     name,
		Interval: interval,
		Run: func(ctx context.Context) error {
			_, err := uc.Run(ctx, syncType)
			return err
		},
	}
}
