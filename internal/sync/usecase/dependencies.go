package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/marketsync/internal/conflict"
	"github.com/allisson/marketsync/internal/database"
	"github.com/allisson/marketsync/internal/keylock"
	leaseUseCase "github.com/allisson/marketsync/internal/lease/usecase"
	notificationUseCase "github.com/allisson/marketsync/internal/notification/usecase"
)

const (
	defaultBatchSize    = 100
	defaultChangeWindow = 24 * time.Hour
	defaultCurrency     = "PLN"
	tracerName          = "github.com/allisson/marketsync/internal/sync"
)

// Config holds sync settings.
type Config struct {
	// Strategy is the record-level conflict strategy of pull runs.
	Strategy conflict.Strategy
	// BatchSize bounds the records handled by one run of each direction.
	BatchSize int
	// ChangeWindow is how far back push runs look for changed products.
	ChangeWindow time.Duration
	// NotifyFailures enables sync_error notifications for runs with failed records.
	NotifyFailures bool
	// NotificationEmailTo receives sync_error notifications; empty means webhook.
	NotificationEmailTo string
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.ChangeWindow <= 0 {
		c.ChangeWindow = defaultChangeWindow
	}
	if c.Strategy == "" {
		c.Strategy = conflict.StrategyTimestamp
	}
	return c
}

// Dependencies groups the collaborators of the sync strategies.
type Dependencies struct {
	TxManager database.TxManager
	Locker    *keylock.Locker
	Offers    OfferRepository
	Products  ProductRepository
	Conflicts ConflictRepository
	Remote    RemoteOffers
	Tokens    TokenSource
	Producers DependencyGuarantor
	Resolver  Resolver
	Runner    leaseUseCase.Runner
	Notifier  notificationUseCase.Notifier
	Logger    *slog.Logger
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Locker == nil {
		d.Locker = keylock.New()
	}
	if d.Resolver == nil {
		d.Resolver = conflict.NewResolver(nil)
	}
	if d.Notifier == nil {
		d.Notifier = notificationUseCase.NoopNotifier{}
	}
	return d
}

// tokenCache memoizes access tokens for the duration of one run.
type tokenCache struct {
	source TokenSource
	tokens map[uuid.UUID]string
}

func newTokenCache(source TokenSource) *tokenCache {
	return &tokenCache{source: source, tokens: make(map[uuid.UUID]string)}
}

func (c *tokenCache) get(ctx context.Context, accountID uuid.UUID) (string, error) {
	if token, ok := c.tokens[accountID]; ok {
		return token, nil
	}
	token, err := c.source.AccessToken(ctx, accountID)
	if err != nil {
		return "", err
	}
	c.tokens[accountID] = token
	return token, nil
}
