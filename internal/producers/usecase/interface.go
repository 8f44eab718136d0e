// Package usecase guarantees that producers referenced by exported offers exist locally.
package usecase

import (
	"context"

	"github.com/google/uuid"

	accountsDomain "github.com/allisson/marketsync/internal/accounts/domain"
	"github.com/allisson/marketsync/internal/marketplace"
	producersDomain "github.com/allisson/marketsync/internal/producers/domain"
)

// ProducerRepository defines producer persistence.
type ProducerRepository interface {
	Upsert(ctx context.Context, producer *producersDomain.Producer) error
	GetByRemoteID(ctx context.Context, accountID uuid.UUID, remoteID string) (*producersDomain.Producer, error)
}

// AccountSource loads accounts and their decrypted access tokens.
type AccountSource interface {
	Get(ctx context.Context, id uuid.UUID) (*accountsDomain.Account, error)
	AccessToken(ctx context.Context, id uuid.UUID) (string, error)
}

// RemoteProducers reads producers from the marketplace.
type RemoteProducers interface {
	GetProducer(ctx context.Context, token, producerID string) (*marketplace.Producer, error)
	ListProducers(ctx context.Context, token string) ([]*marketplace.Producer, error)
}

// ProducerUseCase defines the referential-integrity operations.
type ProducerUseCase interface {
	// EnsureExists returns the local id of the producer, fetching and storing it
	// first when only the marketplace knows it.
	EnsureExists(ctx context.Context, userID, accountID uuid.UUID, remoteID string) (uuid.UUID, error)
	// SyncForAccount stores every producer the marketplace lists for the account.
	SyncForAccount(ctx context.Context, userID, accountID uuid.UUID) (*producersDomain.SyncSummary, error)
}
