// Package usecase implements the sync strategies between the local catalog
// and the marketplace, and the orchestrator that runs them under a lease.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	catalogDomain "github.com/allisson/marketsync/internal/catalog/domain"
	"github.com/allisson/marketsync/internal/conflict"
	"github.com/allisson/marketsync/internal/marketplace"
	syncDomain "github.com/allisson/marketsync/internal/sync/domain"
)

// OfferRepository defines the offer operations used by sync runs.
type OfferRepository interface {
	Create(ctx context.Context, offer *catalogDomain.Offer) error
	GetByRemoteID(ctx context.Context, remoteOfferID string) (*catalogDomain.Offer, error)
	GetByProductID(ctx context.Context, productID uuid.UUID) (*catalogDomain.Offer, error)
	Update(ctx context.Context, offer *catalogDomain.Offer) error
	ListForSync(ctx context.Context, limit int) ([]*catalogDomain.Offer, error)
	MarkError(ctx context.Context, id uuid.UUID, reason string) error
	MarkChecked(ctx context.Context, id uuid.UUID, at time.Time) error
}

// ProductRepository defines the product operations used by sync runs.
type ProductRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*catalogDomain.Product, error)
	ListChangedSince(ctx context.Context, since time.Time, limit int) ([]*catalogDomain.Product, error)
	ApplyMarketplaceValues(ctx context.Context, id uuid.UUID, sellingPrice string, stock int, description string) error
	SetProducer(ctx context.Context, id, producerID uuid.UUID) error
	MarkSynced(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkError(ctx context.Context, id uuid.UUID, reason string) error
}

// ConflictRepository queues conflicts for manual review.
type ConflictRepository interface {
	Create(ctx context.Context, c *syncDomain.Conflict) error
	List(ctx context.Context, limit int) ([]*syncDomain.Conflict, error)
}

// RemoteOffers reads and writes marketplace offers.
type RemoteOffers interface {
	GetOffer(ctx context.Context, token, offerID string) (*marketplace.Offer, error)
	UpdateOffer(ctx context.Context, token, offerID string, offer *marketplace.Offer) (*marketplace.Offer, error)
	CreateOffer(ctx context.Context, token string, offer *marketplace.Offer) (*marketplace.Offer, error)
}

// TokenSource hands out decrypted marketplace access tokens.
type TokenSource interface {
	AccessToken(ctx context.Context, accountID uuid.UUID) (string, error)
}

// DependencyGuarantor makes sure the producer of a product exists locally.
type DependencyGuarantor interface {
	EnsureExists(ctx context.Context, userID, accountID uuid.UUID, remoteID string) (uuid.UUID, error)
}

// Resolver decides record and field conflicts.
type Resolver interface {
	Resolve(
		dbRecord, remoteRecord any,
		dbUpdatedAt, remoteUpdatedAt time.Time,
		strategy conflict.Strategy,
	) (conflict.Resolution, error)
	MergeFields(fields map[string]conflict.FieldValues) map[string]any
}

// SyncUseCase runs sync strategies.
type SyncUseCase interface {
	// Run executes one sync run of the given type under its lease. It returns
	// leaseDomain.ErrRunInProgress when another run of the same type is active.
	Run(ctx context.Context, syncType syncDomain.Type) (*syncDomain.Report, error)
	// ListConflicts returns the newest conflicts waiting for manual review.
	ListConflicts(ctx context.Context, limit int) ([]*syncDomain.Conflict, error)
}
