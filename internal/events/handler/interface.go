// Package handler applies marketplace events to the local catalog and orders.
//
// Every handler serializes on the keys of the entities it touches and runs its
// writes in one transaction. Keys are always taken in the order
// order -> offers -> products so that concurrent handlers never deadlock.
package handler

import (
	"context"

	"github.com/google/uuid"

	catalogDomain "github.com/allisson/marketsync/internal/catalog/domain"
	eventsDomain "github.com/allisson/marketsync/internal/events/domain"
	"github.com/allisson/marketsync/internal/marketplace"
	ordersDomain "github.com/allisson/marketsync/internal/orders/domain"
)

// Handler applies one event.
type Handler interface {
	Handle(ctx context.Context, event *eventsDomain.SyncEvent) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event *eventsDomain.SyncEvent) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, event *eventsDomain.SyncEvent) error {
	return f(ctx, event)
}

// OfferRepository defines the offer operations used by the handlers.
type OfferRepository interface {
	Create(ctx context.Context, offer *catalogDomain.Offer) error
	GetByRemoteID(ctx context.Context, remoteOfferID string) (*catalogDomain.Offer, error)
	Update(ctx context.Context, offer *catalogDomain.Offer) error
	IncrementStock(ctx context.Context, remoteOfferID string, delta int) error
}

// ProductRepository defines the product operations used by the handlers.
type ProductRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*catalogDomain.Product, error)
	SetStock(ctx context.Context, id uuid.UUID, stock int) error
	IncrementStock(ctx context.Context, id uuid.UUID, delta int) error
}

// OrderRepository defines the order operations used by the handlers.
type OrderRepository interface {
	Upsert(ctx context.Context, order *ordersDomain.Order) error
	GetByRemoteID(ctx context.Context, remoteOrderID string) (*ordersDomain.Order, error)
}

// StockRestorationRepository records cancelled orders whose stock was given back.
type StockRestorationRepository interface {
	// TryRecord stores the restoration and reports false when the order was already restored.
	TryRecord(ctx context.Context, restoration *ordersDomain.StockRestoration) (bool, error)
}

// OrderSource fetches full orders when an event only carries the order id.
type OrderSource interface {
	GetOrder(ctx context.Context, token, orderID string) (*marketplace.Order, error)
}

// TokenSource hands out decrypted marketplace access tokens.
type TokenSource interface {
	AccessToken(ctx context.Context, accountID uuid.UUID) (string, error)
}
