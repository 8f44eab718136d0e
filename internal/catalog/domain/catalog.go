// Package domain defines the locally mirrored catalog: products and the
// marketplace offers that publish them.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/allisson/marketsync/internal/errors"
)

// SyncStatus tracks whether a record matches its marketplace counterpart.
type SyncStatus string

const (
	SyncStatusPending SyncStatus = "PENDING"
	SyncStatusSynced  SyncStatus = "SYNCED"
	SyncStatusError   SyncStatus = "ERROR"
)

// SyncSource records which side wrote the record last.
type SyncSource string

const (
	SyncSourceLocal       SyncSource = "LOCAL"
	SyncSourceMarketplace SyncSource = "MARKETPLACE"
)

// Offer publication statuses written locally.
const (
	OfferStatusInactive = "INACTIVE"
	OfferStatusEnded    = "ENDED"
)

// Product is a locally managed catalog item.
type Product struct {
	ID                   uuid.UUID
	AccountID            uuid.UUID
	UserID               uuid.UUID
	Code                 string
	Title                string
	Description          string
	PurchasePrice        string
	SellingPrice         string
	StockQuantity        int
	MinimumStockQuantity int
	ProducerRemoteID     string
	ProducerID           uuid.NullUUID
	Active               bool
	SyncStatus           SyncStatus
	SyncSource           SyncSource
	SyncError            *string
	LastSyncedAt         *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// IsLowStock reports whether stock reached the configured minimum.
// A zero minimum disables the check.
func (p *Product) IsLowStock() bool {
	return p.MinimumStockQuantity > 0 && p.StockQuantity <= p.MinimumStockQuantity
}

// HasUnpushedChanges reports whether the product changed after its last push.
func (p *Product) HasUnpushedChanges() bool {
	return p.LastSyncedAt == nil || p.UpdatedAt.After(*p.LastSyncedAt)
}

// Offer is the local mirror of a marketplace offer.
type Offer struct {
	ID            uuid.UUID
	AccountID     uuid.UUID
	ProductID     uuid.NullUUID
	RemoteOfferID string
	Title         string
	Description   string
	Price         string
	Currency      string
	Quantity      int
	StockQuantity int
	Status        string
	SyncStatus    SyncStatus
	SyncSource    SyncSource
	SyncError     *string
	LastSyncedAt  *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// MarkSynced flags the offer as written from the marketplace at the given time.
func (o *Offer) MarkSynced(at time.Time) {
	o.SyncStatus = SyncStatusSynced
	o.SyncSource = SyncSourceMarketplace
	o.SyncError = nil
	o.LastSyncedAt = &at
	o.UpdatedAt = at
}

// Catalog errors.
var (
	// ErrOfferNotFound indicates no local offer mirrors the marketplace offer.
	ErrOfferNotFound = errors.Wrap(errors.ErrNotFound, "offer not found")

	// ErrProductNotFound indicates the product does not exist.
	ErrProductNotFound = errors.Wrap(errors.ErrNotFound, "product not found")
)
