// Package domain defines marketplace orders mirrored locally and the stock
// restoration guard used when an order is cancelled.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	catalogDomain "github.com/allisson/marketsync/internal/catalog/domain"
	"github.com/allisson/marketsync/internal/errors"
)

const (
	StatusCancelled = "CANCELLED"
	PaymentPaid     = "PAID"
)

// LineItem is one position of an order. Quantity defaults to 1 when the
// marketplace omits it.
type LineItem struct {
	OfferID  string `json:"offerId"`
	Quantity int    `json:"quantity"`
}

// Order is the local mirror of a marketplace order.
type Order struct {
	ID                uuid.UUID
	RemoteOrderID     string
	Status            string
	PaymentStatus     string
	FulfillmentStatus string
	BuyerEmail        string
	TotalAmount       string
	Currency          string
	LineItems         []LineItem
	SyncStatus        catalogDomain.SyncStatus
	LastSyncedAt      *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsCancelled reports whether the order or its fulfillment was cancelled.
func (o *Order) IsCancelled() bool {
	return strings.EqualFold(o.Status, StatusCancelled) || strings.EqualFold(o.FulfillmentStatus, StatusCancelled)
}

// IsPaid reports whether the order status or payment reports a completed payment.
func (o *Order) IsPaid() bool {
	return strings.EqualFold(o.Status, PaymentPaid) || strings.EqualFold(o.PaymentStatus, PaymentPaid)
}

// StockRestoration records that the stock of a cancelled order was given back.
type StockRestoration struct {
	OrderID    string
	Quantity   int
	RestoredAt time.Time
}

// Order errors.
var (
	// ErrOrderNotFound indicates no local order mirrors the marketplace order.
	ErrOrderNotFound = errors.Wrap(errors.ErrNotFound, "order not found")
)
