package handler

import (
	"encoding/json"
	"fmt"
	"time"

	eventsDomain "github.com/allisson/marketsync/internal/events/domain"
	"github.com/allisson/marketsync/internal/marketplace"
	ordersDomain "github.com/allisson/marketsync/internal/orders/domain"
)

type offerPayload struct {
	Offer *marketplace.Offer `json:"offer"`
}

func decodeOffer(event *eventsDomain.SyncEvent) (*marketplace.Offer, error) {
	var p offerPayload
	if err := json.Unmarshal(event.Payload, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", eventsDomain.ErrInvalidPayload, err)
	}
	if p.Offer == nil || p.Offer.ID == "" {
		return nil, fmt.Errorf("%w: missing offer.id", eventsDomain.ErrInvalidPayload)
	}
	return p.Offer, nil
}

// orderLineItem accepts both lineItems[].offer.id and lineItems[].offerId.
type orderLineItem struct {
	Offer    *marketplace.Reference `json:"offer"`
	OfferID  string                 `json:"offerId"`
	Quantity int                    `json:"quantity"`
}

type orderBody struct {
	ID           string                 `json:"id"`
	CheckoutForm *marketplace.Reference `json:"checkoutForm"`
	Status       string                 `json:"status"`
	Buyer        struct {
		Email string `json:"email"`
	} `json:"buyer"`
	Payment struct {
		Status string `json:"status"`
	} `json:"payment"`
	Fulfillment struct {
		Status string `json:"status"`
	} `json:"fulfillment"`
	LineItems []orderLineItem `json:"lineItems"`
	Summary   struct {
		TotalToPay marketplace.Price `json:"totalToPay"`
	} `json:"summary"`
}

type orderPayload struct {
	Order *orderBody `json:"order"`
}

// remoteID returns the order id, falling back to the checkout form id used by order events.
func (b *orderBody) remoteID() string {
	if b.ID != "" {
		return b.ID
	}
	if b.CheckoutForm != nil {
		return b.CheckoutForm.ID
	}
	return ""
}

// hasDetails reports whether the payload carries the order state or only its id.
func (b *orderBody) hasDetails() bool {
	return b.Status != "" || b.Payment.Status != "" || b.Fulfillment.Status != "" || len(b.LineItems) > 0
}

func decodeOrder(event *eventsDomain.SyncEvent) (*orderBody, error) {
	var p orderPayload
	if err := json.Unmarshal(event.Payload, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", eventsDomain.ErrInvalidPayload, err)
	}
	if p.Order == nil || p.Order.remoteID() == "" {
		return nil, fmt.Errorf("%w: missing order.id", eventsDomain.ErrInvalidPayload)
	}
	return p.Order, nil
}

// orderFromRemote converts a fetched order into the payload form.
func orderFromRemote(o *marketplace.Order) *orderBody {
	body := &orderBody{ID: o.ID, Status: o.Status}
	body.Buyer.Email = o.Buyer.Email
	body.Payment.Status = o.Payment.Status
	body.Fulfillment.Status = o.Fulfillment.Status
	body.Summary.TotalToPay = o.Summary.TotalToPay
	for _, item := range o.LineItems {
		ref := item.Offer
		body.LineItems = append(body.LineItems, orderLineItem{Offer: &ref, Quantity: item.Quantity})
	}
	return body
}

// toOrder maps the payload onto a local order. Missing statuses default to NEW
// and missing line item quantities to 1.
func (b *orderBody) toOrder(now time.Time) *ordersDomain.Order {
	status := b.Status
	if status == "" {
		status = "NEW"
	}

	items := make([]ordersDomain.LineItem, 0, len(b.LineItems))
	for _, item := range b.LineItems {
		offerID := item.OfferID
		if item.Offer != nil && item.Offer.ID != "" {
			offerID = item.Offer.ID
		}
		if offerID == "" {
			continue
		}
		quantity := item.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		items = append(items, ordersDomain.LineItem{OfferID: offerID, Quantity: quantity})
	}

	return &ordersDomain.Order{
		RemoteOrderID:     b.remoteID(),
		Status:            status,
		PaymentStatus:     b.Payment.Status,
		FulfillmentStatus: b.Fulfillment.Status,
		BuyerEmail:        b.Buyer.Email,
		TotalAmount:       b.Summary.TotalToPay.Amount,
		Currency:          b.Summary.TotalToPay.Currency,
		LineItems:         items,
		LastSyncedAt:      &now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}
