package marketplace

import (
	"encoding/json"
	"time"
)

// Stream identifies one marketplace event feed.
type Stream string

const (
	StreamOffers Stream = "offers"
	StreamOrders Stream = "orders"
)

// Event is one entry of an event feed. Payload holds the event exactly as received.
type Event struct {
	ID         string
	Type       string
	OccurredAt string
	EntityID   string
	Payload    json.RawMessage
}

// EventPage is one page of an event feed. Skipped counts entries that could
// not be decoded and were left out of Events.
type EventPage struct {
	Events      []Event
	LastEventID string
	Skipped     int
}

// Price is a decimal amount as sent by the marketplace.
type Price struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency,omitempty"`
}

// SellingMode holds the offer price.
type SellingMode struct {
	Price Price `json:"price"`
}

// Stock holds the available quantity of an offer.
type Stock struct {
	Available int `json:"available"`
}

// Publication holds the offer lifecycle status.
type Publication struct {
	Status string `json:"status,omitempty"`
}

// Reference points at another marketplace resource by id.
type Reference struct {
	ID string `json:"id"`
}

// Offer is the subset of the marketplace offer resource used by the engine.
type Offer struct {
	ID                  string       `json:"id,omitempty"`
	Name                string       `json:"name,omitempty"`
	Description         string       `json:"description,omitempty"`
	SellingMode         *SellingMode `json:"sellingMode,omitempty"`
	Stock               *Stock       `json:"stock,omitempty"`
	Publication         *Publication `json:"publication,omitempty"`
	External            *Reference   `json:"external,omitempty"`
	ResponsibleProducer *Reference   `json:"responsibleProducer,omitempty"`
	UpdatedAt           *time.Time   `json:"updatedAt,omitempty"`
}

// PriceAmount returns the selling price or an empty string.
func (o *Offer) PriceAmount() string {
	if o.SellingMode == nil {
		return ""
	}
	return o.SellingMode.Price.Amount
}

// Available returns the available stock or zero.
func (o *Offer) Available() int {
	if o.Stock == nil {
		return 0
	}
	return o.Stock.Available
}

// Status returns the publication status, defaulting to INACTIVE.
func (o *Offer) Status() string {
	if o.Publication == nil || o.Publication.Status == "" {
		return "INACTIVE"
	}
	return o.Publication.Status
}

// LineItem is one position of an order.
type LineItem struct {
	Offer    Reference `json:"offer"`
	Quantity int       `json:"quantity"`
}

// Order is the subset of the marketplace order resource used by the engine.
type Order struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Buyer  struct {
		Email string `json:"email"`
	} `json:"buyer"`
	Payment struct {
		Status string `json:"status"`
	} `json:"payment"`
	Fulfillment struct {
		Status string `json:"status"`
	} `json:"fulfillment"`
	LineItems []LineItem `json:"lineItems"`
	Summary   struct {
		TotalToPay Price `json:"totalToPay"`
	} `json:"summary"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// Producer is a responsible producer record.
type Producer struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ProducerData struct {
		TradeName string `json:"tradeName"`
		Address   struct {
			Street      string `json:"street"`
			PostalCode  string `json:"postalCode"`
			City        string `json:"city"`
			CountryCode string `json:"countryCode"`
		} `json:"address"`
		Contact struct {
			Email       string `json:"email"`
			PhoneNumber string `json:"phoneNumber"`
		} `json:"contact"`
	} `json:"producerData"`

	// Raw is the record as received.
	Raw json.RawMessage `json:"-"`
}

// DisplayName returns the producer name, falling back to the trade name.
func (p *Producer) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.ProducerData.TradeName
}
