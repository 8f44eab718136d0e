// Package domain defines fire-and-forget notifications and the outbox entries
// that carry them to a sender.
package domain

import (
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	"github.com/allisson/marketsync/internal/errors"
	appValidation "github.com/allisson/marketsync/internal/validation"
)

// Channel is the medium a notification is meant for.
type Channel string

const (
	ChannelEmail   Channel = "EMAIL"
	ChannelWebhook Channel = "WEBHOOK"
)

// Type identifies the notification template.
type Type string

const (
	TypeStockLow          Type = "stock_low"
	TypeOrderStatusUpdate Type = "order_status_update"
	TypeSyncError         Type = "sync_error"
)

// Notification is the message handed to a sender.
type Notification struct {
	Channel      Channel        `json:"channel"`
	Type         Type           `json:"type"`
	Recipient    string         `json:"recipient"`
	Subject      string         `json:"subject"`
	Message      string         `json:"message"`
	TemplateData map[string]any `json:"templateData,omitempty"`
}

// Validate checks the notification before it is queued.
func (n *Notification) Validate() error {
	err := validation.ValidateStruct(n,
		validation.Field(&n.Channel, validation.Required, validation.In(ChannelEmail, ChannelWebhook)),
		validation.Field(&n.Type, validation.Required, validation.In(TypeStockLow, TypeOrderStatusUpdate, TypeSyncError)),
		validation.Field(&n.Recipient, validation.When(n.Channel == ChannelEmail, validation.Required, appValidation.Email)),
		validation.Field(&n.Subject, validation.Required, appValidation.NotBlank),
	)
	return appValidation.WrapValidationError(err)
}

// OutboxStatus represents the delivery status of an outbox entry.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusProcessed OutboxStatus = "processed"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// OutboxEntry is a queued notification.
type OutboxEntry struct {
	ID           uuid.UUID
	Notification Notification
	Status       OutboxStatus
	Retries      int
	LastError    *string
	ProcessedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ErrDeliveryFailed indicates the sender did not accept the notification.
var ErrDeliveryFailed = errors.Wrap(errors.ErrUnavailable, "notification delivery failed")
