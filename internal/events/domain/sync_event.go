// Package domain defines ingested marketplace events, the internal event
// taxonomy and the errors of the ingestion pipeline.
package domain

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/marketsync/internal/errors"
)

// SourceAllegro is the only event source.
const SourceAllegro = "ALLEGRO"

// Internal event taxonomy.
const (
	TypeOfferCreated     = "offer.created"
	TypeOfferUpdated     = "offer.updated"
	TypeOfferEnded       = "offer.ended"
	TypeInventoryUpdated = "inventory.updated"
	TypeOrderCreated     = "order.created"
	TypeOrderUpdated     = "order.updated"
)

var remoteTypes = map[string]string{
	"OFFER_CREATED":              TypeOfferCreated,
	"OFFER_UPDATED":              TypeOfferUpdated,
	"OFFER_CHANGED":              TypeOfferUpdated,
	"OFFER_ENDED":                TypeOfferEnded,
	"OFFER_STOCK_CHANGED":        TypeInventoryUpdated,
	"OFFER_PRICE_CHANGED":        TypeOfferUpdated,
	"ORDER_CREATED":              TypeOrderCreated,
	"BOUGHT":                     TypeOrderCreated,
	"ORDER_UPDATED":              TypeOrderUpdated,
	"ORDER_PAID":                 TypeOrderUpdated,
	"ORDER_SENT":                 TypeOrderUpdated,
	"ORDER_CANCELLED":            TypeOrderUpdated,
	"READY_FOR_PROCESSING":       TypeOrderUpdated,
	"BUYER_CANCELLED":            TypeOrderUpdated,
	"FULFILLMENT_STATUS_CHANGED": TypeOrderUpdated,
}

// TranslateType maps a marketplace event type to the internal taxonomy.
// Types without a mapping are lower-cased with underscores turned into dots,
// which leaves them without a handler.
func TranslateType(remoteType string) string {
	if mapped, ok := remoteTypes[strings.ToUpper(remoteType)]; ok {
		return mapped
	}
	return strings.ReplaceAll(strings.ToLower(remoteType), "_", ".")
}

// SynthesizeID derives a stable event id for events delivered without one.
// The same type, entity and occurrence time always yield the same id.
func SynthesizeID(eventType, entityID, occurredAt string) string {
	sum := sha256.Sum256([]byte(eventType + "|" + entityID + "|" + occurredAt))
	return "syn-" + hex.EncodeToString(sum[:])
}

// SynthesizeIDFromPayload derives the id of an event delivered without an id or an
// occurrence time from its type and payload. JSON payloads are compacted first,
// so a re-delivery that only differs in whitespace maps to the same id.
func SynthesizeIDFromPayload(eventType string, payload []byte) string {
	var compacted bytes.Buffer
	if err := json.Compact(&compacted, payload); err == nil {
		payload = compacted.Bytes()
	}
	hash := sha256.New()
	hash.Write([]byte(eventType + "|"))
	hash.Write(payload)
	return "syn-" + hex.EncodeToString(hash.Sum(nil))
}

// SyncEvent is a marketplace event persisted for idempotent processing.
type SyncEvent struct {
	ID              uuid.UUID
	EventID         string
	EventType       string
	Source          string
	Stream          string
	Payload         json.RawMessage
	Processed       bool
	ProcessedAt     *time.Time
	ProcessingError *string
	RetryCount      int
	CreatedAt       time.Time
}

// Event ingestion errors.
var (
	// ErrEventNotFound indicates no stored event has the requested id.
	ErrEventNotFound = errors.Wrap(errors.ErrNotFound, "sync event not found")

	// ErrDuplicateEvent indicates the event id is already stored.
	ErrDuplicateEvent = errors.Wrap(errors.ErrConflict, "duplicate sync event")

	// ErrEventAlreadyProcessed indicates a retry was requested for a processed event.
	ErrEventAlreadyProcessed = errors.Wrap(errors.ErrConflict, "sync event already processed")

	// ErrUnknownEventType indicates no handler is registered for the event type.
	ErrUnknownEventType = errors.Wrap(errors.ErrInvalidInput, "unknown event type")

	// ErrHandlerFailure wraps any error returned by an entity handler.
	ErrHandlerFailure = errors.New("event handler failed")

	// ErrInvalidPayload indicates the event payload lacks a required field.
	ErrInvalidPayload = errors.Wrap(errors.ErrInvalidInput, "invalid event payload")
)
