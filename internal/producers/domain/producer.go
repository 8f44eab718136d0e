// Package domain defines responsible producers, the foreign dependency an offer
// must reference before it can be exported to the marketplace.
package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	catalogDomain "github.com/allisson/marketsync/internal/catalog/domain"
	"github.com/allisson/marketsync/internal/errors"
)

// Producer is the local copy of a marketplace responsible producer, unique per
// (AccountID, RemoteID).
type Producer struct {
	ID           uuid.UUID
	AccountID    uuid.UUID
	RemoteID     string
	Name         string
	Email        string
	Phone        string
	Address      json.RawMessage
	RawData      json.RawMessage
	SyncStatus   catalogDomain.SyncStatus
	LastSyncedAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SyncSummary reports a bulk producer sync.
type SyncSummary struct {
	Total  int `json:"total"`
	Synced int `json:"synced"`
	Errors int `json:"errors"`
}

// Producer errors.
var (
	// ErrProducerNotFound indicates no local producer matches the remote id.
	ErrProducerNotFound = errors.Wrap(errors.ErrNotFound, "producer not found")

	// ErrDependencyNotFound indicates the marketplace does not know the referenced producer either.
	ErrDependencyNotFound = errors.Wrap(errors.ErrNotFound, "dependency not found")

	// ErrAccountMismatch indicates the account does not belong to the requesting user.
	ErrAccountMismatch = errors.Wrap(errors.ErrForbidden, "account does not belong to user")

	// ErrRemoteIDRequired indicates an empty producer reference.
	ErrRemoteIDRequired = errors.Wrap(errors.ErrInvalidInput, "producer remote id is required")
)
