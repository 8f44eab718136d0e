// Package domain defines sync run types, per-record failures and the
// manual-review conflict queue.
package domain

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/marketsync/internal/conflict"
	"github.com/allisson/marketsync/internal/errors"
	"github.com/allisson/marketsync/internal/marketplace"
	producersDomain "github.com/allisson/marketsync/internal/producers/domain"
)

// Type names a sync direction.
type Type string

const (
	TypeMarketplaceToDB Type = "allegro-to-db"
	TypeDBToMarketplace Type = "db-to-allegro"
	TypeBidirectional   Type = "bidirectional"
)

// LeaseName returns the lease guarding runs of this type.
func (t Type) LeaseName() string {
	return "sync:" + string(t)
}

// ErrUnknownSyncType indicates an unsupported sync direction.
var ErrUnknownSyncType = errors.Wrap(errors.ErrInvalidInput, "unknown sync type")

// ParseType converts a command line or configuration value into a Type.
func ParseType(s string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case TypeMarketplaceToDB:
		return TypeMarketplaceToDB, nil
	case TypeDBToMarketplace:
		return TypeDBToMarketplace, nil
	case TypeBidirectional:
		return TypeBidirectional, nil
	default:
		return "", errors.Wrapf(ErrUnknownSyncType, "%q", s)
	}
}

// ErrorKind classifies the failure of a single record.
type ErrorKind string

const (
	ErrorKindRemoteUnreachable    ErrorKind = "REMOTE_UNREACHABLE"
	ErrorKindRemoteRejected       ErrorKind = "REMOTE_REJECTED"
	ErrorKindLocalConflict        ErrorKind = "LOCAL_CONFLICT"
	ErrorKindDependencyUnresolved ErrorKind = "DEPENDENCY_UNRESOLVED"
	ErrorKindLocalError           ErrorKind = "LOCAL_ERROR"
)

// ErrDependencyUnresolved marks a record whose foreign dependency could not be ensured.
var ErrDependencyUnresolved = errors.Wrap(errors.ErrNotFound, "dependency unresolved")

// Classify maps a record failure to its kind.
func Classify(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrDependencyUnresolved),
		errors.Is(err, producersDomain.ErrDependencyNotFound),
		errors.Is(err, producersDomain.ErrAccountMismatch):
		return ErrorKindDependencyUnresolved
	case errors.Is(err, conflict.ErrManualReviewRequired):
		return ErrorKindLocalConflict
	case errors.Is(err, marketplace.ErrRemoteUnreachable),
		errors.Is(err, context.DeadlineExceeded):
		return ErrorKindRemoteUnreachable
	case errors.Is(err, marketplace.ErrRemoteRejected):
		return ErrorKindRemoteRejected
	default:
		return ErrorKindLocalError
	}
}

// RecordError describes why one record of a run failed.
type RecordError struct {
	RecordID string    `json:"record_id"`
	Kind     ErrorKind `json:"kind"`
	Message  string    `json:"message"`
}

// RunResult summarizes one sync run. Processed always equals Successful plus Failed.
type RunResult struct {
	Processed  int           `json:"processed"`
	Successful int           `json:"successful"`
	Failed     int           `json:"failed"`
	Errors     []RecordError `json:"errors"`
}

// Succeed counts a record that synced.
func (r *RunResult) Succeed() {
	r.Processed++
	r.Successful++
}

// Fail counts a record that did not sync and keeps the reason.
func (r *RunResult) Fail(recordID string, err error) {
	r.Processed++
	r.Failed++
	r.Errors = append(r.Errors, RecordError{
		RecordID: recordID,
		Kind:     Classify(err),
		Message:  err.Error(),
	})
}

// Add sums other into r.
func (r *RunResult) Add(other *RunResult) {
	if other == nil {
		return
	}
	r.Processed += other.Processed
	r.Successful += other.Successful
	r.Failed += other.Failed
	r.Errors = append(r.Errors, other.Errors...)
}

// BidirectionalResult holds both halves of a bidirectional run and their sum.
type BidirectionalResult struct {
	MarketplaceToDB *RunResult `json:"allegro_to_db"`
	DBToMarketplace *RunResult `json:"db_to_allegro"`
	Total           RunResult  `json:"total"`
}

// NewBidirectionalResult sums the two halves.
func NewBidirectionalResult(pull, push *RunResult) *BidirectionalResult {
	result := &BidirectionalResult{MarketplaceToDB: pull, DBToMarketplace: push}
	result.Total.Add(pull)
	result.Total.Add(push)
	return result
}

// Report is the outcome of a sync run of any type. Total is the run itself for
// one-way types and the sum of both halves for bidirectional runs.
type Report struct {
	Type            Type       `json:"type"`
	MarketplaceToDB *RunResult `json:"allegro_to_db,omitempty"`
	DBToMarketplace *RunResult `json:"db_to_allegro,omitempty"`
	Total           RunResult  `json:"total"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      time.Time  `json:"finished_at"`
}

// Conflict is a record divergence queued for manual review.
type Conflict struct {
	ID              uuid.UUID
	EntityType      string
	EntityID        string
	Strategy        conflict.Strategy
	DBUpdatedAt     time.Time
	RemoteUpdatedAt time.Time
	DBSnapshot      json.RawMessage
	RemoteSnapshot  json.RawMessage
	CreatedAt       time.Time
}

// EntityTypeOffer is the conflict entity type of marketplace offers.
const EntityTypeOffer = "offer"
