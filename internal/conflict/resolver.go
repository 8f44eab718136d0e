// Package conflict decides which side of a divergent record is authoritative.
//
// Record-level decisions use a Strategy chosen by the caller for each call.
// Field-level decisions use a FieldPolicy table that is fixed when the
// Resolver is built and never changes afterwards.
package conflict

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/allisson/marketsync/internal/errors"
)

// Strategy selects how record-level conflicts are resolved.
type Strategy string

const (
	// StrategyTimestamp prefers the most recently updated side; ties favor the remote side.
	StrategyTimestamp Strategy = "TIMESTAMP"
	// StrategyDBWins always keeps the local record.
	StrategyDBWins Strategy = "DB_WINS"
	// StrategyRemoteWins always takes the marketplace record.
	StrategyRemoteWins Strategy = "REMOTE_WINS"
	// StrategyManual never applies either side automatically.
	StrategyManual Strategy = "MANUAL"
)

// Resolution is the outcome of a conflict decision.
type Resolution string

const (
	UseDB        Resolution = "USE_DB"
	UseRemote    Resolution = "USE_REMOTE"
	ManualReview Resolution = "MANUAL_REVIEW"
)

// ErrManualReviewRequired is returned by callers that cannot apply a MANUAL_REVIEW outcome.
var ErrManualReviewRequired = apperrors.Wrap(apperrors.ErrConflict, "manual review required")

// ErrUnknownStrategy indicates an unsupported strategy name.
var ErrUnknownStrategy = apperrors.Wrap(apperrors.ErrInvalidInput, "unknown conflict strategy")

// ParseStrategy converts a configuration value into a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToUpper(strings.TrimSpace(s))) {
	case StrategyTimestamp:
		return StrategyTimestamp, nil
	case StrategyDBWins:
		return StrategyDBWins, nil
	case StrategyRemoteWins:
		return StrategyRemoteWins, nil
	case StrategyManual:
		return StrategyManual, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}

// Resolver resolves record and field conflicts.
type Resolver struct {
	policy FieldPolicy
}

// NewResolver creates a Resolver using the given field policy. A nil policy
// falls back to DefaultFieldPolicy.
func NewResolver(policy FieldPolicy) *Resolver {
	if policy == nil {
		policy = DefaultFieldPolicy()
	}
	return &Resolver{policy: policy.clone()}
}

// Resolve decides between the local and remote versions of a record.
// The record values are not inspected by the built-in strategies; they are part
// of the contract so callers can log or queue them for review.
func (r *Resolver) Resolve(
	dbRecord, remoteRecord any,
	dbUpdatedAt, remoteUpdatedAt time.Time,
	strategy Strategy,
) (Resolution, error) {
	switch strategy {
	case StrategyTimestamp:
		if dbUpdatedAt.After(remoteUpdatedAt) {
			return UseDB, nil
		}
		return UseRemote, nil
	case StrategyDBWins:
		return UseDB, nil
	case StrategyRemoteWins:
		return UseRemote, nil
	case StrategyManual:
		return ManualReview, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
}

// ResolveField returns the value selected by the field policy along with the side it came from.
func (r *Resolver) ResolveField(field string, dbValue, remoteValue any) (any, Resolution) {
	if r.policy.For(field) == SideRemote {
		return remoteValue, UseRemote
	}
	return dbValue, UseDB
}

// FieldValues pairs the local and remote value of one field.
type FieldValues struct {
	DB     any
	Remote any
}

// MergeFields resolves every field independently and returns the chosen values.
func (r *Resolver) MergeFields(fields map[string]FieldValues) map[string]any {
	merged := make(map[string]any, len(fields))
	for name, v := range fields {
		merged[name], _ = r.ResolveField(name, v.DB, v.Remote)
	}
	return merged
}

// Policy returns a copy of the field policy in use.
func (r *Resolver) Policy() FieldPolicy {
	return r.policy.clone()
}
