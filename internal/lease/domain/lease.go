// Package domain defines named leases that keep a run exclusive across engine instances.
package domain

import (
	"time"

	"github.com/allisson/marketsync/internal/errors"
)

// Lease is a named lock held until ExpiresAt unless renewed.
type Lease struct {
	Name       string
	Holder     string
	ExpiresAt  time.Time
	AcquiredAt time.Time
}

// Lease errors.
var (
	// ErrRunInProgress indicates another holder owns the lease.
	ErrRunInProgress = errors.Wrap(errors.ErrLocked, "run already in progress")

	// ErrLeaseLost indicates the lease expired or was taken over during a run.
	ErrLeaseLost = errors.Wrap(errors.ErrLocked, "lease lost")
)
