// Package domain defines marketplace seller accounts and their errors.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/allisson/marketsync/internal/errors"
)

// Account is a marketplace seller account owned by a user. The access token is
// stored encrypted with the configured KMS keeper.
type Account struct {
	ID                   uuid.UUID
	UserID               uuid.UUID
	Name                 string
	EncryptedAccessToken []byte
	Active               bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Account-specific errors.
var (
	// ErrAccountNotFound indicates the account does not exist.
	ErrAccountNotFound = errors.Wrap(errors.ErrNotFound, "account not found")

	// ErrAccountInactive indicates the account exists but may not be used.
	ErrAccountInactive = errors.Wrap(errors.ErrForbidden, "account is inactive")

	// ErrNameRequired indicates the account name is missing.
	ErrNameRequired = errors.Wrap(errors.ErrInvalidInput, "account name is required")

	// ErrTokenRequired indicates the access token is missing.
	ErrTokenRequired = errors.Wrap(errors.ErrInvalidInput, "access token is required")
)
