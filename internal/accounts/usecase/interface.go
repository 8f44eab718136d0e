// Package usecase manages marketplace accounts and hands out decrypted access tokens.
package usecase

import (
	"context"

	"github.com/google/uuid"

	accountsDomain "github.com/allisson/marketsync/internal/accounts/domain"
)

// AccountRepository defines the interface for Account persistence operations.
type AccountRepository interface {
	Create(ctx context.Context, account *accountsDomain.Account) error
	Get(ctx context.Context, id uuid.UUID) (*accountsDomain.Account, error)
	ListActive(ctx context.Context) ([]*accountsDomain.Account, error)
}

// AccountUseCase defines account management and credential access.
type AccountUseCase interface {
	// Create stores a new active account with its access token encrypted.
	Create(ctx context.Context, userID uuid.UUID, name, accessToken string) (*accountsDomain.Account, error)
	Get(ctx context.Context, id uuid.UUID) (*accountsDomain.Account, error)
	ListActive(ctx context.Context) ([]*accountsDomain.Account, error)
	// AccessToken returns the plaintext access token of an active account.
	AccessToken(ctx context.Context, id uuid.UUID) (string, error)
}
