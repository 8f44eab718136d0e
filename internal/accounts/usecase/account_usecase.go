package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	accountsDomain "github.com/allisson/marketsync/internal/accounts/domain"
	"github.com/allisson/marketsync/internal/accounts/service"
	apperrors "github.com/allisson/marketsync/internal/errors"
)

type accountUseCase struct {
	accountRepo AccountRepository
	keeper      service.Keeper
}

func (a *accountUseCase) Create(
	ctx context.Context,
	userID uuid.UUID,
	name, accessToken string,
) (*accountsDomain.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, accountsDomain.ErrNameRequired
	}
	if strings.TrimSpace(accessToken) == "" {
		return nil, accountsDomain.ErrTokenRequired
	}

	ciphertext, err := a.keeper.Encrypt(ctx, []byte(accessToken))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to encrypt access token")
	}

	now := time.Now().UTC()
	account := &accountsDomain.Account{
		ID:                   uuid.Must(uuid.NewV7()),
		UserID:               userID,
		Name:                 name,
		EncryptedAccessToken: ciphertext,
		Active:               true,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := a.accountRepo.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (a *accountUseCase) Get(ctx context.Context, id uuid.UUID) (*accountsDomain.Account, error) {
	return a.accountRepo.Get(ctx, id)
}

func (a *accountUseCase) ListActive(ctx context.Context) ([]*accountsDomain.Account, error) {
	return a.accountRepo.ListActive(ctx)
}

func (a *accountUseCase) AccessToken(ctx context.Context, id uuid.UUID) (string, error) {
	account, err := a.accountRepo.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if !account.Active {
		return "", accountsDomain.ErrAccountInactive
	}

	plaintext, err := a.keeper.Decrypt(ctx, account.EncryptedAccessToken)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to decrypt access token")
	}
	return string(plaintext), nil
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(accountRepo AccountRepository, keeper service.Keeper) AccountUseCase {
	return &accountUseCase{
		accountRepo: accountRepo,
		keeper:      keeper,
	}
}
