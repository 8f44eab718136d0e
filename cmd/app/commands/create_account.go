package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	accountsUseCase "github.com/allisson/marketsync/internal/accounts/usecase"
)

// RunCreateAccount stores a marketplace account with its access token encrypted
// by the configured KMS key. The token is never printed back.
//
// Requirements: Database must be migrated and KMS_KEY_URI must be set.
func RunCreateAccount(
	ctx context.Context,
	useCase accountsUseCase.AccountUseCase,
	logger *slog.Logger,
	w io.Writer,
	userID, name, accessToken string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	user, err := uuid.Parse(userID)
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}

	logger.Info("creating account", slog.String("name", name))

	account, err := useCase.Create(ctx, user, name, accessToken)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	if format == "json" {
		return writeJSON(w, map[string]any{
			"id":         account.ID.String(),
			"user_id":    account.UserID.String(),
			"name":       account.Name,
			"active":     account.Active,
			"created_at": account.CreatedAt,
		})
	}

	_, _ = fmt.Fprintf(w, "Account created successfully\nID: %s\nName: %s\n", account.ID, account.Name)
	return nil
}
