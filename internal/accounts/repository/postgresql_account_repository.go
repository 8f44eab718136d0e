// Package repository implements account persistence for PostgreSQL and MySQL.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	accountsDomain "github.com/allisson/marketsync/internal/accounts/domain"
	"github.com/allisson/marketsync/internal/database"
	apperrors "github.com/allisson/marketsync/internal/errors"
)

// PostgreSQLAccountRepository implements Account persistence for PostgreSQL databases.
type PostgreSQLAccountRepository struct {
	db *sql.DB
}

// Create inserts a new account.
func (p *PostgreSQLAccountRepository) Create(ctx context.Context, account *accountsDomain.Account) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO accounts (id, user_id, name, encrypted_access_token, active, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := querier.ExecContext(
		ctx,
		query,
		account.ID,
		account.UserID,
		account.Name,
		account.EncryptedAccessToken,
		account.Active,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create account")
	}
	return nil
}

// Get retrieves an account by id.
func (p *PostgreSQLAccountRepository) Get(ctx context.Context, id uuid.UUID) (*accountsDomain.Account, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, user_id, name, encrypted_access_token, active, created_at, updated_at
			  FROM accounts
			  WHERE id = $1`

	var account accountsDomain.Account
	err := querier.QueryRowContext(ctx, query, id).Scan(
		&account.ID,
		&account.UserID,
		&account.Name,
		&account.EncryptedAccessToken,
		&account.Active,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, accountsDomain.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get account")
	}
	return &account, nil
}

// ListActive returns every active account ordered by creation time.
func (p *PostgreSQLAccountRepository) ListActive(ctx context.Context) ([]*accountsDomain.Account, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, user_id, name, encrypted_access_token, active, created_at, updated_at
			  FROM accounts
			  WHERE active = TRUE
			  ORDER BY created_at ASC`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list accounts")
	}
	defer rows.Close() //nolint:errcheck

	var accounts []*accountsDomain.Account
	for rows.Next() {
		var account accountsDomain.Account
		if err := rows.Scan(
			&account.ID,
			&account.UserID,
			&account.Name,
			&account.EncryptedAccessToken,
			&account.Active,
			&account.CreatedAt,
			&account.UpdatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan account")
		}
		accounts = append(accounts, &account)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate accounts")
	}
	return accounts, nil
}

// NewPostgreSQLAccountRepository creates a new PostgreSQL Account repository instance.
func NewPostgreSQLAccountRepository(db *sql.DB) *PostgreSQLAccountRepository {
	return &PostgreSQLAccountRepository{db: db}
}
