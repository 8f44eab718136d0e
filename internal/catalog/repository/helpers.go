// Package repository implements catalog persistence for PostgreSQL and MySQL.
package repository

import (
	"database/sql"
	"strings"

	apperrors "github.com/allisson/marketsync/internal/errors"
)

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// decimalOrZero keeps NUMERIC/DECIMAL columns writable when the marketplace sent no amount.
func decimalOrZero(amount string) string {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return "0"
	}
	return amount
}

// changedRows reports whether the statement touched at least one row.
func changedRows(result sql.Result) (bool, error) {
	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to read affected rows")
	}
	return affected > 0, nil
}

// inSyncCondition matches products whose last change has already been pushed.
// Products outside it carry local edits the next push must still select.
const inSyncCondition = `last_synced_at IS NOT NULL AND updated_at <= last_synced_at`
