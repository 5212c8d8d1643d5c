package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/openclaw/checkin-kiosk-go/internal/database"
)

// HandleNotFound turns sql.ErrNoRows into (nil, nil); lookups report a
// missing guest or event as a nil result.
func HandleNotFound[T any](result *T, err error) (*T, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// affectedOne reports whether an UPDATE matched exactly one row. Conditional
// updates use it to tell the winning caller from the others.
func affectedOne(result sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type queryer = database.DBTX
