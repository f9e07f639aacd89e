// package repositories provides the session store used by the authorization flow.
package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/spx/internal/shared"
)

// Open opens the database at path and applies the embedded migrations.
//
// Tables left behind by an earlier process are dropped first, so every open starts an
// empty session even when path names a file.
func Open(path string) (*sql.DB, error) {
	db, err := shared.NewDatabase(path)
	if err != nil {
		return nil, err
	}

	if err := shared.RollbackMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reset session tables: %w", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// notFound maps [sql.ErrNoRows] to target and wraps anything else.
func notFound(err error, target error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return target
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
