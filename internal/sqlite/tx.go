// This file implements transaction scoping and storage error classification.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mesh-intelligence/shelter/pkg/types"
)

// withTx runs fn inside one transaction on the attached database. The
// transaction commits only if fn returns nil and is rolled back on every
// other path. Transactions begin IMMEDIATE (see dsn), so concurrent writers
// queue on the database lock.
func (b *Backend) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return types.ErrShelterDetached
	}

	logger := b.logger.With(slog.String("op", op), slog.String("op_id", newOperationID()))
	start := time.Now()
	defer func() { b.metrics.observeTx(op, time.Since(start)) }()

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Warn("begin failed", slog.String("error", err.Error()))
		return storageErr("beginning "+op, err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		if errors.Is(err, types.ErrStorageFailure) {
			logger.Warn("rolled back", slog.String("error", err.Error()))
		} else {
			logger.Info("rejected", slog.String("error", err.Error()))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		logger.Warn("commit failed", slog.String("error", err.Error()))
		return storageErr("committing "+op, err)
	}
	logger.Debug("committed", slog.Duration("elapsed", time.Since(start)))
	return nil
}

// storageErr tags err as a storage failure while keeping the driver error
// reachable through errors.As.
func storageErr(action string, err error) error {
	return fmt.Errorf("%w: %s: %w", types.ErrStorageFailure, action, err)
}

// newOperationID returns a UUID v7 used to correlate log lines of one
// operation.
func newOperationID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

func sqliteCode(err error) (int, bool) {
	var se *msqlite.Error
	if errors.As(err, &se) {
		return se.Code(), true
	}
	return 0, false
}

// isUniqueViolation reports whether err comes from a UNIQUE or PRIMARY KEY
// constraint.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := sqliteCode(err); ok {
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isConstraintViolation reports whether err comes from any constraint,
// including CHECK, FOREIGN KEY, and trigger aborts.
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := sqliteCode(err); ok {
		return code&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	return strings.Contains(err.Error(), "constraint failed")
}
