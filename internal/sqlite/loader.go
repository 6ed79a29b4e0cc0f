// This file implements schema setup and reference data loading.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/shelter/pkg/types"
)

// referenceFile returns the CSV file name holding reference rows for table.
func referenceFile(table string) string {
	return table + ".csv"
}

// schemaEmpty reports whether the database holds no user tables.
func (b *Backend) schemaEmpty(ctx context.Context) (bool, error) {
	var n int
	err := b.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'").Scan(&n)
	if err != nil {
		return false, storageErr("inspecting schema", err)
	}
	return n == 0, nil
}

// Setup drops every table, recreates the schema, and loads reference data
// from dir when dir is not empty. Setup is administrative: it takes the
// backend exclusively and runs in one transaction.
func (b *Backend) Setup(ctx context.Context, dir string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrShelterDetached
	}
	return b.setupLocked(ctx, dir)
}

func (b *Backend) setupLocked(ctx context.Context, dir string) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("beginning setup", err)
	}
	defer tx.Rollback()

	for i := len(types.StandardTableNames) - 1; i >= 0; i-- {
		if err := b.tables[types.StandardTableNames[i]].Drop(ctx, tx); err != nil {
			return storageErr("setup", err)
		}
	}
	for _, name := range types.StandardTableNames {
		if err := b.tables[name].Create(ctx, tx); err != nil {
			return storageErr("setup", err)
		}
	}
	if dir != "" {
		if err := b.loadReferenceData(ctx, tx, dir); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return storageErr("committing setup", err)
	}
	return nil
}

// loadReferenceData loads <table>.csv from dir for every table, in load
// order. Missing files are skipped.
func (b *Backend) loadReferenceData(ctx context.Context, q querier, dir string) error {
	for _, name := range types.StandardTableNames {
		path := filepath.Join(dir, referenceFile(name))
		f, err := os.Open(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("opening %s: %w", path, err)
		}
		n, err := b.tables[name].BulkLoad(ctx, q, f, nil)
		f.Close()
		if err != nil {
			return loadErr(err)
		}
		b.logger.Info("loaded reference data", slog.String("table", name), slog.Int("rows", n))
	}
	return nil
}

// BulkLoad inserts every CSV record from r into the named table in one
// transaction and returns the number of rows loaded. Nothing is kept if
// any record fails.
func (b *Backend) BulkLoad(ctx context.Context, table string, r io.Reader) (int, error) {
	var n int
	err := b.withTx(ctx, "bulk_load", func(tx *sql.Tx) error {
		t, ok := b.tables[table]
		if !ok {
			return types.ErrTableNotFound
		}
		var err error
		n, err = t.BulkLoad(ctx, tx, r, nil)
		if err != nil {
			return loadErr(err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// ClearAll deletes every row from every table and keeps the schema.
func (b *Backend) ClearAll(ctx context.Context) error {
	return b.withTx(ctx, "clear", func(tx *sql.Tx) error {
		for i := len(types.StandardTableNames) - 1; i >= 0; i-- {
			if err := b.tables[types.StandardTableNames[i]].Clear(ctx, tx); err != nil {
				return storageErr("clear", err)
			}
		}
		return nil
	})
}

// loadErr keeps input errors as they are, reports rows rejected by a
// constraint as invalid data, and marks the rest as storage failures.
func loadErr(err error) error {
	if errors.Is(err, types.ErrInvalidData) || errors.Is(err, types.ErrUnknownColumn) {
		return err
	}
	if isConstraintViolation(err) {
		return fmt.Errorf("%w: %w", types.ErrInvalidData, err)
	}
	return storageErr("bulk load", err)
}
