// This file implements JSONL export: one file per table, written atomically
// from a single consistent snapshot.
package sqlite

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/shelter/pkg/types"
)

// Export writes every table to dir as <table>.jsonl, one JSON object per
// row keyed by column name, and returns the row count per table. All tables
// are read inside one transaction.
func (b *Backend) Export(ctx context.Context, dir string) (map[string]int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(types.StandardTableNames))
	err := b.withTx(ctx, "export", func(tx *sql.Tx) error {
		for _, name := range types.StandardTableNames {
			records, err := dumpTable(ctx, tx, name)
			if err != nil {
				return err
			}
			if err := writeJSONL(filepath.Join(dir, name+".jsonl"), records); err != nil {
				return err
			}
			counts[name] = len(records)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// dumpTable reads all rows of a table ordered by rowid and encodes each as
// a JSON object.
func dumpTable(ctx context.Context, tx *sql.Tx, name string) ([]json.RawMessage, error) {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s ORDER BY rowid", name))
	if err != nil {
		return nil, storageErr("exporting "+name, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, storageErr("exporting "+name, err)
	}

	var records []json.RawMessage
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, storageErr("exporting "+name, err)
		}
		obj := make(map[string]any, len(cols))
		for i, c := range cols {
			if raw, ok := vals[i].([]byte); ok {
				obj[c] = string(raw)
				continue
			}
			obj[c] = vals[i]
		}
		rec, err := json.Marshal(obj)
		if err != nil {
			return nil, fmt.Errorf("encoding %s row: %w", name, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("exporting "+name, err)
	}
	return records, nil
}

// writeJSONL atomically writes records to a JSONL file using the temp-file,
// fsync, rename pattern.
func writeJSONL(path string, records []json.RawMessage) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	fail := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	w := bufio.NewWriter(tmp)
	for _, rec := range records {
		if _, err := w.Write(rec); err != nil {
			return fail(fmt.Errorf("writing record: %w", err))
		}
		if err := w.WriteByte('\n'); err != nil {
			return fail(fmt.Errorf("writing newline: %w", err))
		}
	}
	if err := w.Flush(); err != nil {
		return fail(fmt.Errorf("flushing buffer: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("syncing temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
