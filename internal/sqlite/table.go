// This file implements the generic record table: schema lifecycle,
// parameterized single-row insert, and CSV bulk load.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mesh-intelligence/shelter/pkg/types"
)

// querier is the storage session an operation runs against: the shared
// pool or a single transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// ColumnMapper translates a CSV header into column names, one per header
// field, in the order values appear in each record.
type ColumnMapper func(header []string) ([]string, error)

// rowHook rewrites rows before they reach the database. Columns is applied
// once per statement and Values once per row, so a bulk load can keep a
// single prepared statement.
type rowHook interface {
	Columns(cols []string) ([]string, error)
	Values(cols []string, vals []any) ([]any, error)
}

// passthrough is the hook for tables that store rows unchanged.
type passthrough struct{}

func (passthrough) Columns(cols []string) ([]string, error) { return cols, nil }
func (passthrough) Values(_ []string, vals []any) ([]any, error) { return vals, nil }

// Table is one entity table. Tables differ only in DDL, declared columns,
// and insertion hook.
type Table struct {
	name    string
	ddl     []string
	columns map[string]bool
	hook    rowHook
}

func newTable(name string, columns []string, hook rowHook, ddl ...string) *Table {
	if hook == nil {
		hook = passthrough{}
	}
	cols := make(map[string]bool, len(columns))
	for _, c := range columns {
		cols[c] = true
	}
	return &Table{name: name, ddl: ddl, columns: cols, hook: hook}
}

// Name returns the SQL table name.
func (t *Table) Name() string { return t.name }

// Create executes the table DDL, then installs the cross-table triggers
// that now have all their tables. The caller drops any previous table first.
func (t *Table) Create(ctx context.Context, q querier) error {
	for _, stmt := range t.ddl {
		if _, err := q.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating table %s: %w", t.name, err)
		}
	}
	return createGuards(ctx, q, t.name)
}

// Drop removes the table if present, together with every trigger that
// reads it.
func (t *Table) Drop(ctx context.Context, q querier) error {
	if err := dropGuards(ctx, q, t.name); err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", t.name)); err != nil {
		return fmt.Errorf("dropping table %s: %w", t.name, err)
	}
	return nil
}

// Clear removes all rows and keeps the schema.
func (t *Table) Clear(ctx context.Context, q querier) error {
	if _, err := q.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", t.name)); err != nil {
		return fmt.Errorf("clearing table %s: %w", t.name, err)
	}
	return nil
}

// Insert stores one row built from exactly the given columns and returns the
// generated row id. Values are bound as parameters, never formatted into
// the statement.
func (t *Table) Insert(ctx context.Context, q querier, cols []string, vals []any) (int64, error) {
	if len(cols) == 0 || len(cols) != len(vals) {
		return 0, fmt.Errorf("%w: %d columns, %d values", types.ErrInvalidData, len(cols), len(vals))
	}
	outCols, err := t.hook.Columns(cols)
	if err != nil {
		return 0, err
	}
	outVals, err := t.hook.Values(cols, vals)
	if err != nil {
		return 0, err
	}
	insertSQL, err := t.insertSQL(outCols)
	if err != nil {
		return 0, err
	}

	res, err := q.ExecContext(ctx, insertSQL, outVals...)
	if err != nil {
		return 0, fmt.Errorf("inserting into %s: %w", t.name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading id from %s: %w", t.name, err)
	}
	return id, nil
}

// BulkLoad reads a header row and then one record per line from r and
// inserts every record through a single prepared statement. Empty fields
// become NULL. A nil mapper lower-cases and trims header names. An empty
// source loads nothing. The caller supplies the transaction.
func (t *Table) BulkLoad(ctx context.Context, q querier, r io.Reader, mapper ColumnMapper) (int, error) {
	if mapper == nil {
		mapper = defaultMapper
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: reading %s header: %w", types.ErrInvalidData, t.name, err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	cols, err := mapper(header)
	if err != nil {
		return 0, fmt.Errorf("mapping %s header: %w", t.name, err)
	}
	if len(cols) != len(header) {
		return 0, fmt.Errorf("%w: mapper returned %d columns for %d header fields", types.ErrInvalidData, len(cols), len(header))
	}
	outCols, err := t.hook.Columns(cols)
	if err != nil {
		return 0, err
	}
	insertSQL, err := t.insertSQL(outCols)
	if err != nil {
		return 0, err
	}

	stmt, err := q.PrepareContext(ctx, insertSQL)
	if err != nil {
		return 0, fmt.Errorf("preparing insert for %s: %w", t.name, err)
	}
	defer stmt.Close()

	n := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return n, fmt.Errorf("%w: reading %s record: %w", types.ErrInvalidData, t.name, err)
		}

		vals := make([]any, len(record))
		for i, field := range record {
			if field == "" {
				vals[i] = nil
				continue
			}
			vals[i] = field
		}
		vals, err = t.hook.Values(cols, vals)
		if err != nil {
			return n, fmt.Errorf("%s record %d: %w", t.name, n+1, err)
		}
		if _, err := stmt.ExecContext(ctx, vals...); err != nil {
			return n, fmt.Errorf("loading %s record %d: %w", t.name, n+1, err)
		}
		n++
	}
	return n, nil
}

// insertSQL builds the INSERT statement for cols. Column names must be
// declared for this table since they are placed in the SQL text.
func (t *Table) insertSQL(cols []string) (string, error) {
	placeholders := make([]string, len(cols))
	for i, c := range cols {
		if !t.columns[c] {
			return "", fmt.Errorf("%w: %s.%s", types.ErrUnknownColumn, t.name, c)
		}
		placeholders[i] = "?"
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		t.name,
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
	), nil
}

func defaultMapper(header []string) ([]string, error) {
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return cols, nil
}
