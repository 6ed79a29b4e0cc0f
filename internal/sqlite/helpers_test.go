package sqlite

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/shelter/pkg/types"
)

var testHashParams = types.HashParams{Time: 1, Memory: 64, Threads: 1}

func testConfig(t *testing.T) types.Config {
	t.Helper()
	return types.Config{
		Backend: types.BackendSQLite,
		DataDir: t.TempDir(),
		Hash:    testHashParams,
	}
}

func setupBackend(t *testing.T, opts ...BackendOption) *Backend {
	t.Helper()
	b := NewBackend(opts...)
	require.NoError(t, b.Attach(testConfig(t)))
	t.Cleanup(func() { b.Detach() })
	return b
}

// setupReferenceBackend attaches a fresh backend populated from
// testdata/reference.
func setupReferenceBackend(t *testing.T) *Backend {
	t.Helper()
	cfg := testConfig(t)
	cfg.ReferenceDir = "testdata/reference"
	b := NewBackend()
	require.NoError(t, b.Attach(cfg))
	t.Cleanup(func() { b.Detach() })
	return b
}

// load bulk-loads csv into table and fails the test on error.
func load(t *testing.T, b *Backend, table, csv string) {
	t.Helper()
	_, err := b.BulkLoad(context.Background(), table, strings.NewReader(csv))
	require.NoError(t, err)
}

func roomOccupancy(t *testing.T, b *Backend, id int64) int {
	t.Helper()
	var n int
	require.NoError(t, b.db.QueryRow("SELECT occupancy FROM room WHERE id = ?", id).Scan(&n))
	return n
}

func countRows(t *testing.T, b *Backend, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, b.db.QueryRow(query, args...).Scan(&n))
	return n
}

func catIntake(name string) types.Animal {
	return types.Animal{Name: name, Department: types.DepartmentCats, Sex: types.SexFemale}
}

// removeTrigger drops a cross-table trigger so a test can store rows the
// schema would otherwise reject.
func removeTrigger(t *testing.T, b *Backend, name string) {
	t.Helper()
	_, err := b.db.Exec("DROP TRIGGER " + name)
	require.NoError(t, err)
}
