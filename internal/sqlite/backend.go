package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/shelter/internal/password"
	"github.com/mesh-intelligence/shelter/pkg/types"
)

// dbFileName is the database file created inside DataDir.
const dbFileName = "shelter.db"

// Backend implements types.Shelter on a single embedded SQLite database.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	tables   map[string]*Table
	hasher   *password.Hasher

	logger       *slog.Logger
	promRegistry prometheus.Registerer
	metrics      *backendMetrics
}

var _ types.Shelter = (*Backend)(nil)

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend(opts ...BackendOption) *Backend {
	b := &Backend{
		tables: make(map[string]*Table),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	b.metrics = newBackendMetrics(b.promRegistry)
	return b
}

// Attach opens the database in config.DataDir, creating the directory and
// the schema when missing. A freshly created schema is populated from
// config.ReferenceDir when one is set.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	db, err := sql.Open("sqlite", dsn(filepath.Join(dataDir, dbFileName), config))
	if err != nil {
		return storageErr("opening database", err)
	}

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return storageErr("opening database", err)
	}

	b.db = db
	b.config = config
	b.hasher = password.New(config.GetHashParams())
	b.tables = newTables(b.hasher)

	empty, err := b.schemaEmpty(ctx)
	if err != nil {
		b.closeLocked()
		return err
	}
	if empty {
		b.logger.Info("creating schema", slog.String("data_dir", dataDir))
		if err := b.setupLocked(ctx, config.ReferenceDir); err != nil {
			b.closeLocked()
			return err
		}
	}

	b.attached = true
	return nil
}

// Detach closes the database. After Detach, all operations return
// ErrShelterDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	b.attached = false
	return b.closeLocked()
}

func (b *Backend) closeLocked() error {
	b.tables = make(map[string]*Table)
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}

// GetTable returns the record table with the given name.
func (b *Backend) GetTable(name string) (*Table, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrShelterDetached
	}
	t, ok := b.tables[name]
	if !ok {
		return nil, types.ErrTableNotFound
	}
	return t, nil
}

// dsn builds the modernc connection string. Every connection enforces
// foreign keys and waits for the write lock, and every transaction starts
// IMMEDIATE so the capacity check and increment never interleave with
// another writer.
func dsn(path string, config types.Config) string {
	opts := fmt.Sprintf(
		"_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_txlock=immediate",
		config.GetBusyTimeout().Milliseconds(),
	)
	return fmt.Sprintf("file:%s?%s", path, opts)
}
