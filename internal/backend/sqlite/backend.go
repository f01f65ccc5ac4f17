// Package sqlite implements a durable store.Store on a local SQLite file.
// It plays the role of browser-local storage: entries survive restarts of
// the process that owns the data directory.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/larder/internal/logging"
	"github.com/mesh-intelligence/larder/pkg/store"
	"github.com/mesh-intelligence/larder/pkg/types"
)

// FileName is the database file created inside the data directory.
const FileName = "larder.db"

var _ store.Store = (*Backend)(nil)

// Backend stores entries in the entries table of a SQLite database.
type Backend struct {
	mu     sync.RWMutex
	closed bool
	ns     store.Namespace
	db     *sql.DB
	path   string
	logger *zap.Logger
}

// Open creates dataDir if needed, opens (or creates) the database file and
// ensures the schema exists. An empty dataDir means the working directory.
func Open(ctx context.Context, dataDir, prefix string, logger *zap.Logger) (*Backend, error) {
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	path := filepath.Join(dataDir, FileName)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// One connection keeps writes serialized on the file.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, createEntries); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	logger = logging.OrNop(logger)
	logger.Debug("sqlite store opened", zap.String("path", path))
	return &Backend{
		ns:     store.Namespace{Prefix: prefix},
		db:     db,
		path:   path,
		logger: logger,
	}, nil
}

// Path returns the database file path.
func (b *Backend) Path() string { return b.path }

// Write stores value at key.
func (b *Backend) Write(ctx context.Context, key, value string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return types.ErrStoreClosed
	}
	if _, err := b.db.ExecContext(ctx, upsertEntry, b.ns.Key(key), value); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// Read returns the value at key.
func (b *Backend) Read(ctx context.Context, key string) (string, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return "", false, types.ErrStoreClosed
	}
	var value string
	err := b.db.QueryRowContext(ctx, selectEntry, b.ns.Key(key)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", key, err)
	}
	return value, true, nil
}

// Remove deletes key.
func (b *Backend) Remove(ctx context.Context, key string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return types.ErrStoreClosed
	}
	if _, err := b.db.ExecContext(ctx, deleteEntry, b.ns.Key(key)); err != nil {
		return fmt.Errorf("removing %s: %w", key, err)
	}
	return nil
}

// DumpAll returns every entry whose key starts with the namespace prefix.
func (b *Backend) DumpAll(ctx context.Context) (store.Dump, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, types.ErrStoreClosed
	}
	rows, err := b.db.QueryContext(ctx, selectPrefix, len([]rune(b.ns.Prefix)), b.ns.Prefix)
	if err != nil {
		return nil, fmt.Errorf("dumping entries: %w", err)
	}
	defer rows.Close()

	dump := make(store.Dump)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		dump[k] = v
	}
	return dump, rows.Err()
}

// LoadAll restores the namespaced entries of dump in one transaction.
func (b *Backend) LoadAll(ctx context.Context, dump store.Dump) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return types.ErrStoreClosed
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertEntry)
	if err != nil {
		return fmt.Errorf("preparing load: %w", err)
	}
	defer stmt.Close()

	loaded := b.ns.Filter(dump)
	for k, v := range loaded {
		if _, err := stmt.ExecContext(ctx, k, v); err != nil {
			return fmt.Errorf("loading %s: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing load transaction: %w", err)
	}
	b.logger.Debug("sqlite store loaded", zap.Int("keys", len(loaded)), zap.Int("skipped", len(dump)-len(loaded)))
	return nil
}

// Close closes the database. Close is idempotent.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.db.Close()
}
