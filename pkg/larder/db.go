package larder

import (
	"context"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/larder/internal/facade"
	"github.com/mesh-intelligence/larder/internal/logging"
	"github.com/mesh-intelligence/larder/pkg/schema"
	"github.com/mesh-intelligence/larder/pkg/store"
)

// DB binds a schema registry to a store.
type DB struct {
	reg    *schema.Registry
	fc     *facade.Facade
	logger *zap.Logger
}

// Option configures a DB.
type Option func(*DB)

// WithLogger sets the logger used for cascade and index debug output.
func WithLogger(logger *zap.Logger) Option {
	return func(db *DB) { db.logger = logger }
}

// New creates a DB over st. The registry must hold every model the DB will
// be asked about; it is not copied.
func New(st store.Store, reg *schema.Registry, opts ...Option) *DB {
	db := &DB{reg: reg}
	for _, opt := range opts {
		opt(db)
	}
	db.logger = logging.OrNop(db.logger)
	db.fc = facade.New(st, reg, db.logger.Named("facade"))
	return db
}

// Registry returns the registry the DB was created with.
func (db *DB) Registry() *schema.Registry { return db.reg }

// Store returns the underlying store.
func (db *DB) Store() store.Store { return db.fc.Store() }

// Repository returns the repository for entityType.
func (db *DB) Repository(entityType string) (*Repository, error) {
	m, err := db.reg.For(entityType)
	if err != nil {
		return nil, err
	}
	return &Repository{db: db, model: m}, nil
}

// RepositoryForTable returns the repository for the entity stored in table.
func (db *DB) RepositoryForTable(table string) (*Repository, error) {
	m, err := db.reg.ForTable(table)
	if err != nil {
		return nil, err
	}
	return &Repository{db: db, model: m}, nil
}

// Dump returns every stored key and its raw value.
func (db *DB) Dump(ctx context.Context) (store.Dump, error) {
	return db.fc.Store().DumpAll(ctx)
}

// Load restores a dump produced by Dump.
func (db *DB) Load(ctx context.Context, d store.Dump) error {
	return db.fc.Store().LoadAll(ctx, d)
}

// Close closes the underlying store.
func (db *DB) Close() error {
	return db.fc.Store().Close()
}
