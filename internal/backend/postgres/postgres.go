// Package postgres implements store.Store on a PostgreSQL table through gorm.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/mesh-intelligence/larder/internal/logging"
	"github.com/mesh-intelligence/larder/pkg/store"
	"github.com/mesh-intelligence/larder/pkg/types"
)

// loadBatch is the number of rows inserted per statement by LoadAll.
const loadBatch = 500

// Entry is one key-value row.
type Entry struct {
	Key   string `gorm:"primaryKey;column:key"`
	Value string `gorm:"column:value;not null"`
}

// TableName pins the table name.
func (Entry) TableName() string { return "larder_entries" }

var _ store.Store = (*Backend)(nil)

// Backend stores entries in the larder_entries table.
type Backend struct {
	mu     sync.RWMutex
	closed bool
	ns     store.Namespace
	db     *gorm.DB
	logger *zap.Logger
}

// Open connects to dsn and migrates the entries table.
func Open(ctx context.Context, cfg types.PostgresConfig, prefix string, zlog *zap.Logger) (*Backend, error) {
	zlog = logging.OrNop(zlog)
	gormLogger := logger.New(
		zap.NewStdLog(zlog),
		logger.Config{
			SlowThreshold:             300 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		TranslateError: true,
		Logger:         gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.WithContext(ctx).AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	zlog.Debug("postgres store opened")
	return &Backend{
		ns:     store.Namespace{Prefix: prefix},
		db:     db,
		logger: zlog,
	}, nil
}

func upsert() clause.OnConflict {
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}
}

// Write stores value at key.
func (b *Backend) Write(ctx context.Context, key, value string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return types.ErrStoreClosed
	}
	err := b.db.WithContext(ctx).Clauses(upsert()).Create(&Entry{Key: b.ns.Key(key), Value: value}).Error
	if err != nil {
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
	var e Entry
	err := b.db.WithContext(ctx).Take(&e, "key = ?", b.ns.Key(key)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", key, err)
	}
	return e.Value, true, nil
}

// Remove deletes key.
func (b *Backend) Remove(ctx context.Context, key string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return types.ErrStoreClosed
	}
	if err := b.db.WithContext(ctx).Delete(&Entry{}, "key = ?", b.ns.Key(key)).Error; err != nil {
		return fmt.Errorf("removing %s: %w", key, err)
	}
	return nil
}

// DumpAll returns every row whose key starts with the namespace prefix.
func (b *Backend) DumpAll(ctx context.Context) (store.Dump, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, types.ErrStoreClosed
	}
	var entries []Entry
	if err := b.db.WithContext(ctx).Where("starts_with(key, ?)", b.ns.Prefix).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("dumping entries: %w", err)
	}
	dump := make(store.Dump, len(entries))
	for _, e := range entries {
		dump[e.Key] = e.Value
	}
	return dump, nil
}

// LoadAll restores the namespaced entries of dump in one transaction.
func (b *Backend) LoadAll(ctx context.Context, dump store.Dump) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return types.ErrStoreClosed
	}
	loaded := b.ns.Filter(dump)
	if len(loaded) == 0 {
		return nil
	}
	entries := make([]Entry, 0, len(loaded))
	for k, v := range loaded {
		entries = append(entries, Entry{Key: k, Value: v})
	}
	err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(upsert()).CreateInBatches(entries, loadBatch).Error
	})
	if err != nil {
		return fmt.Errorf("loading dump: %w", err)
	}
	b.logger.Debug("postgres store loaded", zap.Int("keys", len(loaded)), zap.Int("skipped", len(dump)-len(loaded)))
	return nil
}

// Close closes the underlying connection pool. Close is idempotent.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
