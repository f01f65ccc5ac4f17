// Package memory implements a session-scoped store.Store held in process
// memory. Entries optionally expire a fixed time after their last write.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/larder/internal/logging"
	"github.com/mesh-intelligence/larder/pkg/store"
	"github.com/mesh-intelligence/larder/pkg/types"
)

var _ store.Store = (*Backend)(nil)

// Backend keeps entries in a go-cache instance.
type Backend struct {
	mu     sync.RWMutex
	closed bool
	ns     store.Namespace
	cache  *cache.Cache
	logger *zap.Logger
}

// New creates an empty memory backend. A ttl of zero keeps entries until
// Close.
func New(prefix string, ttl time.Duration, logger *zap.Logger) *Backend {
	expiration := cache.NoExpiration
	var cleanup time.Duration
	if ttl > 0 {
		expiration = ttl
		cleanup = ttl
	}
	return &Backend{
		ns:     store.Namespace{Prefix: prefix},
		cache:  cache.New(expiration, cleanup),
		logger: logging.OrNop(logger),
	}
}

func (b *Backend) check(ctx context.Context) error {
	if b.closed {
		return types.ErrStoreClosed
	}
	return ctx.Err()
}

// Write stores value at key.
func (b *Backend) Write(ctx context.Context, key, value string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.check(ctx); err != nil {
		return err
	}
	b.cache.Set(b.ns.Key(key), value, cache.DefaultExpiration)
	return nil
}

// Read returns the value at key.
func (b *Backend) Read(ctx context.Context, key string) (string, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.check(ctx); err != nil {
		return "", false, err
	}
	v, ok := b.cache.Get(b.ns.Key(key))
	if !ok {
		return "", false, nil
	}
	s, ok := v.(string)
	return s, ok, nil
}

// Remove deletes key.
func (b *Backend) Remove(ctx context.Context, key string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.check(ctx); err != nil {
		return err
	}
	b.cache.Delete(b.ns.Key(key))
	return nil
}

// DumpAll returns every unexpired entry in the namespace.
func (b *Backend) DumpAll(ctx context.Context) (store.Dump, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.check(ctx); err != nil {
		return nil, err
	}
	dump := make(store.Dump)
	for k, item := range b.cache.Items() {
		if !b.ns.Owns(k) {
			continue
		}
		if s, ok := item.Object.(string); ok {
			dump[k] = s
		}
	}
	return dump, nil
}

// LoadAll restores the namespaced entries of dump.
func (b *Backend) LoadAll(ctx context.Context, dump store.Dump) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.check(ctx); err != nil {
		return err
	}
	loaded := b.ns.Filter(dump)
	for k, v := range loaded {
		b.cache.Set(k, v, cache.DefaultExpiration)
	}
	b.logger.Debug("memory store loaded", zap.Int("keys", len(loaded)), zap.Int("skipped", len(dump)-len(loaded)))
	return nil
}

// Close drops every entry. Close is idempotent.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.cache.Flush()
	b.closed = true
	return nil
}
