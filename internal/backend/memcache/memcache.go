// Package memcache implements store.Store on memcached. Memcached cannot list
// its keys, so the backend keeps a manifest of every key it wrote under a
// reserved key and updates it with compare-and-swap.
package memcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	mc "github.com/bradfitz/gomemcache/memcache"
	"github.com/zeebo/xxh3"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/larder/internal/logging"
	"github.com/mesh-intelligence/larder/pkg/store"
	"github.com/mesh-intelligence/larder/pkg/types"
)

const (
	// maxKeyLen is memcached's key length limit.
	maxKeyLen = 250

	// manifestKey holds the JSON list of prefixed keys written by the backend.
	manifestKey = "::manifest::"

	// casRetries bounds manifest compare-and-swap attempts.
	casRetries = 16
)

// ErrManifestContention is returned when the manifest could not be updated
// after repeated compare-and-swap conflicts.
var ErrManifestContention = errors.New("memcache manifest contention")

var _ store.Store = (*Backend)(nil)

// Backend talks to a set of memcached servers.
type Backend struct {
	mu     sync.RWMutex
	closed bool
	ns     store.Namespace
	client *mc.Client
	logger *zap.Logger
}

// Open connects to servers and checks that they answer.
func Open(ctx context.Context, cfg types.MemcacheConfig, prefix string, logger *zap.Logger) (*Backend, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	client := mc.New(cfg.Servers...)
	if err := client.Ping(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping memcache %v: %w", cfg.Servers, err)
	}
	logger = logging.OrNop(logger)
	logger.Debug("memcache store opened", zap.Strings("servers", cfg.Servers))
	return New(client, prefix, logger), nil
}

// New wraps an existing client.
func New(client *mc.Client, prefix string, logger *zap.Logger) *Backend {
	return &Backend{
		ns:     store.Namespace{Prefix: prefix},
		client: client,
		logger: logging.OrNop(logger),
	}
}

func (b *Backend) check(ctx context.Context) error {
	if b.closed {
		return types.ErrStoreClosed
	}
	return ctx.Err()
}

// itemKey maps a prefixed key to a legal memcached key. Keys that are too
// long or contain whitespace or control characters are replaced by a hash.
func (b *Backend) itemKey(full string) string {
	if len(full) <= maxKeyLen && legalKey(full) {
		return full
	}
	return fmt.Sprintf("%s#%016x", b.ns.Prefix, xxh3.HashString(full))
}

func legalKey(k string) bool {
	for i := 0; i < len(k); i++ {
		if k[i] <= ' ' || k[i] == 0x7f {
			return false
		}
	}
	return true
}

// Write stores value at key and records key in the manifest.
func (b *Backend) Write(ctx context.Context, key, value string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.check(ctx); err != nil {
		return err
	}
	full := b.ns.Key(key)
	if err := b.client.Set(&mc.Item{Key: b.itemKey(full), Value: []byte(value)}); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return b.updateManifest(func(keys []string) []string {
		if slices.Contains(keys, full) {
			return nil
		}
		return append(keys, full)
	})
}

// Read returns the value at key.
func (b *Backend) Read(ctx context.Context, key string) (string, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.check(ctx); err != nil {
		return "", false, err
	}
	item, err := b.client.Get(b.itemKey(b.ns.Key(key)))
	if errors.Is(err, mc.ErrCacheMiss) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", key, err)
	}
	return string(item.Value), true, nil
}

// Remove deletes key and drops it from the manifest.
func (b *Backend) Remove(ctx context.Context, key string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.check(ctx); err != nil {
		return err
	}
	full := b.ns.Key(key)
	if err := b.client.Delete(b.itemKey(full)); err != nil && !errors.Is(err, mc.ErrCacheMiss) {
		return fmt.Errorf("removing %s: %w", key, err)
	}
	return b.updateManifest(func(keys []string) []string {
		i := slices.Index(keys, full)
		if i < 0 {
			return nil
		}
		return slices.Delete(keys, i, i+1)
	})
}

// DumpAll fetches every key listed in the manifest. Keys evicted by
// memcached are missing from the dump.
func (b *Backend) DumpAll(ctx context.Context) (store.Dump, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.check(ctx); err != nil {
		return nil, err
	}
	keys, _, err := b.readManifest()
	if err != nil {
		return nil, err
	}

	byItem := make(map[string]string, len(keys))
	itemKeys := make([]string, 0, len(keys))
	for _, k := range keys {
		ik := b.itemKey(k)
		byItem[ik] = k
		itemKeys = append(itemKeys, ik)
	}
	items, err := b.client.GetMulti(itemKeys)
	if err != nil {
		return nil, fmt.Errorf("fetching values: %w", err)
	}

	dump := make(store.Dump, len(items))
	for ik, item := range items {
		dump[byItem[ik]] = string(item.Value)
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
		if err := b.client.Set(&mc.Item{Key: b.itemKey(k), Value: []byte(v)}); err != nil {
			return fmt.Errorf("loading %s: %w", k, err)
		}
	}
	err := b.updateManifest(func(keys []string) []string {
		changed := false
		for k := range loaded {
			if !slices.Contains(keys, k) {
				keys = append(keys, k)
				changed = true
			}
		}
		if !changed {
			return nil
		}
		return keys
	})
	if err != nil {
		return err
	}
	b.logger.Debug("memcache store loaded", zap.Int("keys", len(loaded)), zap.Int("skipped", len(dump)-len(loaded)))
	return nil
}

// Close closes idle connections. Close is idempotent.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.client.Close()
}

// readManifest returns the manifest keys and the item carrying them, which is
// nil when no manifest exists yet.
func (b *Backend) readManifest() ([]string, *mc.Item, error) {
	item, err := b.client.Get(b.ns.Key(manifestKey))
	if errors.Is(err, mc.ErrCacheMiss) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading manifest: %w", err)
	}
	var keys []string
	if err := json.Unmarshal(item.Value, &keys); err != nil {
		return nil, nil, fmt.Errorf("decoding manifest: %w", err)
	}
	return keys, item, nil
}

// updateManifest applies edit to the manifest. edit returns nil to leave the
// manifest unchanged.
func (b *Backend) updateManifest(edit func([]string) []string) error {
	for range casRetries {
		keys, item, err := b.readManifest()
		if err != nil {
			return err
		}
		next := edit(keys)
		if next == nil {
			return nil
		}
		raw, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encoding manifest: %w", err)
		}

		if item == nil {
			err = b.client.Add(&mc.Item{Key: b.ns.Key(manifestKey), Value: raw})
		} else {
			item.Value = raw
			err = b.client.CompareAndSwap(item)
		}
		switch {
		case err == nil:
			return nil
		case errors.Is(err, mc.ErrCASConflict), errors.Is(err, mc.ErrNotStored), errors.Is(err, mc.ErrCacheMiss):
			continue
		default:
			return fmt.Errorf("writing manifest: %w", err)
		}
	}
	return ErrManifestContention
}
