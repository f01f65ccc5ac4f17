// Package redis implements store.Store on a Redis server. Keys are plain
// Redis strings under the namespace prefix; DumpAll walks them with SCAN.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/larder/internal/logging"
	"github.com/mesh-intelligence/larder/pkg/store"
	"github.com/mesh-intelligence/larder/pkg/types"
)

// scanBatch is the COUNT hint passed to SCAN and the MGET batch size.
const scanBatch = 256

var _ store.Store = (*Backend)(nil)

// Backend talks to one Redis database.
type Backend struct {
	mu     sync.RWMutex
	closed bool
	ns     store.Namespace
	client *goredis.Client
	logger *zap.Logger
}

// NewClient builds a client for cfg without connecting.
func NewClient(cfg types.RedisConfig) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Open connects to the server described by cfg and pings it.
func Open(ctx context.Context, cfg types.RedisConfig, prefix string, logger *zap.Logger) (*Backend, error) {
	client := NewClient(cfg)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	logger = logging.OrNop(logger)
	logger.Debug("redis store opened", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	return New(client, prefix, logger), nil
}

// New wraps an existing client.
func New(client *goredis.Client, prefix string, logger *zap.Logger) *Backend {
	return &Backend{
		ns:     store.Namespace{Prefix: prefix},
		client: client,
		logger: logging.OrNop(logger),
	}
}

// Write stores value at key.
func (b *Backend) Write(ctx context.Context, key, value string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return types.ErrStoreClosed
	}
	if err := b.client.Set(ctx, b.ns.Key(key), value, 0).Err(); err != nil {
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
	v, err := b.client.Get(ctx, b.ns.Key(key)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", key, err)
	}
	return v, true, nil
}

// Remove deletes key.
func (b *Backend) Remove(ctx context.Context, key string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return types.ErrStoreClosed
	}
	if err := b.client.Del(ctx, b.ns.Key(key)).Err(); err != nil {
		return fmt.Errorf("removing %s: %w", key, err)
	}
	return nil
}

// DumpAll scans the namespace and fetches values in MGET batches.
func (b *Backend) DumpAll(ctx context.Context) (store.Dump, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, types.ErrStoreClosed
	}

	var keys []string
	iter := b.client.Scan(ctx, 0, globEscape(b.ns.Prefix)+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scanning keys: %w", err)
	}

	dump := make(store.Dump, len(keys))
	for start := 0; start < len(keys); start += scanBatch {
		end := min(start+scanBatch, len(keys))
		batch := keys[start:end]
		vals, err := b.client.MGet(ctx, batch...).Result()
		if err != nil {
			return nil, fmt.Errorf("fetching values: %w", err)
		}
		for i, v := range vals {
			// Keys removed between SCAN and MGET come back nil.
			if s, ok := v.(string); ok {
				dump[batch[i]] = s
			}
		}
	}
	return dump, nil
}

// LoadAll restores the namespaced entries of dump in one MULTI/EXEC block.
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
	_, err := b.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for k, v := range loaded {
			pipe.Set(ctx, k, v, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("loading dump: %w", err)
	}
	b.logger.Debug("redis store loaded", zap.Int("keys", len(loaded)), zap.Int("skipped", len(dump)-len(loaded)))
	return nil
}

// Close closes the client. Close is idempotent.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.client.Close()
}

// globEscape escapes the characters SCAN MATCH treats as patterns.
func globEscape(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
