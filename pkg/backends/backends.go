// Package backends opens the store.Store selected by a types.Config while
// keeping the backend implementations internal.
//
// Example:
//
//	st, err := backends.Open(ctx, types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".larder-db",
//	}, logger)
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
package backends

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/larder/internal/backend/memcache"
	"github.com/mesh-intelligence/larder/internal/backend/memory"
	"github.com/mesh-intelligence/larder/internal/backend/postgres"
	"github.com/mesh-intelligence/larder/internal/backend/redis"
	"github.com/mesh-intelligence/larder/internal/backend/sqlite"
	"github.com/mesh-intelligence/larder/internal/logging"
	"github.com/mesh-intelligence/larder/pkg/store"
	"github.com/mesh-intelligence/larder/pkg/types"
)

// Open validates cfg and opens the configured backend.
func Open(ctx context.Context, cfg types.Config, logger *zap.Logger) (store.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger = logging.OrNop(logger).With(zap.String("backend", cfg.Backend))
	prefix := cfg.KeyPrefix()

	var (
		st  store.Store
		err error
	)
	switch cfg.Backend {
	case types.BackendMemory:
		st = memory.New(prefix, cfg.Memory.TTL, logger)
	case types.BackendSQLite:
		st, err = sqlite.Open(ctx, cfg.DataDir, prefix, logger)
	case types.BackendRedis:
		st, err = redis.Open(ctx, cfg.Redis, prefix, logger)
	case types.BackendMemcache:
		st, err = memcache.Open(ctx, cfg.Memcache, prefix, logger)
	case types.BackendPostgres:
		st, err = postgres.Open(ctx, cfg.Postgres, prefix, logger)
	default:
		return nil, types.ErrBackendUnknown
	}
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", cfg.Backend, err)
	}
	return st, nil
}
