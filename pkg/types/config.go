package types

import (
	"errors"
	"time"
)

// Config holds backend selection and parameters for backends.Open.
type Config struct {
	Backend string `json:"backend" yaml:"backend" mapstructure:"backend"`
	DataDir string `json:"data_dir" yaml:"data_dir,omitempty" mapstructure:"data_dir"`

	// Prefix is the namespace every backend adds in front of its keys.
	// Empty means DefaultPrefix.
	Prefix string `json:"prefix" yaml:"prefix,omitempty" mapstructure:"prefix"`

	Memory   MemoryConfig   `json:"memory" yaml:"memory,omitempty" mapstructure:"memory"`
	Redis    RedisConfig    `json:"redis" yaml:"redis,omitempty" mapstructure:"redis"`
	Memcache MemcacheConfig `json:"memcache" yaml:"memcache,omitempty" mapstructure:"memcache"`
	Postgres PostgresConfig `json:"postgres" yaml:"postgres,omitempty" mapstructure:"postgres"`
}

// MemoryConfig configures the session-scoped in-memory backend.
type MemoryConfig struct {
	// TTL expires entries this long after their last write. Zero keeps
	// entries for the life of the process.
	TTL time.Duration `json:"ttl" yaml:"ttl,omitempty" mapstructure:"ttl"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr,omitempty" mapstructure:"addr"`
	Password string `json:"password" yaml:"password,omitempty" mapstructure:"password"`
	DB       int    `json:"db" yaml:"db,omitempty" mapstructure:"db"`
}

// MemcacheConfig configures the memcached backend.
type MemcacheConfig struct {
	Servers []string `json:"servers" yaml:"servers,omitempty" mapstructure:"servers"`
}

// PostgresConfig configures the postgres backend.
type PostgresConfig struct {
	DSN string `json:"dsn" yaml:"dsn,omitempty" mapstructure:"dsn"`
}

// Supported backend names.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendMemcache = "memcache"
	BackendPostgres = "postgres"
)

// DefaultPrefix is the key namespace used when Config.Prefix is empty.
const DefaultPrefix = "larder:"

// Config validation errors.
var (
	ErrBackendEmpty   = errors.New("backend must not be empty")
	ErrBackendUnknown = errors.New("unknown backend")
	ErrBackendConfig  = errors.New("incomplete backend configuration")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendMemory:   true,
	BackendSQLite:   true,
	BackendRedis:    true,
	BackendMemcache: true,
	BackendPostgres: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	switch c.Backend {
	case BackendRedis:
		if c.Redis.Addr == "" {
			return ErrBackendConfig
		}
	case BackendMemcache:
		if len(c.Memcache.Servers) == 0 {
			return ErrBackendConfig
		}
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			return ErrBackendConfig
		}
	}
	return nil
}

// KeyPrefix returns the effective namespace prefix.
func (c Config) KeyPrefix() string {
	if c.Prefix == "" {
		return DefaultPrefix
	}
	return c.Prefix
}
