// Package config loads config.yaml: the backend selection, the server and
// tracing settings, and the schemas the CLI and server register at startup.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/larder/internal/paths"
	"github.com/mesh-intelligence/larder/pkg/types"
)

// Viper keys read outside of Unmarshal.
const (
	keyBackend = "backend"
	keyDataDir = "data_dir"
	keyAddr    = "server.addr"
)

// envKeys are bound to LARDER_* variables even when config.yaml omits them,
// e.g. redis.addr to LARDER_REDIS_ADDR.
var envKeys = []string{
	"prefix",
	"debug",
	"memory.ttl",
	"redis.addr",
	"redis.password",
	"redis.db",
	"memcache.servers",
	"postgres.dsn",
	"trace.endpoint",
	"trace.insecure",
	"trace.service_name",
}

// Defaults applied before config.yaml is read.
const (
	DefaultBackend = types.BackendSQLite
	DefaultAddr    = "127.0.0.1:7070"
)

// File is the decoded content of config.yaml.
type File struct {
	types.Config `mapstructure:",squash" yaml:",inline"`

	Debug   bool         `mapstructure:"debug" yaml:"debug,omitempty"`
	Server  ServerConfig `mapstructure:"server" yaml:"server,omitempty"`
	Trace   TraceConfig  `mapstructure:"trace" yaml:"trace,omitempty"`
	Schemas []SchemaDef  `mapstructure:"schemas" yaml:"schemas,omitempty"`
}

// ServerConfig configures larder serve.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr,omitempty"`
}

// TraceConfig configures span export. Spans are dropped when Endpoint is
// empty.
type TraceConfig struct {
	Endpoint    string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	Insecure    bool   `mapstructure:"insecure" yaml:"insecure,omitempty"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name,omitempty"`
}

// Default returns the configuration written on first run.
func Default() *File {
	return &File{
		Config: types.Config{Backend: DefaultBackend},
		Server: ServerConfig{Addr: DefaultAddr},
	}
}

const header = `# larder configuration
#
# backend: memory | sqlite | redis | memcache | postgres
# schemas declare the entity types, for example:
#
# schemas:
#   - entity: Person
#     table: people
#     identifier: id
#     fields: [name]
#     relations:
#       - {name: address, target: addresses, foreign_key: personId, cardinality: many}
#   - entity: Address
#     table: addresses
#     identifier: id
#     fields: [street]
#     relations:
#       - {name: person, target: people, foreign_key: personId, cardinality: one}

`

// WriteDefault writes f to path unless a file already exists there.
func WriteDefault(path string, f *File) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat config file: %w", err)
	}
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, append([]byte(header), data...), 0o644)
}

// Load reads config.yaml from configDir, creating the directory and a
// default file on first run. LARDER_* environment variables override the
// defaulted keys and envKeys, e.g. LARDER_BACKEND or LARDER_REDIS_ADDR.
// LARDER_MEMCACHE_SERVERS is a comma-separated list.
func Load(configDir string) (*File, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := WriteDefault(paths.ConfigFile(configDir), Default()); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(keyBackend, DefaultBackend)
	v.SetDefault(keyDataDir, "")
	v.SetDefault(keyAddr, DefaultAddr)
	v.SetConfigName(strings.TrimSuffix(paths.ConfigFileName, ".yaml"))
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.SetEnvPrefix("LARDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	f := &File{}
	if err := v.Unmarshal(f); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return f, nil
}
