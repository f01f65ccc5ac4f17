package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/larder/pkg/schema"
	"github.com/mesh-intelligence/larder/pkg/types"
)

const sampleYAML = `
backend: memory
prefix: "test:"
memory:
  ttl: 90s
server:
  addr: ":9000"
trace:
  endpoint: localhost:4318
  insecure: true
schemas:
  - entity: Person
    table: people
    identifier: id
    fields: [name]
    relations:
      - {name: address, target: addresses, foreign_key: personId, cardinality: many}
  - entity: Address
    table: addresses
    identifier: id
    fields: [street]
    generate_ids: true
    relations:
      - {name: person, target: people, foreign_key: personId, cardinality: one}
`

func TestLoadCreatesDefault(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cfg")

	f, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, types.BackendSQLite, f.Backend)
	assert.Equal(t, DefaultAddr, f.Server.Addr)
	assert.Empty(t, f.Schemas)

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "backend: sqlite")
	assert.Contains(t, string(data), "# larder configuration")
}

func TestLoadKeepsExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	f, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, types.BackendMemory, f.Backend)
	assert.Equal(t, "test:", f.KeyPrefix())
	assert.Equal(t, 90*time.Second, f.Memory.TTL)
	assert.Equal(t, ":9000", f.Server.Addr)
	assert.Equal(t, "localhost:4318", f.Trace.Endpoint)
	assert.True(t, f.Trace.Insecure)
	require.Len(t, f.Schemas, 2)
	assert.Equal(t, "personId", f.Schemas[0].Relations[0].ForeignKey)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, sampleYAML, string(data))
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LARDER_BACKEND", "memory")

	f, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, types.BackendMemory, f.Backend)
}

func TestLoadEnvOnlyKeys(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LARDER_BACKEND", "redis")
	t.Setenv("LARDER_PREFIX", "env:")
	t.Setenv("LARDER_REDIS_ADDR", "10.0.0.5:6379")
	t.Setenv("LARDER_POSTGRES_DSN", "host=db")
	t.Setenv("LARDER_MEMCACHE_SERVERS", "a:11211,b:11211")
	t.Setenv("LARDER_TRACE_ENDPOINT", "collector:4318")

	f, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, types.BackendRedis, f.Backend)
	assert.Equal(t, "env:", f.Prefix)
	assert.Equal(t, "10.0.0.5:6379", f.Redis.Addr)
	assert.Equal(t, "host=db", f.Postgres.DSN)
	assert.Equal(t, []string{"a:11211", "b:11211"}, f.Memcache.Servers)
	assert.Equal(t, "collector:4318", f.Trace.Endpoint)
	assert.NoError(t, f.Validate())
}

func TestLoadMalformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("backend: [unclosed"), 0o644))
	_, err := Load(dir)
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(sampleYAML), 0o644))
	f, err := Load(dir)
	require.NoError(t, err)

	reg, err := Registry(f.Schemas)
	require.NoError(t, err)
	assert.Equal(t, []string{"people", "addresses"}, reg.Tables())

	addr, err := reg.For("Address")
	require.NoError(t, err)
	assert.True(t, addr.GeneratesIdentifiers())
	assert.True(t, addr.HasField("personId"))
	rel, ok := addr.Relation("person")
	require.True(t, ok)
	assert.Equal(t, schema.One, rel.Cardinality)
}

func TestRegistryErrors(t *testing.T) {
	tests := []struct {
		name string
		defs []SchemaDef
		want error
	}{
		{
			name: "bad cardinality",
			defs: []SchemaDef{{Entity: "A", Identifier: "id", Relations: []RelationDef{
				{Name: "b", Target: "b", ForeignKey: "bId", Cardinality: "several"},
			}}},
			want: types.ErrInvalidSchema,
		},
		{
			name: "duplicate entity",
			defs: []SchemaDef{{Entity: "A", Identifier: "id"}, {Entity: "A", Table: "other", Identifier: "id"}},
			want: types.ErrSchemaExists,
		},
		{
			name: "unknown target",
			defs: []SchemaDef{{Entity: "A", Identifier: "id", Relations: []RelationDef{
				{Name: "b", Target: "bs", ForeignKey: "bId", Cardinality: "one"},
			}}},
			want: types.ErrInvalidSchema,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Registry(tt.defs)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
