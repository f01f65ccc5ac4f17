package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/larder/pkg/types"
)

const testConfig = `backend: sqlite
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
    relations:
      - {name: person, target: people, foreign_key: personId, cardinality: one}
`

type env struct {
	configDir string
	dataDir   string
}

func newEnv(t *testing.T) env {
	t.Helper()
	root := t.TempDir()
	e := env{configDir: filepath.Join(root, "cfg"), dataDir: filepath.Join(root, "data")}
	require.NoError(t, os.MkdirAll(e.configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(e.configDir, "config.yaml"), []byte(testConfig), 0o644))
	return e
}

func (e env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return e.runWithInput(t, "", args...)
}

func (e env) runWithInput(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(input))
	cmd.SetArgs(append([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := newEnv(t).run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "larder v")
	assert.Contains(t, out, modulePath)
}

func TestInit(t *testing.T) {
	root := t.TempDir()
	e := env{configDir: filepath.Join(root, "fresh-cfg"), dataDir: filepath.Join(root, "data")}

	out, err := e.run(t, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "larder initialized (sqlite backend")
	assert.FileExists(t, filepath.Join(e.configDir, "config.yaml"))
	assert.FileExists(t, filepath.Join(e.dataDir, "larder.db"))

	out, err = e.run(t, "init")
	require.NoError(t, err, out)
}

func TestEntityCommands(t *testing.T) {
	e := newEnv(t)

	_, err := e.run(t, "create", "people", `{"id":1,"name":"Ada","address":[{"id":"a1","street":"Main"}]}`)
	require.NoError(t, err)

	_, err = e.run(t, "create", "people", `{"id":1}`)
	assert.ErrorIs(t, err, types.ErrDuplicateIdentifier)

	out, err := e.run(t, "get", "people", "1", "--include", "address")
	require.NoError(t, err)
	var person map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &person))
	assert.Equal(t, "Ada", person["name"])
	require.Len(t, person["address"], 1)

	out, err = e.run(t, "list", "addresses", "personId=1", "--count")
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)

	out, err = e.run(t, "list", "addresses", "--select", "id,street")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"a1","street":"Main"}]`, out)

	_, err = e.runWithInput(t, `{"id":"a2","street":"Side","personId":1}`, "set", "addresses", "-")
	require.NoError(t, err)
	_, err = e.run(t, "update", "addresses", `{"id":"a2","street":"Side Rd","personId":1}`)
	require.NoError(t, err)

	out, err = e.run(t, "get", "addresses", "a2")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"a2","street":"Side Rd","personId":1}`, out)

	out, err = e.run(t, "delete", "addresses", "a2")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted addresses a2")
	_, err = e.run(t, "get", "addresses", "a2")
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestEntityCommandErrors(t *testing.T) {
	e := newEnv(t)

	_, err := e.run(t, "get", "ghosts", "1")
	assert.ErrorIs(t, err, types.ErrSchemaNotFound)

	_, err = e.run(t, "create", "people", `{not json`)
	assert.ErrorIs(t, err, types.ErrInvalidData)

	_, err = e.run(t, "list", "addresses", "person=1")
	assert.ErrorIs(t, err, types.ErrRelationalFilter)

	_, err = e.run(t, "get", "people")
	assert.Error(t, err)
}

func TestTables(t *testing.T) {
	out, err := newEnv(t).run(t, "tables")
	require.NoError(t, err)
	assert.Contains(t, out, "people (Person) id=id")
	assert.Contains(t, out, "address -> many addresses by personId")
}

func TestDumpLoad(t *testing.T) {
	src := newEnv(t)
	_, err := src.run(t, "create", "people", `{"id":"p1","name":"Ada"}`)
	require.NoError(t, err)

	out, err := src.run(t, "dump")
	require.NoError(t, err)
	assert.Contains(t, out, "::index-of::people-identifiers::")

	for _, name := range []string{"dump.json", "dump.jsonl"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			out, err := src.run(t, "dump", path)
			require.NoError(t, err)
			assert.Contains(t, out, "dumped")

			dst := newEnv(t)
			_, err = dst.run(t, "load", path)
			require.NoError(t, err)
			out, err = dst.run(t, "get", "people", "p1")
			require.NoError(t, err)
			assert.JSONEq(t, `{"id":"p1","name":"Ada"}`, out)
		})
	}

	_, err = src.run(t, "load", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitSuccess, exitCode(nil))
	assert.Equal(t, exitUserError, exitCode(types.ErrNotFound))
	assert.Equal(t, exitSysError, exitCode(sysError{errors.New("disk")}))
}
