package larder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/larder/internal/backend/memory"
	"github.com/mesh-intelligence/larder/pkg/schema"
	"github.com/mesh-intelligence/larder/pkg/store"
)

// newTestDB returns a DB over an empty memory store with these models:
//
//	Person  (people)    id, name, email; address -> many addresses by personId
//	Address (addresses) id, street, personId; person -> one people
//	Team    (teams)     id, name; members -> many members by teamId
//	Member  (members)   id, name, teamId (no declared inverse)
//	Car     (cars)      generated id, model
func newTestDB(t *testing.T) (*DB, store.Store) {
	t.Helper()
	reg := schema.NewRegistry()
	require.NoError(t, reg.Register(
		schema.New("Person").Table("people").Identifier("id").Fields("name", "email").
			HasMany("address", "addresses", "personId").MustBuild(),
		schema.New("Address").Table("addresses").Identifier("id").Fields("street").
			HasOne("person", "people", "personId").MustBuild(),
		schema.New("Team").Table("teams").Identifier("id").Fields("name").
			HasMany("members", "members", "teamId").MustBuild(),
		schema.New("Member").Table("members").Identifier("id").Fields("name", "teamId").MustBuild(),
		schema.New("Car").Table("cars").Identifier("id").Fields("model").GenerateIdentifiers().MustBuild(),
	))
	require.NoError(t, reg.Validate())

	st := memory.New("larder:", 0, nil)
	t.Cleanup(func() { st.Close() })
	return New(st, reg), st
}

func repo(t *testing.T, db *DB, entityType string) *Repository {
	t.Helper()
	r, err := db.Repository(entityType)
	require.NoError(t, err)
	return r
}

func ids(views []*View) []any {
	out := make([]any, len(views))
	for i, v := range views {
		out[i] = v.ID()
	}
	return out
}

func readRaw(t *testing.T, st store.Store, key string) (string, bool) {
	t.Helper()
	v, ok, err := st.Read(context.Background(), key)
	require.NoError(t, err)
	return v, ok
}
