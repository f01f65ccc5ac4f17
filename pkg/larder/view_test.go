package larder

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/larder/pkg/types"
)

func TestViewSetUngates(t *testing.T) {
	ctx := context.Background()
	db, _ := newTestDB(t)
	seedPeopleAddresses(t, db)

	a, err := repo(t, db, "Address").Queryable().GetByID(ctx, "A1")
	require.NoError(t, err)
	_, err = a.One("person")
	require.ErrorIs(t, err, types.ErrRelationNotLoaded)

	p, err := repo(t, db, "Person").Queryable().GetByID(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, a.Set("person", p))

	got, err := a.One("person")
	require.NoError(t, err)
	assert.Same(t, p, got)

	assert.ErrorIs(t, a.Set("zip", "x"), types.ErrUnknownField)
	_, err = a.Get("zip")
	assert.ErrorIs(t, err, types.ErrUnknownField)
}

func TestViewScalarRejectsRelations(t *testing.T) {
	ctx := context.Background()
	db, _ := newTestDB(t)
	seedPeopleAddresses(t, db)

	a, err := repo(t, db, "Address").Queryable().GetByID(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Street 1", a.Scalar("street"))
	assert.Nil(t, a.Scalar("zip"))
	assert.Panics(t, func() { a.Scalar("person") })

	_, err = a.Get("person")
	assert.ErrorIs(t, err, types.ErrRelationNotLoaded)
}

func TestViewWriteBack(t *testing.T) {
	ctx := context.Background()
	db, _ := newTestDB(t)
	seedPeopleAddresses(t, db)
	addresses := repo(t, db, "Address")

	a, err := addresses.Queryable().GetByID(ctx, "A1")
	require.NoError(t, err)
	require.NoError(t, a.Set("street", "Renamed"))
	require.NoError(t, addresses.Update(ctx, a.Record()))

	again, err := addresses.Queryable().GetByID(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", again.Scalar("street"))
	assert.Equal(t, float64(1), again.Scalar("personId"))
}

func TestViewJSON(t *testing.T) {
	ctx := context.Background()
	db, _ := newTestDB(t)
	seedPeopleAddresses(t, db)

	p, err := repo(t, db, "Person").Queryable().Include("address").GetByID(ctx, 2)
	require.NoError(t, err)
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":2,"name":"P2","address":[]}`, string(raw))

	a, err := repo(t, db, "Address").Queryable().GetByID(ctx, "A1")
	require.NoError(t, err)
	raw, err = json.Marshal(a)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"A1","street":"Street 1","personId":1}`, string(raw))
}
