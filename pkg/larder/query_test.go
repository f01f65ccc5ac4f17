package larder

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/larder/pkg/types"
)

// seedPeopleAddresses creates people 1 and 2 and addresses 1..3 owned by
// person 1 through the address repository.
func seedPeopleAddresses(t *testing.T, db *DB) {
	t.Helper()
	ctx := context.Background()
	people := repo(t, db, "Person")
	addresses := repo(t, db, "Address")
	require.NoError(t, people.Create(ctx, types.Record{"id": 1, "name": "P1"}))
	require.NoError(t, people.Create(ctx, types.Record{"id": 2, "name": "P2"}))
	for i := 1; i <= 3; i++ {
		require.NoError(t, addresses.Create(ctx, types.Record{
			"id":       fmt.Sprintf("A%d", i),
			"street":   fmt.Sprintf("Street %d", i),
			"personId": 1,
		}))
	}
}

func TestPeopleAddresses(t *testing.T) {
	ctx := context.Background()
	db, _ := newTestDB(t)
	seedPeopleAddresses(t, db)
	people := repo(t, db, "Person")

	p1, err := people.Queryable().Include("address").GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "P1", p1.Scalar("name"))
	list, err := p1.Many("address")
	require.NoError(t, err)
	assert.Equal(t, []any{"A1", "A2", "A3"}, ids(list))

	p2, err := people.Queryable().Include("address").GetByID(ctx, 2)
	require.NoError(t, err)
	list, err = p2.Many("address")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestGetByID(t *testing.T) {
	ctx := context.Background()
	db, _ := newTestDB(t)
	seedPeopleAddresses(t, db)
	people := repo(t, db, "Person")

	_, err := people.Queryable().GetByID(ctx, 99)
	assert.ErrorIs(t, err, types.ErrNotFound)

	got, err := people.Queryable().GetByIDs(ctx, []any{2, 1})
	require.NoError(t, err)
	assert.Equal(t, []any{float64(2), float64(1)}, ids(got))

	_, err = people.Queryable().GetByIDs(ctx, []any{1, 99})
	assert.ErrorIs(t, err, types.ErrNotFound)

	got, err = people.Queryable().GetByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	all, err := repo(t, db, "Address").Queryable().GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []any{"A1", "A2", "A3"}, ids(all))
}

func TestIncludeChain(t *testing.T) {
	ctx := context.Background()
	db, _ := newTestDB(t)
	seedPeopleAddresses(t, db)
	addresses := repo(t, db, "Address")

	t.Run("then include before include", func(t *testing.T) {
		_, err := addresses.Queryable().ThenInclude("person").GetByID(ctx, "A1")
		assert.ErrorIs(t, err, types.ErrInvalidIncludeChain)
	})

	t.Run("unknown relation", func(t *testing.T) {
		_, err := addresses.Queryable().Include("owner").GetByID(ctx, "A1")
		assert.ErrorIs(t, err, types.ErrInvalidInclude)
	})

	t.Run("nested include", func(t *testing.T) {
		a, err := addresses.Queryable().Include("person").ThenInclude("address").GetByID(ctx, "A2")
		require.NoError(t, err)
		p, err := a.One("person")
		require.NoError(t, err)
		siblings, err := p.Many("address")
		require.NoError(t, err)
		assert.Equal(t, []any{"A1", "A2", "A3"}, ids(siblings))

		_, err = siblings[0].Relation("person")
		assert.ErrorIs(t, err, types.ErrRelationNotLoaded)
	})

	t.Run("dotted paths", func(t *testing.T) {
		q := addresses.Queryable().IncludePaths("person.address")
		assert.Equal(t, "person.address", q.Includes().String())
		a, err := q.GetByID(ctx, "A1")
		require.NoError(t, err)
		p, err := a.One("person")
		require.NoError(t, err)
		assert.True(t, p.Loaded("address"))
	})
}

func TestGuard(t *testing.T) {
	ctx := context.Background()
	db, _ := newTestDB(t)
	seedPeopleAddresses(t, db)
	addresses := repo(t, db, "Address")
	require.NoError(t, addresses.Create(ctx, types.Record{"id": "lonely"}))

	a, err := addresses.Queryable().GetByID(ctx, "A1")
	require.NoError(t, err)
	_, err = a.Relation("person")
	assert.ErrorIs(t, err, types.ErrRelationNotLoaded)
	_, err = a.Get("person")
	assert.ErrorIs(t, err, types.ErrRelationNotLoaded)
	assert.False(t, a.Loaded("person"))

	a, err = addresses.Queryable().Include("person").GetByID(ctx, "A1")
	require.NoError(t, err)
	p, err := a.One("person")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "P1", p.Scalar("name"))

	lonely, err := addresses.Queryable().Include("person").GetByID(ctx, "lonely")
	require.NoError(t, err)
	p, err = lonely.One("person")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestWhere(t *testing.T) {
	ctx := context.Background()

	t.Run("empty table", func(t *testing.T) {
		db, _ := newTestDB(t)
		q := repo(t, db, "Person").Queryable()
		got, err := q.Where("name", Equals("x")).GetAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, got)

		n, err := q.Where("name", IsNull()).Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)

		found, err := q.Where("name", IsNull()).Any(ctx)
		require.NoError(t, err)
		assert.False(t, found)
	})

	db, _ := newTestDB(t)
	seedPeopleAddresses(t, db)
	addresses := repo(t, db, "Address")
	require.NoError(t, addresses.Create(ctx, types.Record{"id": "A4", "street": "Street 4", "personId": 2}))

	tests := []struct {
		name  string
		field string
		pred  Predicate
		want  []any
	}{
		{"equals number", "personId", Equals(1), []any{"A1", "A2", "A3"}},
		{"not equals", "personId", NotEquals(1), []any{"A4"}},
		{"in", "street", In("Street 1", "Street 4"), []any{"A1", "A4"}},
		{"custom", "street", func(v any) bool { s, _ := v.(string); return s > "Street 2" }, []any{"A3", "A4"}},
		{"none", "street", IsNull(), []any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := addresses.Queryable().Where(tt.field, tt.pred).GetAll(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))

			n, err := addresses.Queryable().Where(tt.field, tt.pred).Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, len(tt.want), n)
		})
	}

	t.Run("conditions are combined", func(t *testing.T) {
		got, err := addresses.Queryable().
			Where("personId", Equals(1)).
			Where("street", Not(Equals("Street 2"))).
			GetAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, []any{"A1", "A3"}, ids(got))
	})

	t.Run("relational filter fails", func(t *testing.T) {
		_, err := addresses.Queryable().Where("person", IsNull()).GetAll(ctx)
		assert.ErrorIs(t, err, types.ErrRelationalFilter)
	})

	t.Run("unknown field fails", func(t *testing.T) {
		_, err := addresses.Queryable().Where("zip", IsNull()).Count(ctx)
		assert.ErrorIs(t, err, types.ErrUnknownField)
	})

	t.Run("first and single", func(t *testing.T) {
		first, err := addresses.Queryable().Where("personId", Equals(1)).First(ctx)
		require.NoError(t, err)
		assert.Equal(t, "A1", first.ID())

		_, err = addresses.Queryable().Where("personId", Equals(3)).First(ctx)
		assert.ErrorIs(t, err, types.ErrNotFound)

		one, err := addresses.Queryable().Where("personId", Equals(2)).Single(ctx)
		require.NoError(t, err)
		assert.Equal(t, "A4", one.ID())

		_, err = addresses.Queryable().Where("personId", Equals(1)).Single(ctx)
		assert.ErrorIs(t, err, types.ErrMultipleRows)
		_, err = addresses.Queryable().Where("personId", Equals(3)).Single(ctx)
		assert.ErrorIs(t, err, types.ErrNoRows)
	})

	t.Run("includes apply to filtered rows", func(t *testing.T) {
		got, err := addresses.Queryable().Include("person").Where("personId", Equals(2)).GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, got, 1)
		p, err := got[0].One("person")
		require.NoError(t, err)
		assert.Equal(t, "P2", p.Scalar("name"))
	})
}

func TestSelect(t *testing.T) {
	ctx := context.Background()
	db, _ := newTestDB(t)
	seedPeopleAddresses(t, db)
	q := func() *ConditionalQuery {
		return repo(t, db, "Address").Queryable().Include("person").Where("personId", Equals(1))
	}

	got, err := q().Select(ctx, "id", "street")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Street 1", got[0].Scalar("street"))
	assert.Nil(t, got[0].Scalar("personId"))
	p, err := got[0].One("person")
	require.NoError(t, err)
	assert.Nil(t, p)

	got, err = q().Select(ctx, "id", "personId")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Nil(t, got[0].Scalar("street"))
	p, err = got[0].One("person")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "P1", p.Scalar("name"))

	_, err = q().Select(ctx, "person")
	assert.ErrorIs(t, err, types.ErrUnknownField)
}
