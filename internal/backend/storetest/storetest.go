// Package storetest holds the behavior every store.Store backend must share.
// Backend packages call Run from their tests.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/larder/pkg/store"
	"github.com/mesh-intelligence/larder/pkg/types"
)

// Factory opens a fresh backend using prefix, verbatim, as its namespace.
type Factory func(t *testing.T, prefix string) store.Store

// newPrefix returns a namespace no earlier run has used, so backends on
// shared servers start empty.
func newPrefix() string {
	return fmt.Sprintf("larder-%d:", time.Now().UnixNano())
}

// Run exercises the store.Store contract against backends built by open.
func Run(t *testing.T, open Factory) {
	ctx := context.Background()

	t.Run("write then read", func(t *testing.T) {
		s := open(t, newPrefix())
		require.NoError(t, s.Write(ctx, "people:1:name;", `"Ada"`))

		v, ok, err := s.Read(ctx, "people:1:name;")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `"Ada"`, v)
	})

	t.Run("write overwrites", func(t *testing.T) {
		s := open(t, newPrefix())
		require.NoError(t, s.Write(ctx, "k", "1"))
		require.NoError(t, s.Write(ctx, "k", "2"))

		v, ok, err := s.Read(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "2", v)
	})

	t.Run("read of absent key", func(t *testing.T) {
		s := open(t, newPrefix())
		_, ok, err := s.Read(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("remove is idempotent", func(t *testing.T) {
		s := open(t, newPrefix())
		require.NoError(t, s.Write(ctx, "k", "1"))
		require.NoError(t, s.Remove(ctx, "k"))
		require.NoError(t, s.Remove(ctx, "k"))

		_, ok, err := s.Read(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("dump holds prefixed keys", func(t *testing.T) {
		prefix := newPrefix()
		s := open(t, prefix)
		require.NoError(t, s.Write(ctx, "::index-of::people-identifiers::", `[1,2]`))
		require.NoError(t, s.Write(ctx, "people:1:name;", `"Ada"`))

		dump, err := s.DumpAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, store.Dump{
			prefix + "::index-of::people-identifiers::": `[1,2]`,
			prefix + "people:1:name;":                   `"Ada"`,
		}, dump)
	})

	t.Run("load restores only namespaced keys", func(t *testing.T) {
		prefix := newPrefix()
		s := open(t, prefix)
		require.NoError(t, s.Write(ctx, "people:1:name;", `"Old"`))

		err := s.LoadAll(ctx, store.Dump{
			prefix + "people:1:name;": `"Ada"`,
			prefix + "people:2:name;": `"Grace"`,
			"foreign:people:3:name;":  `"Nope"`,
		})
		require.NoError(t, err)

		v, ok, err := s.Read(ctx, "people:1:name;")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `"Ada"`, v)

		v, ok, err = s.Read(ctx, "people:2:name;")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `"Grace"`, v)

		dump, err := s.DumpAll(ctx)
		require.NoError(t, err)
		assert.Len(t, dump, 2)
	})

	t.Run("dump then load round trip", func(t *testing.T) {
		prefix := newPrefix()
		src := open(t, prefix)
		require.NoError(t, src.Write(ctx, "a", "1"))
		require.NoError(t, src.Write(ctx, "b", `"two"`))
		dump, err := src.DumpAll(ctx)
		require.NoError(t, err)
		require.NoError(t, src.Close())

		dst := open(t, prefix)
		require.NoError(t, dst.LoadAll(ctx, dump))
		again, err := dst.DumpAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, dump, again)
	})

	t.Run("closed store rejects operations", func(t *testing.T) {
		s := open(t, newPrefix())
		require.NoError(t, s.Close())
		require.NoError(t, s.Close())

		err := s.Write(ctx, "k", "1")
		assert.ErrorIs(t, err, types.ErrStoreClosed)
		_, _, err = s.Read(ctx, "k")
		assert.ErrorIs(t, err, types.ErrStoreClosed)
	})
}
