package backends

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/larder/pkg/types"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		st, err := Open(ctx, types.Config{Backend: types.BackendMemory}, nil)
		require.NoError(t, err)
		defer st.Close()

		require.NoError(t, st.Write(ctx, "k", "v"))
		dump, err := st.DumpAll(ctx)
		require.NoError(t, err)
		assert.Contains(t, dump, types.DefaultPrefix+"k")
	})

	t.Run("sqlite with custom prefix", func(t *testing.T) {
		st, err := Open(ctx, types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir(), Prefix: "app:"}, nil)
		require.NoError(t, err)
		defer st.Close()

		require.NoError(t, st.Write(ctx, "k", "v"))
		dump, err := st.DumpAll(ctx)
		require.NoError(t, err)
		assert.Contains(t, dump, "app:k")
	})

	t.Run("invalid config", func(t *testing.T) {
		_, err := Open(ctx, types.Config{}, nil)
		assert.ErrorIs(t, err, types.ErrBackendEmpty)

		_, err = Open(ctx, types.Config{Backend: "floppy"}, nil)
		assert.ErrorIs(t, err, types.ErrBackendUnknown)
	})
}
