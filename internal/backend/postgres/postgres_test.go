package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/larder/internal/backend/storetest"
	"github.com/mesh-intelligence/larder/pkg/store"
	"github.com/mesh-intelligence/larder/pkg/types"
)

// envDSN names the database used by the contract tests.
const envDSN = "LARDER_TEST_POSTGRES_DSN"

func TestContract(t *testing.T) {
	dsn := os.Getenv(envDSN)
	if dsn == "" {
		t.Skipf("%s not set", envDSN)
	}
	storetest.Run(t, func(t *testing.T, prefix string) store.Store {
		b, err := Open(context.Background(), types.PostgresConfig{DSN: dsn}, prefix, nil)
		require.NoError(t, err)
		t.Cleanup(func() {
			b.db.Where("starts_with(key, ?)", prefix).Delete(&Entry{})
			b.Close()
		})
		return b
	})
}

func TestEntryTableName(t *testing.T) {
	assert.Equal(t, "larder_entries", Entry{}.TableName())
}
