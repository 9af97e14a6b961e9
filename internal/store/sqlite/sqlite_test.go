package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dota-dot20/indexer/internal/store"
	"github.com/dota-dot20/indexer/internal/store/storetest"
)

func TestSQLiteStore_ComplianceSuite(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.LedgerStore {
		db, err := Open(":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		require.NoError(t, Bootstrap(context.Background(), db))
		return NewWithDB(db)
	})
}

func TestSQLiteStore_HealthPing(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, Bootstrap(context.Background(), db))

	s := NewWithDB(db)
	require.NoError(t, s.HealthPing(context.Background()))
}
