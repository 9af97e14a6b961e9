package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dota-dot20/indexer/internal/store"
	"github.com/dota-dot20/indexer/internal/store/storetest"
)

// makePGStore returns a Ledger Store backed by a real Postgres instance: a
// DOT20_TEST_POSTGRES_DSN override for CI runners with an existing database,
// or an ephemeral testcontainers-go Postgres container otherwise (skipped if
// Docker isn't available).
func makePGStore(t *testing.T) store.LedgerStore {
	t.Helper()
	ctx := context.Background()

	dsn := os.Getenv("DOT20_TEST_POSTGRES_DSN")
	if dsn == "" {
		dsn = startPostgresContainer(t, ctx)
	}

	db, err := Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, Bootstrap(ctx, db))
	return NewWithDB(db)
}

func startPostgresContainer(t *testing.T, ctx context.Context) string {
	t.Helper()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("dot20"),
		tcpostgres.WithUsername("dot20"),
		tcpostgres.WithPassword("dot20"),
		testcontainers.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Skipf("docker unavailable, skipping postgres integration test: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func TestPostgresStore_Compliance(t *testing.T) {
	storetest.Run(t, makePGStore)
}
