package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"assettracker-backend/internal/repository"
	"assettracker-backend/internal/repository/postgres"
	"assettracker-backend/internal/repository/storetest"
)

func TestStoreContract(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16",
		tcpostgres.WithDatabase("assettracker"),
		tcpostgres.WithUsername("tracker"),
		tcpostgres.WithPassword("tracker"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, postgres.Migrate(dsn))
	// Second run is a no-op.
	require.NoError(t, postgres.Migrate(dsn))

	store, err := postgres.Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(ctx) })

	storetest.Run(t, func(t *testing.T) repository.Store {
		_, err := store.DB().ExecContext(ctx, `TRUNCATE asset_requests, assets, users`)
		require.NoError(t, err)
		return store
	})
}
