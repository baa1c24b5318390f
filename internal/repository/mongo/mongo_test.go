package mongo_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"assettracker-backend/internal/repository"
	"assettracker-backend/internal/repository/mongo"
	"assettracker-backend/internal/repository/storetest"
)

// Requires a replica set, e.g. mongod --replSet rs0.
func TestStoreContract(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	ctx := context.Background()

	storetest.Run(t, func(t *testing.T) repository.Store {
		name := fmt.Sprintf("assettracker_test_%d", time.Now().UnixNano())
		store, err := mongo.Open(ctx, uri, name)
		require.NoError(t, err)
		t.Cleanup(func() {
			_ = store.Database().Drop(ctx)
			_ = store.Close(ctx)
		})
		return store
	})
}
