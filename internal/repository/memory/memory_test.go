package memory

import (
	"testing"

	"assettracker-backend/internal/repository"
	"assettracker-backend/internal/repository/storetest"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) repository.Store {
		return New()
	})
}
