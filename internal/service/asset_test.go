package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"assettracker-backend/internal/domain"
	"assettracker-backend/internal/repository"
)

func TestAssetService_CreateAsset(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		store := newMockStore()
		rec := new(MockRecorder)
		svc := NewAssetService(store, rec)

		store.assets.On("Create", ctx, mock.MatchedBy(func(a *domain.Asset) bool {
			return a.Name == "MacBook" && a.Type == "Laptop" && a.Status == domain.AssetStatusAvailable && a.AssignedTo == nil
		})).Return(nil)
		rec.On("RecordTransition", "asset", "", "AVAILABLE").Return()

		asset, err := svc.CreateAsset(ctx, "  MacBook ", "Laptop")
		require.NoError(t, err)
		assert.Equal(t, "MacBook", asset.Name)
		rec.AssertExpectations(t)
	})

	t.Run("MissingFields", func(t *testing.T) {
		svc := NewAssetService(newMockStore(), nil)
		for _, c := range [][2]string{{"", "Laptop"}, {"MacBook", ""}, {"  ", "  "}} {
			_, err := svc.CreateAsset(ctx, c[0], c[1])
			assert.ErrorIs(t, err, domain.ErrValidation)
		}
	})

	t.Run("StoreFailure", func(t *testing.T) {
		store := newMockStore()
		svc := NewAssetService(store, nil)
		store.assets.On("Create", ctx, mock.Anything).Return(errors.New("disk full"))

		_, err := svc.CreateAsset(ctx, "MacBook", "Laptop")
		assert.EqualError(t, err, "disk full")
	})
}

func TestAssetService_ListAssets_PopulatesAssignee(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	svc := NewAssetService(store, nil)

	userID := domain.NewID()
	assigned := domain.Asset{ID: domain.NewID(), Name: "MacBook", Status: domain.AssetStatusAvailable}
	require.NoError(t, assigned.AssignTo(userID))
	free := domain.Asset{ID: domain.NewID(), Name: "ThinkPad", Status: domain.AssetStatusAvailable}

	store.assets.On("List", ctx, repository.AssetFilter{}).Return([]domain.Asset{assigned, free}, nil)
	store.users.On("ListByIDs", ctx, []string{userID}).
		Return([]domain.User{{ID: userID, Name: "Alice", Email: "alice@example.com"}}, nil)

	assets, err := svc.ListAssets(ctx)
	require.NoError(t, err)
	require.Len(t, assets, 2)
	require.NotNil(t, assets[0].Assignee)
	assert.Equal(t, "alice@example.com", assets[0].Assignee.Email)
	assert.Nil(t, assets[1].Assignee)
}
