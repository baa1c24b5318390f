package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"assettracker-backend/internal/domain"
	"assettracker-backend/internal/repository"
	"assettracker-backend/internal/repository/memory"
)

type fixture struct {
	store    *memory.Store
	assets   AssetService
	requests RequestService
	alice    *domain.User
	bob      *domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	f := &fixture{
		store:    store,
		assets:   NewAssetService(store, nil),
		requests: NewRequestService(store, nil),
	}
	f.alice = f.user(t, "alice@example.com")
	f.bob = f.user(t, "bob@example.com")
	return f
}

func (f *fixture) user(t *testing.T, email string) *domain.User {
	t.Helper()
	u := &domain.User{Name: email, Email: email, PasswordHash: "x", Role: domain.RoleUser}
	require.NoError(t, f.store.Users().Create(context.Background(), u))
	return u
}

func (f *fixture) asset(t *testing.T, name string) *domain.Asset {
	t.Helper()
	a, err := f.assets.CreateAsset(context.Background(), name, "Laptop")
	require.NoError(t, err)
	return a
}

func (f *fixture) storedAsset(t *testing.T, id string) *domain.Asset {
	t.Helper()
	a, err := f.store.Assets().GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, a.Consistent(), "assignedTo must be set exactly when ASSIGNED")
	return a
}

func (f *fixture) storedRequest(t *testing.T, id string) *domain.AssetRequest {
	t.Helper()
	r, err := f.store.Requests().GetByID(context.Background(), id)
	require.NoError(t, err)
	return r
}

func TestLifecycle_EndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	mac := f.asset(t, "MacBook")
	assert.Equal(t, domain.AssetStatusAvailable, mac.Status)
	assert.Len(t, mac.ID, domain.IDLength)

	req, err := f.requests.CreateRequest(ctx, mac.ID, f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusPending, req.Status)
	assert.Equal(t, domain.AssetStatusAvailable, f.storedAsset(t, mac.ID).Status)

	decided, err := f.requests.DecideRequest(ctx, req.ID, domain.RequestStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusApproved, decided.Status)
	require.NotNil(t, decided.Asset)
	assert.Equal(t, "MacBook", decided.Asset.Name)
	require.NotNil(t, decided.User)
	assert.Equal(t, f.alice.Email, decided.User.Email)

	stored := f.storedAsset(t, mac.ID)
	assert.Equal(t, domain.AssetStatusAssigned, stored.Status)
	assert.Equal(t, f.alice.ID, *stored.AssignedTo)

	mine, err := f.assets.ListMyAssets(ctx, f.alice.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, mac.ID, mine[0].ID)

	all, err := f.assets.ListAssets(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.NotNil(t, all[0].Assignee)
	assert.Equal(t, f.alice.Name, all[0].Assignee.Name)

	require.NoError(t, f.requests.ReturnAsset(ctx, req.ID, f.alice.ID))

	stored = f.storedAsset(t, mac.ID)
	assert.Equal(t, domain.AssetStatusAvailable, stored.Status)
	assert.Nil(t, stored.AssignedTo)
	assert.Equal(t, domain.RequestStatusReturned, f.storedRequest(t, req.ID).Status)

	mine, err = f.assets.ListMyAssets(ctx, f.alice.ID)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestCreateRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("Duplicate pending", func(t *testing.T) {
		f := newFixture(t)
		mac := f.asset(t, "MacBook")
		_, err := f.requests.CreateRequest(ctx, mac.ID, f.alice.ID)
		require.NoError(t, err)

		_, err = f.requests.CreateRequest(ctx, mac.ID, f.alice.ID)
		assert.ErrorIs(t, err, domain.ErrDuplicateRequest)

		// A different user may still ask for the same asset.
		_, err = f.requests.CreateRequest(ctx, mac.ID, f.bob.ID)
		assert.NoError(t, err)
	})

	t.Run("Allowed again after rejection", func(t *testing.T) {
		f := newFixture(t)
		mac := f.asset(t, "MacBook")
		req, err := f.requests.CreateRequest(ctx, mac.ID, f.alice.ID)
		require.NoError(t, err)
		_, err = f.requests.DecideRequest(ctx, req.ID, domain.RequestStatusRejected)
		require.NoError(t, err)

		_, err = f.requests.CreateRequest(ctx, mac.ID, f.alice.ID)
		assert.NoError(t, err)
	})

	t.Run("Assigned asset", func(t *testing.T) {
		f := newFixture(t)
		mac := f.asset(t, "MacBook")
		req, err := f.requests.CreateRequest(ctx, mac.ID, f.alice.ID)
		require.NoError(t, err)
		_, err = f.requests.DecideRequest(ctx, req.ID, domain.RequestStatusApproved)
		require.NoError(t, err)

		_, err = f.requests.CreateRequest(ctx, mac.ID, f.bob.ID)
		assert.ErrorIs(t, err, domain.ErrAssetUnavailable)
	})

	t.Run("Missing asset", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.requests.CreateRequest(ctx, domain.NewID(), f.alice.ID)
		assert.ErrorIs(t, err, domain.ErrAssetUnavailable)
	})

	t.Run("Malformed asset id", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.requests.CreateRequest(ctx, "not-an-id", f.alice.ID)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestDecideRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("Reject leaves asset untouched", func(t *testing.T) {
		f := newFixture(t)
		mac := f.asset(t, "MacBook")
		req, err := f.requests.CreateRequest(ctx, mac.ID, f.alice.ID)
		require.NoError(t, err)

		decided, err := f.requests.DecideRequest(ctx, req.ID, domain.RequestStatusRejected)
		require.NoError(t, err)
		assert.Equal(t, domain.RequestStatusRejected, decided.Status)

		stored := f.storedAsset(t, mac.ID)
		assert.Equal(t, domain.AssetStatusAvailable, stored.Status)
		assert.Nil(t, stored.AssignedTo)
	})

	t.Run("Non-pending request is invalid for every decision", func(t *testing.T) {
		for _, first := range []domain.RequestStatus{domain.RequestStatusApproved, domain.RequestStatusRejected} {
			for _, second := range []domain.RequestStatus{domain.RequestStatusApproved, domain.RequestStatusRejected} {
				f := newFixture(t)
				mac := f.asset(t, "MacBook")
				req, err := f.requests.CreateRequest(ctx, mac.ID, f.alice.ID)
				require.NoError(t, err)
				_, err = f.requests.DecideRequest(ctx, req.ID, first)
				require.NoError(t, err)

				_, err = f.requests.DecideRequest(ctx, req.ID, second)
				assert.ErrorIs(t, err, domain.ErrInvalidState, "%s then %s", first, second)
				assert.Equal(t, first, f.storedRequest(t, req.ID).Status)
			}
		}
	})

	t.Run("Second approval for an assigned asset fails", func(t *testing.T) {
		f := newFixture(t)
		mac := f.asset(t, "MacBook")
		first, err := f.requests.CreateRequest(ctx, mac.ID, f.alice.ID)
		require.NoError(t, err)
		second, err := f.requests.CreateRequest(ctx, mac.ID, f.bob.ID)
		require.NoError(t, err)

		_, err = f.requests.DecideRequest(ctx, first.ID, domain.RequestStatusApproved)
		require.NoError(t, err)

		_, err = f.requests.DecideRequest(ctx, second.ID, domain.RequestStatusApproved)
		assert.ErrorIs(t, err, domain.ErrAssetUnavailable)

		stored := f.storedAsset(t, mac.ID)
		assert.Equal(t, f.alice.ID, *stored.AssignedTo)
		assert.Equal(t, domain.RequestStatusPending, f.storedRequest(t, second.ID).Status)

		// The losing request can still be rejected.
		_, err = f.requests.DecideRequest(ctx, second.ID, domain.RequestStatusRejected)
		assert.NoError(t, err)
	})

	t.Run("Unknown decision", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.requests.DecideRequest(ctx, domain.NewID(), domain.RequestStatusReturned)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("Missing request", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.requests.DecideRequest(ctx, domain.NewID(), domain.RequestStatusApproved)
		assert.ErrorIs(t, err, domain.ErrRequestNotFound)
	})
}

func TestReturnAsset(t *testing.T) {
	ctx := context.Background()

	approved := func(t *testing.T, f *fixture) (*domain.Asset, *domain.AssetRequest) {
		mac := f.asset(t, "MacBook")
		req, err := f.requests.CreateRequest(ctx, mac.ID, f.alice.ID)
		require.NoError(t, err)
		_, err = f.requests.DecideRequest(ctx, req.ID, domain.RequestStatusApproved)
		require.NoError(t, err)
		return mac, req
	}

	t.Run("Other user is forbidden", func(t *testing.T) {
		f := newFixture(t)
		mac, req := approved(t, f)

		err := f.requests.ReturnAsset(ctx, req.ID, f.bob.ID)
		assert.ErrorIs(t, err, domain.ErrForbidden)
		assert.Equal(t, domain.AssetStatusAssigned, f.storedAsset(t, mac.ID).Status)
	})

	t.Run("Non-approved states are invalid", func(t *testing.T) {
		f := newFixture(t)
		_, returned := approved(t, f)
		require.NoError(t, f.requests.ReturnAsset(ctx, returned.ID, f.alice.ID))
		assert.ErrorIs(t, f.requests.ReturnAsset(ctx, returned.ID, f.alice.ID), domain.ErrInvalidState)

		other := f.asset(t, "ThinkPad")
		pending, err := f.requests.CreateRequest(ctx, other.ID, f.alice.ID)
		require.NoError(t, err)
		assert.ErrorIs(t, f.requests.ReturnAsset(ctx, pending.ID, f.alice.ID), domain.ErrInvalidState)

		_, err = f.requests.DecideRequest(ctx, pending.ID, domain.RequestStatusRejected)
		require.NoError(t, err)
		assert.ErrorIs(t, f.requests.ReturnAsset(ctx, pending.ID, f.alice.ID), domain.ErrInvalidState)
	})

	t.Run("Missing request", func(t *testing.T) {
		f := newFixture(t)
		assert.ErrorIs(t, f.requests.ReturnAsset(ctx, domain.NewID(), f.alice.ID), domain.ErrRequestNotFound)
	})
}

func TestListRequests(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mac := f.asset(t, "MacBook")
	pad := f.asset(t, "ThinkPad")

	_, err := f.requests.CreateRequest(ctx, mac.ID, f.alice.ID)
	require.NoError(t, err)
	_, err = f.requests.CreateRequest(ctx, pad.ID, f.bob.ID)
	require.NoError(t, err)

	all, err := f.requests.ListAllRequests(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "MacBook", all[0].Asset.Name)
	assert.Equal(t, f.alice.Email, all[0].User.Email)
	assert.Equal(t, f.bob.Email, all[1].User.Email)

	mine, err := f.requests.ListMyRequests(ctx, f.bob.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "ThinkPad", mine[0].Asset.Name)
	assert.Nil(t, mine[0].User)
}

func TestConcurrentApprovals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mac := f.asset(t, "MacBook")

	const n = 8
	reqIDs := make([]string, n)
	for i := range reqIDs {
		u := f.user(t, domain.NewID()+"@example.com")
		req, err := f.requests.CreateRequest(ctx, mac.ID, u.ID)
		require.NoError(t, err)
		reqIDs[i] = req.ID
	}

	var wins, unavailable atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	for _, id := range reqIDs {
		g.Go(func() error {
			_, err := f.requests.DecideRequest(gctx, id, domain.RequestStatusApproved)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, domain.ErrAssetUnavailable):
				unavailable.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(n-1), unavailable.Load())

	approved, err := f.store.Requests().List(ctx, repository.RequestFilter{AssetID: mac.ID, Status: domain.RequestStatusApproved})
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, approved[0].UserID, *f.storedAsset(t, mac.ID).AssignedTo)
}

func TestConcurrentDuplicateCreates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mac := f.asset(t, "MacBook")

	var created atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	for range 8 {
		g.Go(func() error {
			_, err := f.requests.CreateRequest(gctx, mac.ID, f.alice.ID)
			if err == nil {
				created.Add(1)
				return nil
			}
			if errors.Is(err, domain.ErrDuplicateRequest) {
				return nil
			}
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(1), created.Load())
}

func TestDecideRequest_StaleWrites(t *testing.T) {
	ctx := context.Background()
	reqID, assetID, userID := domain.NewID(), domain.NewID(), domain.NewID()

	pending := func() *domain.AssetRequest {
		return &domain.AssetRequest{ID: reqID, AssetID: assetID, UserID: userID, Status: domain.RequestStatusPending}
	}
	available := func() *domain.Asset {
		return &domain.Asset{ID: assetID, Name: "MacBook", Status: domain.AssetStatusAvailable}
	}

	t.Run("Request decided concurrently", func(t *testing.T) {
		store := newMockStore()
		rec := new(MockRecorder)
		svc := NewRequestService(store, rec)

		store.requests.On("GetByID", ctx, reqID).Return(pending(), nil)
		store.requests.On("UpdateStatus", ctx, mock.Anything, domain.RequestStatusPending).Return(repository.ErrStaleState)
		rec.On("RecordRejection", "decide", domain.ErrInvalidState.Error()).Return()

		_, err := svc.DecideRequest(ctx, reqID, domain.RequestStatusRejected)
		assert.ErrorIs(t, err, domain.ErrInvalidState)
		rec.AssertExpectations(t)
		rec.AssertNotCalled(t, "RecordTransition", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Asset assigned concurrently", func(t *testing.T) {
		store := newMockStore()
		rec := new(MockRecorder)
		svc := NewRequestService(store, rec)

		store.requests.On("GetByID", ctx, reqID).Return(pending(), nil)
		store.assets.On("GetByID", ctx, assetID).Return(available(), nil)
		store.requests.On("UpdateStatus", ctx, mock.Anything, domain.RequestStatusPending).Return(nil)
		store.assets.On("UpdateStatus", ctx, mock.Anything, domain.AssetStatusAvailable).Return(repository.ErrStaleState)
		rec.On("RecordRejection", "decide", domain.ErrAssetUnavailable.Error()).Return()

		_, err := svc.DecideRequest(ctx, reqID, domain.RequestStatusApproved)
		assert.ErrorIs(t, err, domain.ErrAssetUnavailable)
		rec.AssertExpectations(t)
	})

	t.Run("Approval records both transitions", func(t *testing.T) {
		store := newMockStore()
		rec := new(MockRecorder)
		svc := NewRequestService(store, rec)

		store.requests.On("GetByID", ctx, reqID).Return(pending(), nil)
		store.assets.On("GetByID", ctx, assetID).Return(available(), nil)
		store.requests.On("UpdateStatus", ctx, mock.MatchedBy(func(r *domain.AssetRequest) bool {
			return r.Status == domain.RequestStatusApproved
		}), domain.RequestStatusPending).Return(nil)
		store.assets.On("UpdateStatus", ctx, mock.MatchedBy(func(a *domain.Asset) bool {
			return a.Status == domain.AssetStatusAssigned && a.IsAssignedTo(userID)
		}), domain.AssetStatusAvailable).Return(nil)
		store.users.On("GetByID", ctx, userID).Return(&domain.User{ID: userID, Name: "Alice"}, nil)
		rec.On("RecordTransition", "request", "PENDING", "APPROVED").Return()
		rec.On("RecordTransition", "asset", "AVAILABLE", "ASSIGNED").Return()

		req, err := svc.DecideRequest(ctx, reqID, domain.RequestStatusApproved)
		require.NoError(t, err)
		assert.Equal(t, "Alice", req.User.Name)
		rec.AssertExpectations(t)
		store.assets.AssertExpectations(t)
	})
}
