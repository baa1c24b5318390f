// Package storetest holds the behavioural contract every repository.Store backend must
// satisfy. Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assettracker-backend/internal/domain"
	"assettracker-backend/internal/repository"
)

// Run executes the contract against stores produced by newStore. Each subtest gets a
// fresh store.
func Run(t *testing.T, newStore func(t *testing.T) repository.Store) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("Assets", func(t *testing.T) { testAssets(t, newStore(t)) })
	t.Run("Requests", func(t *testing.T) { testRequests(t, newStore(t)) })
	t.Run("ConditionalUpdates", func(t *testing.T) { testConditionalUpdates(t, newStore(t)) })
	t.Run("TxRollback", func(t *testing.T) { testTxRollback(t, newStore(t)) })
	t.Run("ConcurrentPendingCreate", func(t *testing.T) { testConcurrentPendingCreate(t, newStore(t)) })
	t.Run("CompetingApprovals", func(t *testing.T) { testCompetingApprovals(t, newStore(t)) })
}

func seedUser(t *testing.T, store repository.Store, email string) *domain.User {
	t.Helper()
	u := &domain.User{Name: "User " + email, Email: email, PasswordHash: "hash", Role: domain.RoleUser}
	require.NoError(t, store.Users().Create(context.Background(), u))
	return u
}

func seedAsset(t *testing.T, store repository.Store, name string) *domain.Asset {
	t.Helper()
	a := &domain.Asset{Name: name, Type: "Laptop", Status: domain.AssetStatusAvailable}
	require.NoError(t, store.Assets().Create(context.Background(), a))
	return a
}

func testUsers(t *testing.T, store repository.Store) {
	ctx := context.Background()
	u := seedUser(t, store, "Alice@Example.com")
	assert.Len(t, u.ID, domain.IDLength)
	assert.Equal(t, "alice@example.com", u.Email)

	got, err := store.Users().GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, domain.RoleUser, got.Role)

	got, err = store.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "hash", got.PasswordHash)

	err = store.Users().Create(ctx, &domain.User{Name: "dup", Email: "ALICE@example.com", Role: domain.RoleUser})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)

	_, err = store.Users().GetByID(ctx, domain.NewID())
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	bob := seedUser(t, store, "bob@example.com")
	users, err := store.Users().ListByIDs(ctx, []string{u.ID, bob.ID, domain.NewID()})
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func testAssets(t *testing.T, store repository.Store) {
	ctx := context.Background()
	mac := seedAsset(t, store, "MacBook")
	seedAsset(t, store, "ThinkPad")
	assert.Len(t, mac.ID, domain.IDLength)
	assert.False(t, mac.CreatedAt.IsZero())

	got, err := store.Assets().GetByID(ctx, mac.ID)
	require.NoError(t, err)
	assert.Equal(t, "MacBook", got.Name)
	assert.Equal(t, domain.AssetStatusAvailable, got.Status)
	assert.Nil(t, got.AssignedTo)

	_, err = store.Assets().GetByID(ctx, domain.NewID())
	assert.ErrorIs(t, err, domain.ErrAssetNotFound)

	byID, err := store.Assets().List(ctx, repository.AssetFilter{IDs: []string{mac.ID, domain.NewID()}})
	require.NoError(t, err)
	require.Len(t, byID, 1)
	assert.Equal(t, mac.ID, byID[0].ID)

	none, err := store.Assets().List(ctx, repository.AssetFilter{IDs: []string{}})
	require.NoError(t, err)
	assert.Empty(t, none)

	all, err := store.Assets().List(ctx, repository.AssetFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "MacBook", all[0].Name)

	user := seedUser(t, store, "holder@example.com").ID
	require.NoError(t, got.AssignTo(user))
	require.NoError(t, store.Assets().UpdateStatus(ctx, got, domain.AssetStatusAvailable))

	mine, err := store.Assets().List(ctx, repository.AssetFilter{AssignedTo: user})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, mac.ID, mine[0].ID)
	assert.True(t, mine[0].IsAssignedTo(user))

	available, err := store.Assets().List(ctx, repository.AssetFilter{Status: domain.AssetStatusAvailable})
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, "ThinkPad", available[0].Name)
}

func testRequests(t *testing.T, store repository.Store) {
	ctx := context.Background()
	asset := seedAsset(t, store, "MacBook")
	alice := seedUser(t, store, "alice@example.com").ID
	bob := seedUser(t, store, "bob@example.com").ID

	r1 := &domain.AssetRequest{AssetID: asset.ID, UserID: alice, Status: domain.RequestStatusPending}
	require.NoError(t, store.Requests().Create(ctx, r1))
	assert.Len(t, r1.ID, domain.IDLength)

	dup := &domain.AssetRequest{AssetID: asset.ID, UserID: alice, Status: domain.RequestStatusPending}
	assert.ErrorIs(t, store.Requests().Create(ctx, dup), domain.ErrDuplicateRequest)

	r2 := &domain.AssetRequest{AssetID: asset.ID, UserID: bob, Status: domain.RequestStatusPending}
	require.NoError(t, store.Requests().Create(ctx, r2))

	pending, err := store.Requests().FindPending(ctx, asset.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, r1.ID, pending.ID)

	_, err = store.Requests().FindPending(ctx, domain.NewID(), alice)
	assert.ErrorIs(t, err, domain.ErrRequestNotFound)

	_, err = store.Requests().GetByID(ctx, domain.NewID())
	assert.ErrorIs(t, err, domain.ErrRequestNotFound)

	mine, err := store.Requests().List(ctx, repository.RequestFilter{UserID: bob})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, r2.ID, mine[0].ID)

	all, err := store.Requests().List(ctx, repository.RequestFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// Once the first request leaves PENDING the pair may be requested again.
	r1.Status = domain.RequestStatusRejected
	require.NoError(t, store.Requests().UpdateStatus(ctx, r1, domain.RequestStatusPending))
	again := &domain.AssetRequest{AssetID: asset.ID, UserID: alice, Status: domain.RequestStatusPending}
	require.NoError(t, store.Requests().Create(ctx, again))

	rejected, err := store.Requests().List(ctx, repository.RequestFilter{Status: domain.RequestStatusRejected})
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	assert.Equal(t, r1.ID, rejected[0].ID)
}

func testConditionalUpdates(t *testing.T, store repository.Store) {
	ctx := context.Background()
	asset := seedAsset(t, store, "Monitor")
	first := seedUser(t, store, "first@example.com").ID
	second := seedUser(t, store, "second@example.com").ID
	req := &domain.AssetRequest{AssetID: asset.ID, UserID: first, Status: domain.RequestStatusPending}
	require.NoError(t, store.Requests().Create(ctx, req))

	req.Status = domain.RequestStatusApproved
	require.NoError(t, store.Requests().UpdateStatus(ctx, req, domain.RequestStatusPending))

	// A second writer that read PENDING loses.
	stale := *req
	stale.Status = domain.RequestStatusRejected
	assert.ErrorIs(t, store.Requests().UpdateStatus(ctx, &stale, domain.RequestStatusPending), repository.ErrStaleState)

	got, err := store.Requests().GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusApproved, got.Status)

	winner := *asset
	require.NoError(t, winner.AssignTo(first))
	require.NoError(t, store.Assets().UpdateStatus(ctx, &winner, domain.AssetStatusAvailable))

	loser := *asset
	require.NoError(t, loser.AssignTo(second))
	assert.ErrorIs(t, store.Assets().UpdateStatus(ctx, &loser, domain.AssetStatusAvailable), repository.ErrStaleState)

	stored, err := store.Assets().GetByID(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, first, *stored.AssignedTo)

	missing := &domain.Asset{ID: domain.NewID(), Status: domain.AssetStatusAssigned}
	err = store.Assets().UpdateStatus(ctx, missing, domain.AssetStatusAvailable)
	assert.True(t, errors.Is(err, domain.ErrAssetNotFound) || errors.Is(err, repository.ErrStaleState), "got %v", err)
}

func testTxRollback(t *testing.T, store repository.Store) {
	ctx := context.Background()
	asset := seedAsset(t, store, "Projector")
	user := seedUser(t, store, "projector@example.com").ID
	req := &domain.AssetRequest{AssetID: asset.ID, UserID: user, Status: domain.RequestStatusPending}
	require.NoError(t, store.Requests().Create(ctx, req))

	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		r, err := tx.Requests().GetByID(ctx, req.ID)
		if err != nil {
			return err
		}
		r.Status = domain.RequestStatusApproved
		if err := tx.Requests().UpdateStatus(ctx, r, domain.RequestStatusPending); err != nil {
			return err
		}
		a, err := tx.Assets().GetByID(ctx, asset.ID)
		if err != nil {
			return err
		}
		if err := a.AssignTo(user); err != nil {
			return err
		}
		if err := tx.Assets().UpdateStatus(ctx, a, domain.AssetStatusAvailable); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	gotReq, err := store.Requests().GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusPending, gotReq.Status)

	gotAsset, err := store.Assets().GetByID(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AssetStatusAvailable, gotAsset.Status)
	assert.Nil(t, gotAsset.AssignedTo)

	err = store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		r, err := tx.Requests().GetByID(ctx, req.ID)
		if err != nil {
			return err
		}
		r.Status = domain.RequestStatusRejected
		return tx.Requests().UpdateStatus(ctx, r, domain.RequestStatusPending)
	})
	require.NoError(t, err)
	gotReq, err = store.Requests().GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusRejected, gotReq.Status)
}

func testConcurrentPendingCreate(t *testing.T, store repository.Store) {
	ctx := context.Background()
	asset := seedAsset(t, store, "Camera")
	user := seedUser(t, store, "camera@example.com").ID

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		duplicate int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := &domain.AssetRequest{AssetID: asset.ID, UserID: user, Status: domain.RequestStatusPending}
			err := store.Requests().Create(ctx, req)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, domain.ErrDuplicateRequest):
				duplicate++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, workers-1, duplicate)
}

// approve runs the approval transition for requestID the way the request service does:
// both writes in one transaction, each conditional on the status that was read.
func approve(ctx context.Context, store repository.Store, requestID string) error {
	return store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		req, err := tx.Requests().GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status != domain.RequestStatusPending {
			return domain.ErrInvalidState
		}
		asset, err := tx.Assets().GetByID(ctx, req.AssetID)
		if err != nil {
			return err
		}
		if err := asset.AssignTo(req.UserID); err != nil {
			return err
		}
		req.Status = domain.RequestStatusApproved
		if err := tx.Requests().UpdateStatus(ctx, req, domain.RequestStatusPending); err != nil {
			return err
		}
		return tx.Assets().UpdateStatus(ctx, asset, domain.AssetStatusAvailable)
	})
}

// Separate requests for one asset approved at once: exactly one transaction may commit,
// and every loser must leave its request PENDING.
func testCompetingApprovals(t *testing.T, store repository.Store) {
	ctx := context.Background()
	asset := seedAsset(t, store, "Projector")

	const workers = 6
	requests := make([]*domain.AssetRequest, workers)
	for i := range requests {
		user := seedUser(t, store, fmt.Sprintf("projector%d@example.com", i))
		req := &domain.AssetRequest{AssetID: asset.ID, UserID: user.ID, Status: domain.RequestStatusPending}
		require.NoError(t, store.Requests().Create(ctx, req))
		requests[i] = req
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		start   = make(chan struct{})
		winners []string
		lost    int
	)
	for _, req := range requests {
		wg.Add(1)
		go func(req *domain.AssetRequest) {
			defer wg.Done()
			<-start
			err := approve(ctx, store, req.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, req.UserID)
			case errors.Is(err, domain.ErrAssetUnavailable), errors.Is(err, repository.ErrStaleState):
				lost++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(req)
	}
	close(start)
	wg.Wait()

	require.Len(t, winners, 1)
	assert.Equal(t, workers-1, lost)

	got, err := store.Assets().GetByID(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AssetStatusAssigned, got.Status)
	assert.True(t, got.IsAssignedTo(winners[0]))

	approved, err := store.Requests().List(ctx, repository.RequestFilter{Status: domain.RequestStatusApproved})
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, winners[0], approved[0].UserID)

	pending, err := store.Requests().List(ctx, repository.RequestFilter{Status: domain.RequestStatusPending})
	require.NoError(t, err)
	assert.Len(t, pending, workers-1)
}
