// Package memory is an in-process implementation of repository.Store. It is safe for
// concurrent use and intended for tests and local development.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"assettracker-backend/internal/domain"
	"assettracker-backend/internal/repository"
)

type Store struct {
	mu       sync.RWMutex
	txMu     sync.Mutex
	now      func() time.Time
	users    map[string]domain.User
	emails   map[string]string
	assets   map[string]domain.Asset
	requests map[string]domain.AssetRequest

	assetOrder   []string
	requestOrder []string
}

var _ repository.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		now:      time.Now,
		users:    make(map[string]domain.User),
		emails:   make(map[string]string),
		assets:   make(map[string]domain.Asset),
		requests: make(map[string]domain.AssetRequest),
	}
}

func (s *Store) Users() repository.UserRepository            { return &userRepo{s: s} }
func (s *Store) Assets() repository.AssetRepository          { return &assetRepo{s: s} }
func (s *Store) Requests() repository.AssetRequestRepository { return &requestRepo{s: s} }
func (s *Store) Ping(context.Context) error                  { return nil }
func (s *Store) Close(context.Context) error                 { return nil }

// WithinTx serialises transactions. Writes made through the tx store are undone in
// reverse order when fn fails.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &txStore{s: s}
	if err := fn(ctx, tx); err != nil {
		s.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// txStore records undo steps for every write made through it.
type txStore struct {
	s    *Store
	undo []func()
}

func (t *txStore) Users() repository.UserRepository            { return &userRepo{s: t.s, tx: t} }
func (t *txStore) Assets() repository.AssetRepository          { return &assetRepo{s: t.s, tx: t} }
func (t *txStore) Requests() repository.AssetRequestRepository { return &requestRepo{s: t.s, tx: t} }
func (t *txStore) Ping(context.Context) error                  { return nil }
func (t *txStore) Close(context.Context) error                 { return nil }

func (t *txStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	return fn(ctx, t)
}

func (t *txStore) record(undo func()) {
	if t != nil {
		t.undo = append(t.undo, undo)
	}
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}

// Users ----------------------------------------------------------------------

type userRepo struct {
	s  *Store
	tx *txStore
}

func (r *userRepo) Create(_ context.Context, u *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	email := strings.ToLower(u.Email)
	if _, exists := r.s.emails[email]; exists {
		return domain.ErrEmailTaken
	}
	if u.ID == "" {
		u.ID = domain.NewID()
	}
	u.Email = email
	u.CreatedAt = r.s.now()
	r.s.users[u.ID] = *u
	r.s.emails[email] = u.ID

	id := u.ID
	r.tx.record(func() {
		delete(r.s.users, id)
		delete(r.s.emails, email)
	})
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.emails[strings.ToLower(email)]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u := r.s.users[id]
	return &u, nil
}

func (r *userRepo) ListByIDs(_ context.Context, ids []string) ([]domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// Assets ---------------------------------------------------------------------

type assetRepo struct {
	s  *Store
	tx *txStore
}

func (r *assetRepo) Create(_ context.Context, a *domain.Asset) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if a.ID == "" {
		a.ID = domain.NewID()
	}
	now := r.s.now()
	a.CreatedAt, a.UpdatedAt = now, now
	stored := *a
	stored.Assignee = nil
	r.s.assets[a.ID] = stored
	r.s.assetOrder = append(r.s.assetOrder, a.ID)

	id := a.ID
	r.tx.record(func() {
		delete(r.s.assets, id)
		r.s.assetOrder = removeID(r.s.assetOrder, id)
	})
	return nil
}

func (r *assetRepo) GetByID(_ context.Context, id string) (*domain.Asset, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.assets[id]
	if !ok {
		return nil, domain.ErrAssetNotFound
	}
	return &a, nil
}

func (r *assetRepo) List(_ context.Context, f repository.AssetFilter) ([]domain.Asset, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var wanted map[string]bool
	if f.IDs != nil {
		wanted = make(map[string]bool, len(f.IDs))
		for _, id := range f.IDs {
			wanted[id] = true
		}
	}
	out := make([]domain.Asset, 0)
	for _, id := range r.s.assetOrder {
		if wanted != nil && !wanted[id] {
			continue
		}
		a := r.s.assets[id]
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.AssignedTo != "" && !a.IsAssignedTo(f.AssignedTo) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *assetRepo) UpdateStatus(_ context.Context, a *domain.Asset, expected domain.AssetStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	prev, ok := r.s.assets[a.ID]
	if !ok {
		return domain.ErrAssetNotFound
	}
	if prev.Status != expected {
		return repository.ErrStaleState
	}
	next := prev
	next.Status = a.Status
	next.AssignedTo = a.AssignedTo
	next.UpdatedAt = r.s.now()
	r.s.assets[a.ID] = next
	a.UpdatedAt = next.UpdatedAt

	r.tx.record(func() { r.s.assets[prev.ID] = prev })
	return nil
}

// Requests -------------------------------------------------------------------

type requestRepo struct {
	s  *Store
	tx *txStore
}

func (r *requestRepo) Create(_ context.Context, req *domain.AssetRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if req.Status == domain.RequestStatusPending && r.pendingLocked(req.AssetID, req.UserID) != nil {
		return domain.ErrDuplicateRequest
	}
	if req.ID == "" {
		req.ID = domain.NewID()
	}
	now := r.s.now()
	req.CreatedAt, req.UpdatedAt = now, now
	stored := *req
	stored.Asset, stored.User = nil, nil
	r.s.requests[req.ID] = stored
	r.s.requestOrder = append(r.s.requestOrder, req.ID)

	id := req.ID
	r.tx.record(func() {
		delete(r.s.requests, id)
		r.s.requestOrder = removeID(r.s.requestOrder, id)
	})
	return nil
}

func (r *requestRepo) pendingLocked(assetID, userID string) *domain.AssetRequest {
	for _, id := range r.s.requestOrder {
		req := r.s.requests[id]
		if req.AssetID == assetID && req.UserID == userID && req.Status == domain.RequestStatusPending {
			return &req
		}
	}
	return nil
}

func (r *requestRepo) GetByID(_ context.Context, id string) (*domain.AssetRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	req, ok := r.s.requests[id]
	if !ok {
		return nil, domain.ErrRequestNotFound
	}
	return &req, nil
}

func (r *requestRepo) FindPending(_ context.Context, assetID, userID string) (*domain.AssetRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if req := r.pendingLocked(assetID, userID); req != nil {
		return req, nil
	}
	return nil, domain.ErrRequestNotFound
}

func (r *requestRepo) List(_ context.Context, f repository.RequestFilter) ([]domain.AssetRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.AssetRequest, 0)
	for _, id := range r.s.requestOrder {
		req := r.s.requests[id]
		if f.AssetID != "" && req.AssetID != f.AssetID {
			continue
		}
		if f.UserID != "" && req.UserID != f.UserID {
			continue
		}
		if f.Status != "" && req.Status != f.Status {
			continue
		}
		out = append(out, req)
	}
	return out, nil
}

func (r *requestRepo) UpdateStatus(_ context.Context, req *domain.AssetRequest, expected domain.RequestStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	prev, ok := r.s.requests[req.ID]
	if !ok {
		return domain.ErrRequestNotFound
	}
	if prev.Status != expected {
		return repository.ErrStaleState
	}
	next := prev
	next.Status = req.Status
	next.UpdatedAt = r.s.now()
	r.s.requests[req.ID] = next
	req.UpdatedAt = next.UpdatedAt

	r.tx.record(func() { r.s.requests[prev.ID] = prev })
	return nil
}
