package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"assettracker-backend/internal/domain"
	"assettracker-backend/internal/repository"
	"assettracker-backend/internal/security"
)

// MockUserRepo
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}
func (m *MockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserRepo) ListByIDs(ctx context.Context, ids []string) ([]domain.User, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]domain.User), args.Error(1)
}

// MockAssetRepo
type MockAssetRepo struct {
	mock.Mock
}

func (m *MockAssetRepo) Create(ctx context.Context, asset *domain.Asset) error {
	args := m.Called(ctx, asset)
	return args.Error(0)
}
func (m *MockAssetRepo) GetByID(ctx context.Context, id string) (*domain.Asset, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Asset), args.Error(1)
}
func (m *MockAssetRepo) List(ctx context.Context, filter repository.AssetFilter) ([]domain.Asset, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Asset), args.Error(1)
}
func (m *MockAssetRepo) UpdateStatus(ctx context.Context, asset *domain.Asset, expected domain.AssetStatus) error {
	args := m.Called(ctx, asset, expected)
	return args.Error(0)
}

// MockRequestRepo
type MockRequestRepo struct {
	mock.Mock
}

func (m *MockRequestRepo) Create(ctx context.Context, req *domain.AssetRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}
func (m *MockRequestRepo) GetByID(ctx context.Context, id string) (*domain.AssetRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AssetRequest), args.Error(1)
}
func (m *MockRequestRepo) FindPending(ctx context.Context, assetID, userID string) (*domain.AssetRequest, error) {
	args := m.Called(ctx, assetID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AssetRequest), args.Error(1)
}
func (m *MockRequestRepo) List(ctx context.Context, filter repository.RequestFilter) ([]domain.AssetRequest, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.AssetRequest), args.Error(1)
}
func (m *MockRequestRepo) UpdateStatus(ctx context.Context, req *domain.AssetRequest, expected domain.RequestStatus) error {
	args := m.Called(ctx, req, expected)
	return args.Error(0)
}

// mockStore hands out the mock repositories and runs WithinTx callbacks inline.
type mockStore struct {
	users    *MockUserRepo
	assets   *MockAssetRepo
	requests *MockRequestRepo
}

func newMockStore() *mockStore {
	return &mockStore{users: new(MockUserRepo), assets: new(MockAssetRepo), requests: new(MockRequestRepo)}
}

func (s *mockStore) Users() repository.UserRepository            { return s.users }
func (s *mockStore) Assets() repository.AssetRepository          { return s.assets }
func (s *mockStore) Requests() repository.AssetRequestRepository { return s.requests }
func (s *mockStore) Ping(context.Context) error                  { return nil }
func (s *mockStore) Close(context.Context) error                 { return nil }
func (s *mockStore) WithinTx(ctx context.Context, fn func(context.Context, repository.Store) error) error {
	return fn(ctx, s)
}

// MockTokenManager
type MockTokenManager struct {
	mock.Mock
}

func (m *MockTokenManager) GenerateAccessToken(user *domain.User) (string, error) {
	args := m.Called(user)
	return args.String(0), args.Error(1)
}
func (m *MockTokenManager) ValidateToken(token string) (*security.UserClaims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*security.UserClaims), args.Error(1)
}

// MockRecorder
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) RecordTransition(entity, from, to string) {
	m.Called(entity, from, to)
}
func (m *MockRecorder) RecordRejection(operation, reason string) {
	m.Called(operation, reason)
}
