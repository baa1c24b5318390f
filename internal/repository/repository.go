package repository

import (
	"context"
	"errors"

	"assettracker-backend/internal/domain"
)

// ErrStaleState is returned by conditional writes when the stored status no longer
// matches the status the caller read.
var ErrStaleState = errors.New("repository: record changed concurrently")

type AssetFilter struct {
	Status     domain.AssetStatus
	AssignedTo string
	IDs        []string // nil means any id; empty non-nil matches nothing
}

type RequestFilter struct {
	AssetID string
	UserID  string
	Status  domain.RequestStatus
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	ListByIDs(ctx context.Context, ids []string) ([]domain.User, error)
}

type AssetRepository interface {
	Create(ctx context.Context, asset *domain.Asset) error
	GetByID(ctx context.Context, id string) (*domain.Asset, error)
	List(ctx context.Context, filter AssetFilter) ([]domain.Asset, error)
	// UpdateStatus persists asset.Status and asset.AssignedTo only if the stored status
	// still equals expected.
	UpdateStatus(ctx context.Context, asset *domain.Asset, expected domain.AssetStatus) error
}

type AssetRequestRepository interface {
	// Create fails with domain.ErrDuplicateRequest when a PENDING request already exists
	// for the same asset and user.
	Create(ctx context.Context, req *domain.AssetRequest) error
	GetByID(ctx context.Context, id string) (*domain.AssetRequest, error)
	FindPending(ctx context.Context, assetID, userID string) (*domain.AssetRequest, error)
	List(ctx context.Context, filter RequestFilter) ([]domain.AssetRequest, error)
	UpdateStatus(ctx context.Context, req *domain.AssetRequest, expected domain.RequestStatus) error
}

// Store groups the repositories of one backend. Repositories obtained from the Store
// passed to a WithinTx callback take part in that transaction.
type Store interface {
	Users() UserRepository
	Assets() AssetRepository
	Requests() AssetRequestRepository
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
