package service

import (
	"context"

	"assettracker-backend/internal/domain"
)

type AuthService interface {
	Register(ctx context.Context, name, email, password string, role domain.Role) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, string, error) // user, access token
}

type AssetService interface {
	CreateAsset(ctx context.Context, name, assetType string) (*domain.Asset, error)
	ListAssets(ctx context.Context) ([]domain.Asset, error)
	ListMyAssets(ctx context.Context, userID string) ([]domain.Asset, error)
}

// RequestService is the request lifecycle engine. Every transition runs in one store
// transaction and writes are conditional on the status that was read.
type RequestService interface {
	CreateRequest(ctx context.Context, assetID, userID string) (*domain.AssetRequest, error)
	DecideRequest(ctx context.Context, requestID string, decision domain.RequestStatus) (*domain.AssetRequest, error)
	ReturnAsset(ctx context.Context, requestID, userID string) error
	ListAllRequests(ctx context.Context) ([]domain.AssetRequest, error)
	ListMyRequests(ctx context.Context, userID string) ([]domain.AssetRequest, error)
}

// TransitionRecorder receives applied transitions and refused operations.
type TransitionRecorder interface {
	RecordTransition(entity, from, to string)
	RecordRejection(operation, reason string)
}

type noopRecorder struct{}

func (noopRecorder) RecordTransition(string, string, string) {}
func (noopRecorder) RecordRejection(string, string)          {}

func recorderOrNoop(r TransitionRecorder) TransitionRecorder {
	if r == nil {
		return noopRecorder{}
	}
	return r
}
