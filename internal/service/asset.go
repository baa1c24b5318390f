package service

import (
	"context"
	"fmt"
	"strings"

	"assettracker-backend/internal/domain"
	"assettracker-backend/internal/logger"
	"assettracker-backend/internal/repository"
)

type assetService struct {
	store repository.Store
	rec   TransitionRecorder
}

func NewAssetService(store repository.Store, rec TransitionRecorder) AssetService {
	return &assetService{store: store, rec: recorderOrNoop(rec)}
}

func (s *assetService) CreateAsset(ctx context.Context, name, assetType string) (*domain.Asset, error) {
	logger.EnterMethod("assetService.CreateAsset", "name", name, "type", assetType)

	name, assetType = strings.TrimSpace(name), strings.TrimSpace(assetType)
	if name == "" || assetType == "" {
		err := fmt.Errorf("%w: name and type are required", domain.ErrValidation)
		logger.ExitMethodWithError("assetService.CreateAsset", err)
		return nil, err
	}

	asset := &domain.Asset{Name: name, Type: assetType, Status: domain.AssetStatusAvailable}
	if err := s.store.Assets().Create(ctx, asset); err != nil {
		logger.ExitMethodWithError("assetService.CreateAsset", err)
		return nil, err
	}
	s.rec.RecordTransition("asset", "", string(asset.Status))

	logger.ExitMethod("assetService.CreateAsset", "assetID", asset.ID)
	return asset, nil
}

func (s *assetService) ListAssets(ctx context.Context) ([]domain.Asset, error) {
	assets, err := s.store.Assets().List(ctx, repository.AssetFilter{})
	if err != nil {
		return nil, err
	}
	if err := populateAssignees(ctx, s.store, assets); err != nil {
		return nil, err
	}
	return assets, nil
}

func (s *assetService) ListMyAssets(ctx context.Context, userID string) ([]domain.Asset, error) {
	return s.store.Assets().List(ctx, repository.AssetFilter{AssignedTo: userID})
}
