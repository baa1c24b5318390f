package service

import (
	"context"
	"errors"
	"fmt"

	"assettracker-backend/internal/domain"
	"assettracker-backend/internal/logger"
	"assettracker-backend/internal/repository"
)

type requestService struct {
	store repository.Store
	rec   TransitionRecorder
}

func NewRequestService(store repository.Store, rec TransitionRecorder) RequestService {
	return &requestService{store: store, rec: recorderOrNoop(rec)}
}

type transition struct {
	entity   string
	from, to string
}

func (s *requestService) record(ts []transition) {
	for _, t := range ts {
		s.rec.RecordTransition(t.entity, t.from, t.to)
	}
}

// reject counts a refused operation under the name of the sentinel it failed with.
func (s *requestService) reject(op string, err error) {
	for _, kind := range []error{
		domain.ErrValidation,
		domain.ErrAssetUnavailable,
		domain.ErrDuplicateRequest,
		domain.ErrInvalidState,
		domain.ErrForbidden,
		domain.ErrRequestNotFound,
	} {
		if errors.Is(err, kind) {
			s.rec.RecordRejection(op, kind.Error())
			return
		}
	}
}

func (s *requestService) CreateRequest(ctx context.Context, assetID, userID string) (*domain.AssetRequest, error) {
	logger.EnterMethod("requestService.CreateRequest", "assetID", assetID, "userID", userID)

	assetID, err := domain.ParseID(assetID)
	if err != nil {
		s.reject("create", err)
		logger.ExitMethodWithError("requestService.CreateRequest", err, "assetID", assetID)
		return nil, err
	}

	req := &domain.AssetRequest{AssetID: assetID, UserID: userID, Status: domain.RequestStatusPending}
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		asset, err := tx.Assets().GetByID(ctx, assetID)
		if errors.Is(err, domain.ErrAssetNotFound) {
			return fmt.Errorf("%w: asset %s does not exist", domain.ErrAssetUnavailable, assetID)
		}
		if err != nil {
			return err
		}
		if asset.Status != domain.AssetStatusAvailable {
			return domain.ErrAssetUnavailable
		}

		_, err = tx.Requests().FindPending(ctx, assetID, userID)
		switch {
		case err == nil:
			return domain.ErrDuplicateRequest
		case !errors.Is(err, domain.ErrRequestNotFound):
			return err
		}

		// The store's uniqueness guard still applies if a concurrent create got here first.
		return tx.Requests().Create(ctx, req)
	})
	if err != nil {
		s.reject("create", err)
		logger.ExitMethodWithError("requestService.CreateRequest", err, "assetID", assetID, "userID", userID)
		return nil, err
	}

	s.record([]transition{{"request", "", string(domain.RequestStatusPending)}})
	logger.ExitMethod("requestService.CreateRequest", "requestID", req.ID)
	return req, nil
}

func (s *requestService) DecideRequest(ctx context.Context, requestID string, decision domain.RequestStatus) (*domain.AssetRequest, error) {
	logger.EnterMethod("requestService.DecideRequest", "requestID", requestID, "decision", decision)

	event, err := domain.DecisionEvent(decision)
	if err == nil {
		requestID, err = domain.ParseID(requestID)
	}
	if err != nil {
		s.reject("decide", err)
		logger.ExitMethodWithError("requestService.DecideRequest", err, "requestID", requestID)
		return nil, err
	}

	var (
		req     *domain.AssetRequest
		applied []transition
	)
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		applied = applied[:0]

		var err error
		req, err = tx.Requests().GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		from := req.Status
		next, err := domain.NextRequestStatus(from, event)
		if err != nil {
			return err
		}

		var asset *domain.Asset
		if event == domain.RequestEventApprove {
			asset, err = tx.Assets().GetByID(ctx, req.AssetID)
			if err != nil {
				return err
			}
			// An earlier approval may already hold the asset.
			if err := asset.AssignTo(req.UserID); err != nil {
				return err
			}
		}

		req.Status = next
		if err := tx.Requests().UpdateStatus(ctx, req, from); err != nil {
			if errors.Is(err, repository.ErrStaleState) {
				return fmt.Errorf("%w: request %s was decided concurrently", domain.ErrInvalidState, requestID)
			}
			return err
		}
		applied = append(applied, transition{"request", string(from), string(next)})

		if asset != nil {
			if err := tx.Assets().UpdateStatus(ctx, asset, domain.AssetStatusAvailable); err != nil {
				if errors.Is(err, repository.ErrStaleState) {
					return fmt.Errorf("%w: asset %s was assigned concurrently", domain.ErrAssetUnavailable, asset.ID)
				}
				return err
			}
			applied = append(applied, transition{"asset", string(domain.AssetStatusAvailable), string(asset.Status)})
			req.Asset = asset
		}
		return nil
	})
	if err != nil {
		s.reject("decide", err)
		logger.ExitMethodWithError("requestService.DecideRequest", err, "requestID", requestID)
		return nil, err
	}
	s.record(applied)

	if req.Asset == nil {
		if asset, err := s.store.Assets().GetByID(ctx, req.AssetID); err == nil {
			req.Asset = asset
		}
	}
	if user, err := s.store.Users().GetByID(ctx, req.UserID); err == nil {
		req.User = user.Summary()
	}

	logger.ExitMethod("requestService.DecideRequest", "requestID", req.ID, "status", req.Status)
	return req, nil
}

func (s *requestService) ReturnAsset(ctx context.Context, requestID, userID string) error {
	logger.EnterMethod("requestService.ReturnAsset", "requestID", requestID, "userID", userID)

	requestID, err := domain.ParseID(requestID)
	if err != nil {
		s.reject("return", err)
		logger.ExitMethodWithError("requestService.ReturnAsset", err, "requestID", requestID)
		return err
	}

	var applied []transition
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		applied = applied[:0]

		req, err := tx.Requests().GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		if req.UserID != userID {
			return domain.ErrForbidden
		}
		from := req.Status
		next, err := domain.NextRequestStatus(from, domain.RequestEventReturn)
		if err != nil {
			return err
		}

		asset, err := tx.Assets().GetByID(ctx, req.AssetID)
		if err != nil {
			return err
		}
		if !asset.IsAssignedTo(userID) {
			return fmt.Errorf("%w: asset %s is not held by the requester", domain.ErrInvalidState, asset.ID)
		}
		if err := asset.Release(); err != nil {
			return err
		}

		req.Status = next
		if err := tx.Requests().UpdateStatus(ctx, req, from); err != nil {
			if errors.Is(err, repository.ErrStaleState) {
				return fmt.Errorf("%w: request %s was returned concurrently", domain.ErrInvalidState, requestID)
			}
			return err
		}
		if err := tx.Assets().UpdateStatus(ctx, asset, domain.AssetStatusAssigned); err != nil {
			if errors.Is(err, repository.ErrStaleState) {
				return fmt.Errorf("%w: asset %s changed concurrently", domain.ErrInvalidState, asset.ID)
			}
			return err
		}
		applied = append(applied,
			transition{"request", string(from), string(next)},
			transition{"asset", string(domain.AssetStatusAssigned), string(asset.Status)},
		)
		return nil
	})
	if err != nil {
		s.reject("return", err)
		logger.ExitMethodWithError("requestService.ReturnAsset", err, "requestID", requestID, "userID", userID)
		return err
	}
	s.record(applied)

	logger.ExitMethod("requestService.ReturnAsset", "requestID", requestID)
	return nil
}

func (s *requestService) ListAllRequests(ctx context.Context) ([]domain.AssetRequest, error) {
	reqs, err := s.store.Requests().List(ctx, repository.RequestFilter{})
	if err != nil {
		return nil, err
	}
	if err := populateRequests(ctx, s.store, reqs, true); err != nil {
		return nil, err
	}
	return reqs, nil
}

func (s *requestService) ListMyRequests(ctx context.Context, userID string) ([]domain.AssetRequest, error) {
	reqs, err := s.store.Requests().List(ctx, repository.RequestFilter{UserID: userID})
	if err != nil {
		return nil, err
	}
	if err := populateRequests(ctx, s.store, reqs, false); err != nil {
		return nil, err
	}
	return reqs, nil
}
