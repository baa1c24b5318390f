package jobs

import (
	"context"
	"fmt"

	"assettracker-backend/internal/domain"
	"assettracker-backend/internal/logger"
	"assettracker-backend/internal/repository"
)

// Violation kinds reported by Reconcile.
const (
	ViolationAssignedWithoutAssignee = "assigned_without_assignee"
	ViolationAvailableWithAssignee   = "available_with_assignee"
	ViolationAssigneeWithoutApproval = "assignee_without_approved_request"
	ViolationMultipleApproved        = "multiple_approved_requests"
	ViolationApprovedNotHolding      = "approved_request_not_holding_asset"
)

type Violation struct {
	Kind      string
	AssetID   string
	RequestID string
	Detail    string
}

type ReconcileReport struct {
	AssetsChecked   int
	RequestsChecked int
	Violations      []Violation
}

func (r *ReconcileReport) CountByKind() map[string]int {
	counts := map[string]int{
		ViolationAssignedWithoutAssignee: 0,
		ViolationAvailableWithAssignee:   0,
		ViolationAssigneeWithoutApproval: 0,
		ViolationMultipleApproved:        0,
		ViolationApprovedNotHolding:      0,
	}
	for _, v := range r.Violations {
		counts[v.Kind]++
	}
	return counts
}

// Reconcile checks the stored assets and requests against the assignment rules. It only
// reports; nothing is repaired.
func (jr *JobRunner) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	assets, err := jr.store.Assets().List(ctx, repository.AssetFilter{})
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	approved, err := jr.store.Requests().List(ctx, repository.RequestFilter{Status: domain.RequestStatusApproved})
	if err != nil {
		return nil, fmt.Errorf("list approved requests: %w", err)
	}

	approvedByAsset := make(map[string][]domain.AssetRequest)
	for _, req := range approved {
		approvedByAsset[req.AssetID] = append(approvedByAsset[req.AssetID], req)
	}

	report := &ReconcileReport{AssetsChecked: len(assets), RequestsChecked: len(approved)}
	add := func(v Violation) {
		report.Violations = append(report.Violations, v)
		logger.Warn("Assignment invariant violated", "kind", v.Kind, "asset_id", v.AssetID, "request_id", v.RequestID, "detail", v.Detail)
	}

	for _, asset := range assets {
		reqs := approvedByAsset[asset.ID]

		switch {
		case asset.Status == domain.AssetStatusAssigned && asset.AssignedTo == nil:
			add(Violation{Kind: ViolationAssignedWithoutAssignee, AssetID: asset.ID})
		case asset.Status == domain.AssetStatusAvailable && asset.AssignedTo != nil:
			add(Violation{Kind: ViolationAvailableWithAssignee, AssetID: asset.ID, Detail: *asset.AssignedTo})
		case asset.Status == domain.AssetStatusAssigned:
			if !anyFromUser(reqs, *asset.AssignedTo) {
				add(Violation{Kind: ViolationAssigneeWithoutApproval, AssetID: asset.ID, Detail: *asset.AssignedTo})
			}
		}

		if len(reqs) > 1 {
			add(Violation{Kind: ViolationMultipleApproved, AssetID: asset.ID, Detail: fmt.Sprintf("%d approved requests", len(reqs))})
		}
		for _, req := range reqs {
			if !asset.IsAssignedTo(req.UserID) {
				add(Violation{Kind: ViolationApprovedNotHolding, AssetID: asset.ID, RequestID: req.ID, Detail: req.UserID})
			}
		}
	}

	jr.gauges.SetViolations(report.CountByKind())
	logger.Info("Assignment reconcile finished",
		"assets", report.AssetsChecked, "approved_requests", report.RequestsChecked, "violations", len(report.Violations))
	return report, nil
}

func anyFromUser(reqs []domain.AssetRequest, userID string) bool {
	for _, r := range reqs {
		if r.UserID == userID {
			return true
		}
	}
	return false
}
