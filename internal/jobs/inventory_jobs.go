package jobs

import (
	"context"
	"fmt"

	"assettracker-backend/internal/domain"
	"assettracker-backend/internal/logger"
	"assettracker-backend/internal/repository"
)

type InventoryCounts struct {
	Assets   map[string]int
	Requests map[string]int
}

// RefreshInventory counts assets and requests by status and publishes the counts.
func (jr *JobRunner) RefreshInventory(ctx context.Context) (*InventoryCounts, error) {
	counts := &InventoryCounts{
		Assets: map[string]int{
			string(domain.AssetStatusAvailable): 0,
			string(domain.AssetStatusAssigned):  0,
		},
		Requests: map[string]int{
			string(domain.RequestStatusPending):  0,
			string(domain.RequestStatusApproved): 0,
			string(domain.RequestStatusRejected): 0,
			string(domain.RequestStatusReturned): 0,
		},
	}

	assets, err := jr.store.Assets().List(ctx, repository.AssetFilter{})
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	for _, a := range assets {
		counts.Assets[string(a.Status)]++
	}

	reqs, err := jr.store.Requests().List(ctx, repository.RequestFilter{})
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	for _, r := range reqs {
		counts.Requests[string(r.Status)]++
	}

	jr.gauges.SetInventory(counts.Assets, counts.Requests)
	logger.Info("Inventory counts refreshed",
		"assets", counts.Assets, "requests", counts.Requests)
	return counts, nil
}
