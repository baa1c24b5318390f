package service

import (
	"context"

	"assettracker-backend/internal/domain"
	"assettracker-backend/internal/repository"
)

func populateAssignees(ctx context.Context, store repository.Store, assets []domain.Asset) error {
	ids := make([]string, 0, len(assets))
	for _, a := range assets {
		if a.AssignedTo != nil {
			ids = append(ids, *a.AssignedTo)
		}
	}
	users, err := usersByID(ctx, store, ids)
	if err != nil {
		return err
	}
	for i := range assets {
		if a := &assets[i]; a.AssignedTo != nil {
			if u, ok := users[*a.AssignedTo]; ok {
				a.Assignee = u.Summary()
			}
		}
	}
	return nil
}

// populateRequests attaches the referenced asset to each request and, when withUser is
// set, the requester's summary.
func populateRequests(ctx context.Context, store repository.Store, reqs []domain.AssetRequest, withUser bool) error {
	assetIDs := make([]string, 0, len(reqs))
	userIDs := make([]string, 0, len(reqs))
	for _, r := range reqs {
		assetIDs = append(assetIDs, r.AssetID)
		userIDs = append(userIDs, r.UserID)
	}

	assets, err := store.Assets().List(ctx, repository.AssetFilter{IDs: dedupe(assetIDs)})
	if err != nil {
		return err
	}
	byID := make(map[string]domain.Asset, len(assets))
	for _, a := range assets {
		byID[a.ID] = a
	}

	var users map[string]domain.User
	if withUser {
		if users, err = usersByID(ctx, store, userIDs); err != nil {
			return err
		}
	}

	for i := range reqs {
		r := &reqs[i]
		if a, ok := byID[r.AssetID]; ok {
			r.Asset = &a
		}
		if u, ok := users[r.UserID]; ok {
			r.User = u.Summary()
		}
	}
	return nil
}

func usersByID(ctx context.Context, store repository.Store, ids []string) (map[string]domain.User, error) {
	out := make(map[string]domain.User)
	if len(ids) == 0 {
		return out, nil
	}
	users, err := store.Users().ListByIDs(ctx, dedupe(ids))
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
