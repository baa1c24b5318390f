package domain

import "time"

type AssetStatus string

const (
	AssetStatusAvailable AssetStatus = "AVAILABLE"
	AssetStatusAssigned  AssetStatus = "ASSIGNED"
)

func (s AssetStatus) Valid() bool {
	return s == AssetStatusAvailable || s == AssetStatusAssigned
}

type Asset struct {
	ID         string       `json:"_id"`
	Name       string       `json:"name"`
	Type       string       `json:"type"`
	Status     AssetStatus  `json:"status"`
	AssignedTo *string      `json:"assignedToId,omitempty"`
	Assignee   *UserSummary `json:"assignedTo,omitempty"` // Populated when listing
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

// AssignTo hands an available asset to userID.
func (a *Asset) AssignTo(userID string) error {
	if a.Status != AssetStatusAvailable {
		return ErrAssetUnavailable
	}
	a.Status = AssetStatusAssigned
	a.AssignedTo = &userID
	return nil
}

// Release makes an assigned asset available again.
func (a *Asset) Release() error {
	if a.Status != AssetStatusAssigned {
		return ErrInvalidState
	}
	a.Status = AssetStatusAvailable
	a.AssignedTo = nil
	a.Assignee = nil
	return nil
}

// Consistent reports whether assignedTo is set exactly when the asset is assigned.
func (a *Asset) Consistent() bool {
	hasAssignee := a.AssignedTo != nil && *a.AssignedTo != ""
	return hasAssignee == (a.Status == AssetStatusAssigned)
}

func (a *Asset) IsAssignedTo(userID string) bool {
	return a.AssignedTo != nil && *a.AssignedTo == userID
}
