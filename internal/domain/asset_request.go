package domain

import "time"

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "PENDING"
	RequestStatusApproved RequestStatus = "APPROVED"
	RequestStatusRejected RequestStatus = "REJECTED"
	RequestStatusReturned RequestStatus = "RETURNED"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusPending, RequestStatusApproved, RequestStatusRejected, RequestStatusReturned:
		return true
	}
	return false
}

// Terminal reports whether no further transition can leave s.
func (s RequestStatus) Terminal() bool {
	return s == RequestStatusRejected || s == RequestStatusReturned
}

type AssetRequest struct {
	ID        string        `json:"_id"`
	AssetID   string        `json:"assetId"`
	UserID    string        `json:"userId"`
	Status    RequestStatus `json:"status"`
	Asset     *Asset        `json:"asset,omitempty"` // Populated when listing
	User      *UserSummary  `json:"user,omitempty"`  // Populated when listing
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}
