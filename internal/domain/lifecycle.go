package domain

import "fmt"

// RequestEvent is an action applied to an asset request.
type RequestEvent string

const (
	RequestEventApprove RequestEvent = "APPROVE"
	RequestEventReject  RequestEvent = "REJECT"
	RequestEventReturn  RequestEvent = "RETURN"
)

// requestTransitions lists every legal request transition. Anything absent is ErrInvalidState.
var requestTransitions = map[RequestStatus]map[RequestEvent]RequestStatus{
	RequestStatusPending: {
		RequestEventApprove: RequestStatusApproved,
		RequestEventReject:  RequestStatusRejected,
	},
	RequestStatusApproved: {
		RequestEventReturn: RequestStatusReturned,
	},
}

// NextRequestStatus applies ev to a request currently in from.
func NextRequestStatus(from RequestStatus, ev RequestEvent) (RequestStatus, error) {
	if !from.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidState, from)
	}
	next, ok := requestTransitions[from][ev]
	if !ok {
		return "", fmt.Errorf("%w: cannot %s a %s request", ErrInvalidState, ev, from)
	}
	return next, nil
}

// DecisionEvent maps an admin decision to its lifecycle event. Only APPROVED and
// REJECTED are decisions.
func DecisionEvent(decision RequestStatus) (RequestEvent, error) {
	switch decision {
	case RequestStatusApproved:
		return RequestEventApprove, nil
	case RequestStatusRejected:
		return RequestEventReject, nil
	}
	return "", fmt.Errorf("%w: invalid status %q", ErrValidation, decision)
}
