package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextRequestStatus(t *testing.T) {
	tests := []struct {
		name    string
		from    RequestStatus
		event   RequestEvent
		want    RequestStatus
		wantErr error
	}{
		{"approve pending", RequestStatusPending, RequestEventApprove, RequestStatusApproved, nil},
		{"reject pending", RequestStatusPending, RequestEventReject, RequestStatusRejected, nil},
		{"return approved", RequestStatusApproved, RequestEventReturn, RequestStatusReturned, nil},
		{"return pending", RequestStatusPending, RequestEventReturn, "", ErrInvalidState},
		{"approve approved", RequestStatusApproved, RequestEventApprove, "", ErrInvalidState},
		{"reject approved", RequestStatusApproved, RequestEventReject, "", ErrInvalidState},
		{"approve rejected", RequestStatusRejected, RequestEventApprove, "", ErrInvalidState},
		{"reject rejected", RequestStatusRejected, RequestEventReject, "", ErrInvalidState},
		{"return rejected", RequestStatusRejected, RequestEventReturn, "", ErrInvalidState},
		{"approve returned", RequestStatusReturned, RequestEventApprove, "", ErrInvalidState},
		{"return returned", RequestStatusReturned, RequestEventReturn, "", ErrInvalidState},
		{"unknown status", RequestStatus("LOST"), RequestEventApprove, "", ErrInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextRequestStatus(tt.from, tt.event)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTerminalStatusesHaveNoTransitions(t *testing.T) {
	for _, s := range []RequestStatus{RequestStatusRejected, RequestStatusReturned} {
		assert.True(t, s.Terminal())
		for _, ev := range []RequestEvent{RequestEventApprove, RequestEventReject, RequestEventReturn} {
			_, err := NextRequestStatus(s, ev)
			assert.ErrorIs(t, err, ErrInvalidState)
		}
	}
	assert.False(t, RequestStatusPending.Terminal())
	assert.False(t, RequestStatusApproved.Terminal())
}

func TestDecisionEvent(t *testing.T) {
	ev, err := DecisionEvent(RequestStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, RequestEventApprove, ev)

	ev, err = DecisionEvent(RequestStatusRejected)
	require.NoError(t, err)
	assert.Equal(t, RequestEventReject, ev)

	for _, s := range []RequestStatus{RequestStatusPending, RequestStatusReturned, "approved", ""} {
		_, err := DecisionEvent(s)
		assert.ErrorIs(t, err, ErrValidation, "status %q", s)
	}
}

func TestAsset_AssignAndRelease(t *testing.T) {
	a := &Asset{Status: AssetStatusAvailable}
	assert.True(t, a.Consistent())

	require.NoError(t, a.AssignTo("user-1"))
	assert.Equal(t, AssetStatusAssigned, a.Status)
	assert.True(t, a.IsAssignedTo("user-1"))
	assert.True(t, a.Consistent())

	// A second assignment must not overwrite the holder.
	assert.ErrorIs(t, a.AssignTo("user-2"), ErrAssetUnavailable)
	assert.True(t, a.IsAssignedTo("user-1"))

	require.NoError(t, a.Release())
	assert.Equal(t, AssetStatusAvailable, a.Status)
	assert.Nil(t, a.AssignedTo)
	assert.True(t, a.Consistent())

	assert.ErrorIs(t, a.Release(), ErrInvalidState)
}

func TestAsset_Consistent(t *testing.T) {
	uid := "u"
	empty := ""
	assert.False(t, (&Asset{Status: AssetStatusAssigned}).Consistent())
	assert.False(t, (&Asset{Status: AssetStatusAssigned, AssignedTo: &empty}).Consistent())
	assert.False(t, (&Asset{Status: AssetStatusAvailable, AssignedTo: &uid}).Consistent())
	assert.True(t, (&Asset{Status: AssetStatusAssigned, AssignedTo: &uid}).Consistent())
}
