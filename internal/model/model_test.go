package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	for _, next := range []RequestStatus{RequestApproved, RequestRejected, RequestCancelled} {
		assert.True(t, CanTransition(RequestPending, next), "pending -> %s", next)
	}
	assert.False(t, CanTransition(RequestPending, RequestPending))

	for _, from := range []RequestStatus{RequestApproved, RequestRejected, RequestCancelled} {
		assert.True(t, from.Terminal())
		for _, to := range AllRequestStatuses {
			assert.False(t, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestSystemIDs_ValueScan(t *testing.T) {
	v, err := SystemIDs{3, 1, 2}.Value()
	require.NoError(t, err)
	assert.Equal(t, "[3,1,2]", v)

	var ids SystemIDs
	require.NoError(t, ids.Scan([]byte("[1,2]")))
	assert.Equal(t, SystemIDs{1, 2}, ids)
	assert.True(t, ids.Contains(2))
	assert.False(t, ids.Contains(5))

	require.NoError(t, ids.Scan(nil))
	assert.Nil(t, ids)

	v, err = SystemIDs(nil).Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	assert.Error(t, ids.Scan(42))
}

func TestSystem_Assignment(t *testing.T) {
	login, name, slot := "S1234", "Asha", "10:00-12:00"
	sys := System{ID: 1, Status: SystemReserved, AssignedLoginID: &login, AssignedName: &name, AssignedTimeSlot: &slot}

	a := sys.Assignment()
	require.NotNil(t, a)
	assert.Equal(t, Assignment{RequesterLoginID: login, RequesterName: name, TimeSlot: slot}, *a)

	sys.Status = SystemMaintenance
	assert.Nil(t, sys.Assignment())
}

func TestCategoryFor(t *testing.T) {
	assert.Equal(t, CategoryHighTier, CategoryFor(1, 14))
	assert.Equal(t, CategoryHighTier, CategoryFor(14, 14))
	assert.Equal(t, CategoryStandardTier, CategoryFor(15, 14))
}

func TestUnavailableSystemsError(t *testing.T) {
	err := error(&UnavailableSystemsError{IDs: []int{7, 999}})
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	assert.Contains(t, err.Error(), "7, 999")

	var target *UnavailableSystemsError
	require.True(t, errors.As(err, &target))
	assert.Equal(t, []int{7, 999}, target.IDs)
}

func TestCode(t *testing.T) {
	testCases := map[string]error{
		"ok":                 nil,
		"invalid_argument":   &UnavailableSystemsError{IDs: []int{3}},
		"not_found":          fmt.Errorf("get request x: %w", ErrNotFound),
		"invalid_transition": ErrInvalidTransition,
		"permission_denied":  ErrPermissionDenied,
		"conflict":           fmt.Errorf("system 1 changed: %w", ErrConflict),
		"unavailable":        fmt.Errorf("list: %w: %w", ErrUnavailable, errors.New("timeout")),
		"unauthenticated":    ErrUnauthenticated,
		"internal":           errors.New("boom"),
	}
	for want, err := range testCases {
		assert.Equal(t, want, Code(err))
	}
}
