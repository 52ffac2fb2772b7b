package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextStatus(t *testing.T) {
	cases := []struct {
		current string
		action  string
		want    string
		legal   bool
	}{
		{SwapStatusPending, SwapActionApprove, SwapStatusApproved, true},
		{SwapStatusPending, SwapActionReject, SwapStatusRejected, true},
		{SwapStatusPending, SwapActionCancel, SwapStatusCancelled, true},
		{SwapStatusApproved, SwapActionComplete, SwapStatusCompleted, true},

		// completing a pending request must fail
		{SwapStatusPending, SwapActionComplete, "", false},
		// terminal states accept nothing
		{SwapStatusRejected, SwapActionApprove, "", false},
		{SwapStatusCancelled, SwapActionComplete, "", false},
		{SwapStatusCompleted, SwapActionCancel, "", false},
		// approved can only complete
		{SwapStatusApproved, SwapActionApprove, "", false},
		{SwapStatusApproved, SwapActionReject, "", false},
		{SwapStatusApproved, SwapActionCancel, "", false},
		// unknown action
		{SwapStatusPending, "archive", "", false},
	}
	for _, tc := range cases {
		got, legal := NextStatus(tc.current, tc.action)
		assert.Equal(t, tc.legal, legal, "%s + %s", tc.current, tc.action)
		assert.Equal(t, tc.want, got, "%s + %s", tc.current, tc.action)
	}
}

func TestValidSwapType(t *testing.T) {
	assert.True(t, ValidSwapType(SwapTypeItemForItem))
	assert.True(t, ValidSwapType(SwapTypeItemForPoints))
	assert.True(t, ValidSwapType(SwapTypePointsForItem))
	assert.True(t, ValidSwapType(SwapTypeMixed))
	assert.False(t, ValidSwapType(""))
	assert.False(t, ValidSwapType("barter"))
}
