package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextRating(t *testing.T) {
	// first review becomes the rating
	assert.InDelta(t, 5.0, NextRating(0, 0, 5), 1e-9)

	// running average: (4.0*2 + 1) / 3
	assert.InDelta(t, 3.0, NextRating(4.0, 2, 1), 1e-9)

	// review count weighting: (4.375*7 + 5) / 8
	assert.InDelta(t, 4.453125, NextRating(4.375, 7, 5), 1e-9)

	// a long history barely moves
	got := NextRating(4.8, 99, 5)
	assert.InDelta(t, 4.802, got, 0.001)
}

func TestValidItemInputs(t *testing.T) {
	assert.True(t, ValidCategory("clothing"))
	assert.True(t, ValidCategory("shoes"))
	assert.False(t, ValidCategory("vehicles"))

	assert.True(t, ValidCondition(ConditionLikeNew))
	assert.False(t, ValidCondition("worn_out"))

	assert.True(t, ValidItemStatus(ItemStatusPendingSwap))
	assert.False(t, ValidItemStatus("archived"))
}
