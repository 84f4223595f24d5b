package feedback

import (
	"testing"

	"github.com/atelier-ai/atelier/internal/database/types/enum"
	"github.com/stretchr/testify/assert"
)

func TestPreferenceRewardTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind enum.FeedbackKind
		want float64
	}{
		{kind: enum.FeedbackKindLike, want: 1.0},
		{kind: enum.FeedbackKindSave, want: 1.0},
		{kind: enum.FeedbackKindShare, want: 1.2},
		{kind: enum.FeedbackKindGenerateSimilar, want: 1.5},
		{kind: enum.FeedbackKindDislike, want: -0.5},
		{kind: enum.FeedbackKindDelete, want: -1.0},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, preferenceReward(tt.kind, nil), 0.001, string(tt.kind))
	}
}

func TestAttributeRewardTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind enum.FeedbackKind
		want float64
	}{
		{kind: enum.FeedbackKindLike, want: 0.1},
		{kind: enum.FeedbackKindShare, want: 0.15},
		{kind: enum.FeedbackKindGenerateSimilar, want: 0.3},
		{kind: enum.FeedbackKindDislike, want: -0.1},
		{kind: enum.FeedbackKindDelete, want: -0.2},
		{kind: enum.FeedbackKindImpression, want: 0},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, attributeReward(tt.kind, nil), 0.001, string(tt.kind))
	}
}

func TestImpressionRewardScalesWithDwell(t *testing.T) {
	t.Parallel()

	half := preferenceReward(enum.FeedbackKindImpression, map[string]any{"duration_ms": 5000.0})
	assert.InDelta(t, 0.15, half, 0.001)

	// Dwell saturates at the cap
	parked := preferenceReward(enum.FeedbackKindImpression, map[string]any{"duration_ms": 600000.0})
	assert.InDelta(t, 0.3, parked, 0.001)

	assert.Zero(t, preferenceReward(enum.FeedbackKindImpression, nil))
	assert.Zero(t, preferenceReward(enum.FeedbackKindImpression, map[string]any{"duration_ms": -50.0}))
}

func TestSwipeRewards(t *testing.T) {
	t.Parallel()

	right := map[string]any{"direction": "right"}
	left := map[string]any{"direction": "left"}

	assert.InDelta(t, 0.5, preferenceReward(enum.FeedbackKindSwipe, right), 0.001)
	assert.InDelta(t, -0.3, preferenceReward(enum.FeedbackKindSwipe, left), 0.001)
	assert.InDelta(t, 0.05, attributeReward(enum.FeedbackKindSwipe, right), 0.001)
	assert.InDelta(t, -0.05, attributeReward(enum.FeedbackKindSwipe, left), 0.001)

	// Missing direction reads as a pass
	assert.InDelta(t, -0.3, preferenceReward(enum.FeedbackKindSwipe, nil), 0.001)
}
