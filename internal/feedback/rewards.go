// Package feedback turns user interaction events into learning updates for
// the preference and attribute stores.
package feedback

import (
	"math"

	"github.com/atelier-ai/atelier/internal/database/types/enum"
)

const (
	// impressionCapMS saturates dwell-time credit.
	impressionCapMS = 10000.0
	// impressionMaxReward is the preference reward at a saturated dwell.
	impressionMaxReward = 0.3
	// critiqueDeltaReward is applied per token a critique adds or removes.
	critiqueDeltaReward = 0.3
)

// preferenceRewards maps event kinds to token-preference rewards.
// Impressions are handled separately since they scale with dwell time.
var preferenceRewards = map[enum.FeedbackKind]float64{
	enum.FeedbackKindLike:            1.0,
	enum.FeedbackKindSave:            1.0,
	enum.FeedbackKindShare:           1.2,
	enum.FeedbackKindGenerateSimilar: 1.5,
	enum.FeedbackKindDislike:         -0.5,
	enum.FeedbackKindDelete:          -1.0,
}

// attributeRewards maps event kinds to bandit posterior updates. These are an
// order of magnitude gentler than preference rewards so a single reaction
// never swamps a slot's history.
var attributeRewards = map[enum.FeedbackKind]float64{
	enum.FeedbackKindLike:            0.1,
	enum.FeedbackKindSave:            0.1,
	enum.FeedbackKindShare:           0.15,
	enum.FeedbackKindGenerateSimilar: 0.3,
	enum.FeedbackKindDislike:         -0.1,
	enum.FeedbackKindDelete:          -0.2,
}

// preferenceReward resolves the token-preference reward for an event.
func preferenceReward(kind enum.FeedbackKind, payload map[string]any) float64 {
	switch kind {
	case enum.FeedbackKindImpression:
		return impressionReward(payload)
	case enum.FeedbackKindSwipe:
		if swipeRight(payload) {
			return 0.5
		}

		return -0.3
	default:
		return preferenceRewards[kind]
	}
}

// attributeReward resolves the bandit reward for an event. Impressions carry
// no attribute signal.
func attributeReward(kind enum.FeedbackKind, payload map[string]any) float64 {
	if kind == enum.FeedbackKindSwipe {
		if swipeRight(payload) {
			return 0.05
		}

		return -0.05
	}

	return attributeRewards[kind]
}

// impressionReward scales dwell time into a small positive reward, saturating
// at the cap so parked tabs do not read as enthusiasm.
func impressionReward(payload map[string]any) float64 {
	duration, ok := payload["duration_ms"].(float64)
	if !ok || duration <= 0 {
		return 0
	}

	return math.Min(duration, impressionCapMS) / impressionCapMS * impressionMaxReward
}

func swipeRight(payload map[string]any) bool {
	direction, _ := payload["direction"].(string)

	return direction == "right"
}
