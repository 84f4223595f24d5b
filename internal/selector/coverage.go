package selector

import (
	"strings"
	"time"

	"github.com/atelier-ai/atelier/internal/database/types"
	"github.com/atelier-ai/atelier/internal/database/types/enum"
	"github.com/atelier-ai/atelier/pkg/utils"
	"github.com/google/uuid"
)

// coverageMinSupport is the occurrence count a profile value needs before the
// coverage analysis expects batches to represent it.
const coverageMinSupport = 2

// analyzeCoverage compares the selected specs against the profile
// distributions and flags slots whose coverage falls under the target
// percentage. Gap boosts are multipliers in [1.2, 2.0] scaled by severity.
func analyzeCoverage(
	userID string, batchID uuid.UUID, profile *types.StyleProfile,
	selected []*Candidate, targetPct float64,
) (*types.CoverageReport, []*types.AttributeGap) {
	now := time.Now()

	report := &types.CoverageReport{
		ID:           uuid.New(),
		UserID:       userID,
		BatchID:      batchID,
		SlotCoverage: make(map[enum.Slot]float64),
		CreatedAt:    now,
	}

	var gaps []*types.AttributeGap

	if profile == nil {
		return report, gaps
	}

	for _, slot := range enum.Slots() {
		expected := supportedValues(profile.Distributions[slot])
		if len(expected) == 0 {
			continue
		}

		covered := 0

		var uncovered []string

		for _, value := range expected {
			if slotCovered(selected, slot, value) {
				covered++
			} else {
				uncovered = append(uncovered, value)
			}
		}

		pct := float64(covered) / float64(len(expected)) * 100
		report.SlotCoverage[slot] = pct

		if pct >= targetPct {
			continue
		}

		severity := 1 - pct/100

		gaps = append(gaps, &types.AttributeGap{
			ID:               uuid.New(),
			UserID:           userID,
			Slot:             slot,
			UncoveredValues:  uncovered,
			Severity:         severity,
			RecommendedBoost: utils.Clamp(1.2+0.8*severity, 1.2, 2.0),
			Active:           true,
			CreatedAt:        now,
		})
	}

	return report, gaps
}

// supportedValues lists the distribution values above minimal support,
// sorted by count descending so gap lists lead with the biggest misses.
func supportedValues(dist types.Distribution) []string {
	type pair struct {
		value string
		count int
	}

	pairs := make([]pair, 0, len(dist))

	for value, count := range dist {
		if count >= coverageMinSupport {
			pairs = append(pairs, pair{value: value, count: count})
		}
	}

	for i := 1; i < len(pairs); i++ {
		for j := i; j > 0 && (pairs[j].count > pairs[j-1].count ||
			(pairs[j].count == pairs[j-1].count && pairs[j].value < pairs[j-1].value)); j-- {
			pairs[j], pairs[j-1] = pairs[j-1], pairs[j]
		}
	}

	values := make([]string, len(pairs))
	for i, p := range pairs {
		values[i] = p.value
	}

	return values
}

// slotCovered reports whether any selected spec carries the value in the slot.
// Matching is a case-insensitive substring check so "oversized blazer" covers
// the profile value "blazer".
func slotCovered(selected []*Candidate, slot enum.Slot, value string) bool {
	needle := strings.ToLower(value)

	for _, c := range selected {
		have := strings.ToLower(c.Prompt.Spec.SlotValue(slot))
		if have == "" {
			continue
		}

		if strings.Contains(have, needle) || strings.Contains(needle, have) {
			return true
		}
	}

	return false
}
