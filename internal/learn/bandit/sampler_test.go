package bandit

import (
	"testing"

	"github.com/atelier-ai/atelier/internal/database/types"
	"github.com/stretchr/testify/assert"
)

func TestBetaBounds(t *testing.T) {
	t.Parallel()

	s := NewSampler(1, 2)

	for range 1000 {
		draw := s.Beta(1, 1)
		assert.GreaterOrEqual(t, draw, 0.0)
		assert.LessOrEqual(t, draw, 1.0)
	}
}

func TestBetaConcentratesOnAlpha(t *testing.T) {
	t.Parallel()

	s := NewSampler(3, 4)

	var sum float64

	const n = 5000
	for range n {
		sum += s.Beta(50, 2)
	}

	// Mean of Beta(50, 2) is 50/52
	assert.InDelta(t, 50.0/52.0, sum/n, 0.02)
}

func TestBetaSmallShapes(t *testing.T) {
	t.Parallel()

	s := NewSampler(5, 6)

	var sum float64

	const n = 5000
	for range n {
		draw := s.Beta(0.5, 0.5)
		assert.GreaterOrEqual(t, draw, 0.0)
		assert.LessOrEqual(t, draw, 1.0)
		sum += draw
	}

	// Beta(0.5, 0.5) is symmetric around 0.5
	assert.InDelta(t, 0.5, sum/n, 0.03)
}

func TestPickThompsonPrefersStrongArm(t *testing.T) {
	t.Parallel()

	store := &Store{sampler: NewSampler(7, 8)}
	arms := []*types.BanditState{
		{Value: "blazer", Alpha: 40, Beta: 2},
		{Value: "dress", Alpha: 2, Beta: 40},
	}

	wins := 0

	for range 200 {
		if store.pickThompson(arms) == "blazer" {
			wins++
		}
	}

	// The strong arm should dominate but not own every draw
	assert.Greater(t, wins, 180)
}

func TestPickBottomQuartile(t *testing.T) {
	t.Parallel()

	store := &Store{sampler: NewSampler(9, 10)}
	arms := []*types.BanditState{
		{Value: "a", Observations: 100},
		{Value: "b", Observations: 50},
		{Value: "c", Observations: 10},
		{Value: "d", Observations: 1},
	}

	for range 50 {
		// With 4 arms the bottom quartile is exactly the least-visited arm
		assert.Equal(t, "d", store.pickBottomQuartile(arms))
	}
}
