package utils_test

import (
	"math"
	"testing"

	"github.com/atelier-ai/atelier/pkg/utils"
	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		v        float64
		lo, hi   float64
		expected float64
	}{
		{name: "within range", v: 0.5, lo: 0, hi: 1, expected: 0.5},
		{name: "below range", v: -0.2, lo: 0, hi: 1, expected: 0},
		{name: "above range", v: 12.4, lo: 0, hi: 9.999, expected: 9.999},
		{name: "NaN maps to floor", v: math.NaN(), lo: 0, hi: 1, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.InDelta(t, tt.expected, utils.Clamp(tt.v, tt.lo, tt.hi), 1e-9)
		})
	}
}

func TestRescaleConfidence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		v        float64
		expected float64
	}{
		{name: "fraction passes through", v: 0.85, expected: 0.85},
		{name: "percentage rescaled", v: 85, expected: 0.85},
		{name: "negative clamped", v: -3, expected: 0},
		{name: "NaN maps to zero", v: math.NaN(), expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.InDelta(t, tt.expected, utils.RescaleConfidence(tt.v), 1e-9)
		})
	}
}

func TestRescaleCompleteness(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		v        float64
		expected float64
	}{
		{name: "percentage passes through", v: 92, expected: 92},
		{name: "fraction rescaled", v: 0.92, expected: 92},
		{name: "over range clamped", v: 250, expected: 100},
		{name: "NaN maps to zero", v: math.NaN(), expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.InDelta(t, tt.expected, utils.RescaleCompleteness(tt.v), 1e-9)
		})
	}
}

func TestWordCount(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, utils.WordCount(""))
	assert.Equal(t, 3, utils.WordCount("navy wool blazer"))
	assert.Equal(t, 4, utils.WordCount("(three-quarter length shot:1.3), (palette)"))
}
