package utils

import (
	"math"
	"strings"
)

// Clamp bounds v to [lo, hi]. NaN maps to lo so storage columns never
// receive invalid numerics.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}

	return math.Max(lo, math.Min(hi, v))
}

// RescaleConfidence normalizes a confidence value to [0, 1].
// Upstream sources report confidence either as a fraction or as a
// percentage; values above 1 are treated as percentages.
func RescaleConfidence(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}

	if v > 1 {
		v /= 100
	}

	return Clamp(v, 0, 1)
}

// RescaleCompleteness normalizes a completeness value to [0, 100].
// Values at or below 1 are treated as fractions and scaled up.
func RescaleCompleteness(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}

	if v > 0 && v <= 1 {
		v *= 100
	}

	return Clamp(v, 0, 100)
}

// RoundConfidence rounds a confidence score to 2 decimal places within [0, 1].
func RoundConfidence(v float64) float64 {
	return Clamp(math.Round(v*100)/100, 0, 1)
}

// WordCount counts whitespace-separated words in a rendered prompt.
// Weighted tokens like "(model facing camera:1.3)" count per word.
func WordCount(s string) int {
	return len(strings.Fields(s))
}
