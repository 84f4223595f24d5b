package prompt_test

import (
	"testing"

	"github.com/atelier-ai/atelier/internal/database/types/enum"
	"github.com/atelier-ai/atelier/internal/prompt"
	"github.com/stretchr/testify/assert"
)

func TestClassifySpecificity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		command string
		want    enum.Specificity
	}{
		{
			name:    "empty command",
			command: "",
			want:    enum.SpecificityLow,
		},
		{
			name:    "vague request",
			command: "surprise me with something new",
			want:    enum.SpecificityLow,
		},
		{
			name:    "single attribute",
			command: "something with a blazer maybe",
			want:    enum.SpecificityLow,
		},
		{
			name:    "two attributes",
			command: "a fitted blazer in a dark color",
			want:    enum.SpecificityMedium,
		},
		{
			name:    "bare fiber mention",
			command: "a wool coat",
			want:    enum.SpecificityMedium,
		},
		{
			name:    "technical fabric request",
			command: "a blazer in wool suiting with notched lapel details",
			want:    enum.SpecificityHigh,
		},
		{
			name:    "construction callout",
			command: "navy wool double-breasted blazer with peak lapels",
			want:    enum.SpecificityHigh,
		},
		{
			name:    "imperative precision",
			command: "must be exactly a cotton twill bomber jacket",
			want:    enum.SpecificityHigh,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, prompt.ClassifySpecificity(tt.command))
		})
	}
}

func TestParamsFor(t *testing.T) {
	t.Parallel()

	low := prompt.ParamsFor(enum.SpecificityLow)
	assert.InDelta(t, 0.8, low.Creativity, 0.001)
	assert.InDelta(t, 0.9, low.BrandDNA, 0.001)
	assert.False(t, low.RespectIntent)

	high := prompt.ParamsFor(enum.SpecificityHigh)
	assert.InDelta(t, 0.2, high.Creativity, 0.001)
	assert.InDelta(t, 0.3, high.BrandDNA, 0.001)
	assert.True(t, high.RespectIntent)
}

func TestExtractCommandSlots(t *testing.T) {
	t.Parallel()

	slots := prompt.ExtractCommandSlots("an oversized bomber jacket in nylon taffeta, olive please")

	assert.Equal(t, "bomber jacket", slots[enum.SlotGarment])
	assert.Equal(t, "nylon taffeta", slots[enum.SlotFabric])
	assert.Equal(t, "oversized", slots[enum.SlotSilhouette])
	assert.Equal(t, "olive", slots[enum.SlotColor])
}

func TestExtractCommandSlotsBareFiber(t *testing.T) {
	t.Parallel()

	slots := prompt.ExtractCommandSlots("navy wool double-breasted blazer with peak lapels")

	assert.Equal(t, "blazer", slots[enum.SlotGarment])
	assert.Equal(t, "wool", slots[enum.SlotFabric])
	assert.Equal(t, "navy", slots[enum.SlotColor])
}

func TestExtractCommandSlotsLongestMatchWins(t *testing.T) {
	t.Parallel()

	slots := prompt.ExtractCommandSlots("a quilted vest over everything")

	assert.Equal(t, "quilted vest", slots[enum.SlotGarment])
}

func TestExtractCommandSlotsEmpty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, prompt.ExtractCommandSlots("make something beautiful"))
}
