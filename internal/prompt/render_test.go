package prompt_test

import (
	"strings"
	"testing"

	"github.com/atelier-ai/atelier/internal/database/types"
	"github.com/atelier-ai/atelier/internal/database/types/enum"
	"github.com/atelier-ai/atelier/internal/prompt"
	"github.com/stretchr/testify/assert"
)

func baseSpec() *types.PromptSpec {
	return &types.PromptSpec{
		Garment:      "blazer",
		Silhouette:   "oversized",
		ColorPalette: "charcoal",
		Fabric:       "wool suiting",
		Lighting:     "studio softbox",
		CameraAngle:  "eye level",
		Background:   "studio seamless",
		Weights:      map[enum.Slot]float64{},
	}
}

func TestRenderOrdering(t *testing.T) {
	t.Parallel()

	result := prompt.Render(baseSpec(), nil, 50)

	garmentIdx := strings.Index(result.Text, "blazer")
	fabricIdx := strings.Index(result.Text, "wool suiting")
	colorIdx := strings.Index(result.Text, "charcoal")
	poseIdx := strings.Index(result.Text, "model facing camera")
	lightIdx := strings.Index(result.Text, "studio softbox")
	bgIdx := strings.Index(result.Text, "studio seamless")

	assert.True(t, garmentIdx < fabricIdx, "garment before fabric")
	assert.True(t, fabricIdx < colorIdx, "fabric before color")
	assert.True(t, colorIdx < poseIdx, "color before pose")
	assert.True(t, poseIdx < lightIdx, "pose before lighting")
	assert.True(t, lightIdx < bgIdx, "lighting before background")
}

func TestRenderDefaultPose(t *testing.T) {
	t.Parallel()

	result := prompt.Render(baseSpec(), nil, 50)

	assert.Contains(t, result.Text, "(three-quarter length shot:1.3)")
	assert.Contains(t, result.Text, "(model facing camera:1.3)")
	assert.Contains(t, result.Text, "(front-facing pose:1.2)")
}

func TestRenderPoseAlreadyInDefaultBlock(t *testing.T) {
	t.Parallel()

	// A fresh user's greedy pick lands on a token the default block already
	// carries; the full block must render, with nothing repeated.
	spec := baseSpec()
	spec.ModelPose = "model facing camera"

	result := prompt.Render(spec, nil, 50)

	assert.Contains(t, result.Text, "(three-quarter length shot:1.3)")
	assert.Contains(t, result.Text, "(front-facing pose:1.2)")
	assert.Equal(t, 1, strings.Count(result.Text, "model facing camera"))
}

func TestRenderLearnedPoseAppended(t *testing.T) {
	t.Parallel()

	spec := baseSpec()
	spec.ModelPose = "hands in pockets"

	result := prompt.Render(spec, nil, 50)

	assert.Contains(t, result.Text, "(hands in pockets:1.3)")
	assert.Contains(t, result.Text, "(model facing camera:1.3)")
}

func TestRenderPoseOverridesTurnedModel(t *testing.T) {
	t.Parallel()

	spec := baseSpec()
	spec.ModelPose = "profile stance"

	result := prompt.Render(spec, nil, 50)

	assert.Contains(t, result.Text, "3/4 front angle")
	assert.NotContains(t, result.Text, "profile stance")
}

func TestRenderNegativeTokens(t *testing.T) {
	t.Parallel()

	result := prompt.Render(baseSpec(), nil, 50)

	assert.Contains(t, result.NegativeText, "back view")
	assert.Contains(t, result.NegativeText, "rear view")
	assert.Contains(t, result.NegativeText, "turned away")
}

func TestRenderBracketSyntax(t *testing.T) {
	t.Parallel()

	spec := baseSpec()
	spec.Weights[enum.SlotGarment] = 0.9  // signature-boosted
	spec.Weights[enum.SlotFabric] = 0.7   // default band
	spec.Weights[enum.SlotBackground] = 0.5

	result := prompt.Render(spec, nil, 50)

	assert.Contains(t, result.Text, "[oversized blazer]")
	assert.Contains(t, result.Text, "(wool suiting)")
	// w=0.5 renders bare
	assert.Contains(t, result.Text, "studio seamless")
	assert.NotContains(t, result.Text, "(studio seamless)")
}

func TestRenderClusterPrefix(t *testing.T) {
	t.Parallel()

	spec := baseSpec()
	spec.ClusterLabel = "Minimalist"

	result := prompt.Render(spec, nil, 50)

	assert.True(t, strings.HasPrefix(result.Text, "in the user's signature 'Minimalist' mode:"))
}

func TestRenderWordBudget(t *testing.T) {
	t.Parallel()

	spec := baseSpec()
	spec.Details = "hand-stitched lapels with double vents and contrast topstitching throughout"

	picks := map[enum.TokenCategory]string{
		enum.TokenCategoryStyle:   "editorial fashion photography",
		enum.TokenCategoryMood:    "understated elegance",
		enum.TokenCategoryQuality: "sharp detail",
	}

	result := prompt.Render(spec, picks, 25)

	assert.LessOrEqual(t, result.TokensUsed, 25)
	assert.True(t, result.Truncated)
	// The pose block survives truncation
	assert.Contains(t, result.Text, "model facing camera")
}

func TestRenderUnderBudgetNotTruncated(t *testing.T) {
	t.Parallel()

	result := prompt.Render(baseSpec(), nil, 50)

	assert.False(t, result.Truncated)
	assert.LessOrEqual(t, result.TokensUsed, 50)
}
