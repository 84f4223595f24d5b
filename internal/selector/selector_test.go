package selector

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/atelier-ai/atelier/internal/database/types"
	"github.com/atelier-ai/atelier/internal/database/types/enum"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	return buf.Bytes()
}

// checkerboard alternates 32px blocks so its contrast survives the scorer's
// thumbnail downsampling.
func checkerboard(size int) image.Image {
	img := image.NewGray(image.Rect(0, 0, size, size))

	for y := range size {
		for x := range size {
			if (x/32+y/32)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}

	return img
}

func flatGray(size int) image.Image {
	img := image.NewGray(image.Rect(0, 0, size, size))

	for y := range size {
		for x := range size {
			img.SetGray(x, y, color.Gray{Y: 128})
		}
	}

	return img
}

func TestScoreSharpBeatsFlat(t *testing.T) {
	t.Parallel()

	scorer := NewHeuristicScorer()
	gen := &types.Generation{Provider: "flux", Seed: "42"}

	sharp := scorer.Score(gen, encodePNG(t, checkerboard(512)))
	flat := scorer.Score(gen, encodePNG(t, flatGray(512)))

	assert.Greater(t, sharp, flat)
	assert.LessOrEqual(t, sharp, 100.0)
	assert.GreaterOrEqual(t, flat, 0.0)
}

func TestScoreUndecodableIsZero(t *testing.T) {
	t.Parallel()

	scorer := NewHeuristicScorer()

	assert.Zero(t, scorer.Score(&types.Generation{}, []byte("not an image")))
	assert.Zero(t, scorer.Score(&types.Generation{}, nil))
}

func TestScoreMetadataBand(t *testing.T) {
	t.Parallel()

	data := encodePNG(t, flatGray(64))
	scorer := NewHeuristicScorer()

	bare := scorer.Score(&types.Generation{}, data)
	full := scorer.Score(&types.Generation{Provider: "openai", Seed: "7"}, data)

	assert.InDelta(t, 20.0, full-bare, 0.001)
}

func TestResolutionScoreCaps(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 40.0, resolutionScore(flatGray(1024)), 0.001)
	assert.InDelta(t, 10.0, resolutionScore(flatGray(512)), 0.001)
}

func candidate(quality float64, promptID uuid.UUID, spec types.PromptSpec) *Candidate {
	return &Candidate{
		Generation: &types.Generation{ID: uuid.New()},
		Prompt:     &types.Prompt{ID: promptID, Spec: spec},
		Quality:    quality,
		features:   featureSet(&spec),
	}
}

func TestGreedyPickPrefersDiversity(t *testing.T) {
	t.Parallel()

	blazerSpec := types.PromptSpec{Garment: "blazer", Fabric: "wool suiting", ColorPalette: "charcoal"}
	coatSpec := types.PromptSpec{Garment: "trench coat", Fabric: "cotton gabardine", ColorPalette: "camel"}

	a := candidate(90, uuid.New(), blazerSpec)
	b := candidate(88, uuid.New(), blazerSpec)
	c := candidate(70, uuid.New(), coatSpec)

	selected := greedyPick([]*Candidate{a, b, c}, 2, 0.6)

	require.Len(t, selected, 2)
	assert.Equal(t, a, selected[0], "highest quality goes first")
	assert.Equal(t, c, selected[1], "distinct spec beats near-duplicate despite lower quality")
}

func TestGreedyPickPairBonus(t *testing.T) {
	t.Parallel()

	promptID := uuid.New()
	spec := types.PromptSpec{Garment: "slip dress", Fabric: "silk charmeuse"}

	a := candidate(80, promptID, spec)
	sibling := candidate(75, promptID, spec)
	rival := candidate(75, uuid.New(), spec)

	selected := greedyPick([]*Candidate{a, sibling, rival}, 2, 0.6)

	require.Len(t, selected, 2)
	assert.Equal(t, promptID, selected[1].Prompt.ID, "sibling of a selected prompt wins the tie")
}

func TestGreedyPickBounds(t *testing.T) {
	t.Parallel()

	assert.Nil(t, greedyPick(nil, 3, 0.6))
	assert.Nil(t, greedyPick([]*Candidate{candidate(80, uuid.New(), types.PromptSpec{})}, 0, 0.6))

	one := greedyPick([]*Candidate{candidate(80, uuid.New(), types.PromptSpec{Garment: "blazer"})}, 5, 0.6)
	assert.Len(t, one, 1)
}

func TestSimilarity(t *testing.T) {
	t.Parallel()

	a := featureSet(&types.PromptSpec{Garment: "blazer", Fabric: "wool suiting"})
	b := featureSet(&types.PromptSpec{Garment: "blazer", Fabric: "silk charmeuse"})
	c := featureSet(&types.PromptSpec{Garment: "trench coat", Fabric: "cotton gabardine"})

	assert.Equal(t, 1.0, similarity(a, a))
	assert.InDelta(t, 1.0/3.0, similarity(a, b), 0.001)
	assert.Zero(t, similarity(a, c))
	assert.Zero(t, similarity(a, featureSet(&types.PromptSpec{})))
}

func TestDiversityScore(t *testing.T) {
	t.Parallel()

	same := types.PromptSpec{Garment: "blazer"}
	diff := types.PromptSpec{Garment: "trench coat"}

	assert.Equal(t, 1.0, diversityScore(nil))
	assert.Equal(t, 1.0, diversityScore([]*Candidate{candidate(80, uuid.New(), same)}))

	identical := []*Candidate{candidate(80, uuid.New(), same), candidate(70, uuid.New(), same)}
	assert.Zero(t, diversityScore(identical))

	distinct := []*Candidate{candidate(80, uuid.New(), same), candidate(70, uuid.New(), diff)}
	assert.Equal(t, 1.0, diversityScore(distinct))
}

func TestAnalyzeCoverage(t *testing.T) {
	t.Parallel()

	profile := &types.StyleProfile{
		Distributions: map[enum.Slot]types.Distribution{
			enum.SlotGarment: {"blazer": 4, "trench coat": 3, "slip dress": 2, "rare vest": 1},
			enum.SlotFabric:  {"wool suiting": 3, "silk charmeuse": 2},
		},
	}

	selected := []*Candidate{
		candidate(90, uuid.New(), types.PromptSpec{Garment: "oversized blazer", Fabric: "wool suiting"}),
		candidate(85, uuid.New(), types.PromptSpec{Garment: "trench coat", Fabric: "wool suiting"}),
	}

	report, gaps := analyzeCoverage("user-1", uuid.New(), profile, selected, 80)

	// rare vest sits under minimal support and does not count against coverage
	assert.InDelta(t, 100.0*2/3, report.SlotCoverage[enum.SlotGarment], 0.001)
	assert.InDelta(t, 50.0, report.SlotCoverage[enum.SlotFabric], 0.001)

	require.Len(t, gaps, 2)

	for _, gap := range gaps {
		switch gap.Slot {
		case enum.SlotGarment:
			assert.Equal(t, []string{"slip dress"}, gap.UncoveredValues)
		case enum.SlotFabric:
			assert.Equal(t, []string{"silk charmeuse"}, gap.UncoveredValues)
			assert.InDelta(t, 0.5, gap.Severity, 0.001)
			assert.InDelta(t, 1.6, gap.RecommendedBoost, 0.001)
		default:
			t.Fatalf("unexpected gap slot %s", gap.Slot)
		}

		assert.True(t, gap.Active)
		assert.GreaterOrEqual(t, gap.RecommendedBoost, 1.2)
		assert.LessOrEqual(t, gap.RecommendedBoost, 2.0)
	}
}

func TestAnalyzeCoverageFullySatisfied(t *testing.T) {
	t.Parallel()

	profile := &types.StyleProfile{
		Distributions: map[enum.Slot]types.Distribution{
			enum.SlotGarment: {"blazer": 4},
		},
	}

	selected := []*Candidate{
		candidate(90, uuid.New(), types.PromptSpec{Garment: "blazer"}),
	}

	report, gaps := analyzeCoverage("user-1", uuid.New(), profile, selected, 80)

	assert.InDelta(t, 100.0, report.SlotCoverage[enum.SlotGarment], 0.001)
	assert.Empty(t, gaps)
}

func TestAnalyzeCoverageNilProfile(t *testing.T) {
	t.Parallel()

	report, gaps := analyzeCoverage("user-1", uuid.New(), nil, nil, 80)

	assert.Empty(t, report.SlotCoverage)
	assert.Empty(t, gaps)
}
