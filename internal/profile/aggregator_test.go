package profile_test

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/atelier-ai/atelier/internal/database/types"
	"github.com/atelier-ai/atelier/internal/database/types/enum"
	"github.com/atelier-ai/atelier/internal/profile"
	"github.com/google/uuid"
	"github.com/redis/rueidis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func descriptor(confidence, completeness float64, garments ...types.Garment) *types.Descriptor {
	return &types.Descriptor{
		ID:           uuid.New(),
		ImageID:      uuid.New(),
		Confidence:   confidence,
		Completeness: completeness,
		Document: types.DescriptorDoc{
			Garments: garments,
			ContextualAttributes: types.ContextualAttributes{
				MoodAesthetic: "minimalist/utilitarian",
			},
			Photography: types.Photography{
				Lighting:   types.Lighting{Type: "studio softbox"},
				Camera:     types.Camera{Angle: "eye level"},
				Background: "studio seamless",
			},
		},
	}
}

func blazer(confidence float64) types.Garment {
	return types.Garment{
		Type:                "blazer",
		Silhouette:          "tailored",
		Fabric:              types.Fabric{PrimaryMaterial: "wool suiting"},
		ColorPalette:        []types.ColorEntry{{ColorName: "charcoal", Placement: "body"}},
		ConstructionDetails: []string{"notched lapel", "double vent"},
		Confidence:          confidence,
	}
}

func TestBuildDistributions(t *testing.T) {
	t.Parallel()

	descriptors := []*types.Descriptor{
		descriptor(0.9, 85, blazer(0.9)),
		descriptor(0.8, 80, blazer(0.85)),
		descriptor(0.7, 75, types.Garment{
			Type:         "dress",
			Fabric:       types.Fabric{PrimaryMaterial: "silk charmeuse"},
			ColorPalette: []types.ColorEntry{{ColorName: "ivory"}},
			Confidence:   0.6,
		}),
	}

	p := profile.Build("user-1", uuid.New(), descriptors)

	assert.Equal(t, 3, p.TotalImages)
	assert.Equal(t, 2, p.Distributions[enum.SlotGarment]["blazer"])
	assert.Equal(t, 1, p.Distributions[enum.SlotGarment]["dress"])
	assert.Equal(t, 2, p.Distributions[enum.SlotFabric]["wool suiting"])
	assert.Equal(t, 2, p.Distributions[enum.SlotColor]["charcoal"])
	assert.Equal(t, 3, p.Distributions[enum.SlotLighting]["studio softbox"])
}

func TestBuildThemesRequireSupport(t *testing.T) {
	t.Parallel()

	// Two descriptors carry the same themes; they survive the support filter.
	descriptors := []*types.Descriptor{
		descriptor(0.9, 85, blazer(0.9)),
		descriptor(0.8, 80, blazer(0.85)),
	}

	p := profile.Build("user-1", uuid.New(), descriptors)

	assert.Contains(t, p.Themes, "Minimalist")
	assert.Contains(t, p.Themes, "Utilitarian")

	// A single occurrence does not survive.
	single := profile.Build("user-1", uuid.New(), descriptors[:1])
	assert.Empty(t, single.Themes)
}

func TestBuildSignaturePieces(t *testing.T) {
	t.Parallel()

	descriptors := []*types.Descriptor{
		descriptor(0.9, 85, blazer(0.92)),
		// Below the confidence bar: no signature.
		descriptor(0.5, 60, blazer(0.4)),
	}

	p := profile.Build("user-1", uuid.New(), descriptors)

	require.Len(t, p.Signatures, 1)
	assert.Equal(t, "blazer", p.Signatures[0].GarmentType)
	assert.Equal(t, "notched lapel", p.Signatures[0].Detail)
	assert.InDelta(t, 0.92, p.Signatures[0].Confidence, 0.001)
}

func TestBuildQualityRollups(t *testing.T) {
	t.Parallel()

	// Percent-scaled confidence and fractional completeness are rescaled
	// before averaging.
	descriptors := []*types.Descriptor{
		descriptor(90, 0.8, blazer(0.9)),
		descriptor(0.7, 70, blazer(0.8)),
	}

	p := profile.Build("user-1", uuid.New(), descriptors)

	assert.InDelta(t, 0.8, p.AvgConfidence, 0.001)
	assert.InDelta(t, 75, p.AvgCompleteness, 0.001)
}

func TestBuildSummaryText(t *testing.T) {
	t.Parallel()

	descriptors := []*types.Descriptor{
		descriptor(0.9, 85, blazer(0.9)),
		descriptor(0.8, 80, blazer(0.85)),
	}

	p := profile.Build("user-1", uuid.New(), descriptors)

	assert.Contains(t, p.SummaryText, "Based on 2 images")
	assert.Contains(t, p.SummaryText, "blazer")
	assert.Contains(t, p.SummaryText, "charcoal")
	assert.Contains(t, p.SummaryText, "wool suiting")
}

func TestBuildEmpty(t *testing.T) {
	t.Parallel()

	p := profile.Build("user-1", uuid.New(), nil)

	assert.Equal(t, 0, p.TotalImages)
	assert.Zero(t, p.AvgConfidence)
	assert.Equal(t, "No analyzed images yet.", p.SummaryText)
}

func TestCacheRoundTrip(t *testing.T) {
	t.Parallel()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)
	defer client.Close()

	cache := profile.NewCache(client)
	ctx := t.Context()

	// Miss before set
	got, err := cache.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	p := profile.Build("user-1", uuid.New(), []*types.Descriptor{
		descriptor(0.9, 85, blazer(0.9)),
	})
	require.NoError(t, cache.Set(ctx, p))

	got, err = cache.Get(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, p.SummaryText, got.SummaryText)
	assert.Equal(t, p.TotalImages, got.TotalImages)

	require.NoError(t, cache.Delete(ctx, "user-1"))

	got, err = cache.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
