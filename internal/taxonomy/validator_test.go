package taxonomy_test

import (
	"testing"

	"github.com/atelier-ai/atelier/internal/database/types"
	"github.com/atelier-ai/atelier/internal/taxonomy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func garment(typ string) types.Garment {
	return types.Garment{
		Type:         typ,
		SleeveLength: "long sleeve",
		Fabric:       types.Fabric{PrimaryMaterial: "wool suiting"},
	}
}

func doc(garments ...types.Garment) types.DescriptorDoc {
	return types.DescriptorDoc{Garments: garments}
}

func TestCanonicalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		field    taxonomy.Field
		value    string
		expected string
		ok       bool
	}{
		{name: "exact match", field: taxonomy.FieldGarment, value: "blazer", expected: "blazer", ok: true},
		{name: "case insensitive", field: taxonomy.FieldGarment, value: "Bomber Jacket", expected: "bomber jacket", ok: true},
		{name: "underscore delimiter", field: taxonomy.FieldGarment, value: "bomber_jacket", expected: "bomber jacket", ok: true},
		{name: "vest aliases", field: taxonomy.FieldGarment, value: "gilet", expected: "vest/gilet", ok: true},
		{name: "unknown value", field: taxonomy.FieldGarment, value: "spacesuit", expected: taxonomy.Uncertain, ok: false},
		{name: "empty value", field: taxonomy.FieldFabric, value: "", expected: taxonomy.Uncertain, ok: false},
		{name: "uncertain passes", field: taxonomy.FieldFabric, value: "uncertain", expected: taxonomy.Uncertain, ok: true},
		{name: "fabric specific", field: taxonomy.FieldFabric, value: "Silk-Charmeuse", expected: "silk charmeuse", ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := taxonomy.Canonicalize(tt.field, tt.value)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestValidateBlazerRules(t *testing.T) {
	t.Parallel()

	t.Run("blazer with shirt collar becomes shirt jacket", func(t *testing.T) {
		t.Parallel()

		g := garment("blazer")
		g.Collar = "shirt collar"

		result := taxonomy.Validate(doc(g))

		require.True(t, result.OK)
		assert.Equal(t, taxonomy.GarmentShirtJacket, result.Descriptor.Garments[0].Type)
		require.Len(t, result.Corrections, 1)
		assert.Equal(t, taxonomy.RuleBlazerShirtCollar, result.Corrections[0].RuleID)
		assert.Equal(t, "garments[0].type", result.Corrections[0].FieldPath)
	})

	t.Run("blazer with ribbed cuffs becomes bomber jacket", func(t *testing.T) {
		t.Parallel()

		g := garment("blazer")
		g.Collar = "notched lapel"
		g.ConstructionDetails = []string{"Ribbed cuffs and hem", "two-button closure"}

		result := taxonomy.Validate(doc(g))

		require.True(t, result.OK)
		assert.Equal(t, taxonomy.GarmentBomberJacket, result.Descriptor.Garments[0].Type)
	})

	t.Run("blazer with lapels is untouched", func(t *testing.T) {
		t.Parallel()

		g := garment("blazer")
		g.Collar = "peaked lapel"

		result := taxonomy.Validate(doc(g))

		require.True(t, result.OK)
		assert.Equal(t, taxonomy.GarmentBlazer, result.Descriptor.Garments[0].Type)
		assert.Empty(t, result.Corrections)
	})
}

func TestValidateSleevelessOuterwear(t *testing.T) {
	t.Parallel()

	t.Run("sleeveless jacket becomes vest", func(t *testing.T) {
		t.Parallel()

		g := garment("jacket")
		g.SleeveLength = "sleeveless"

		result := taxonomy.Validate(doc(g))

		assert.Equal(t, taxonomy.GarmentVestGilet, result.Descriptor.Garments[0].Type)
	})

	t.Run("sleeveless quilted coat becomes quilted vest", func(t *testing.T) {
		t.Parallel()

		g := garment("coat")
		g.SleeveLength = "sleeveless"
		g.ConstructionDetails = []string{"diamond quilting"}

		result := taxonomy.Validate(doc(g))

		assert.Equal(t, taxonomy.GarmentQuiltedVest, result.Descriptor.Garments[0].Type)
	})
}

func TestValidateTwoPieceDiscipline(t *testing.T) {
	t.Parallel()

	t.Run("separated dress becomes two-piece", func(t *testing.T) {
		t.Parallel()

		g := garment("dress")
		g.ConstructionDetails = []string{"visible separation at waist"}

		result := taxonomy.Validate(doc(g))

		assert.Equal(t, taxonomy.GarmentTwoPiece, result.Descriptor.Garments[0].Type)
	})

	t.Run("continuous two-piece becomes dress", func(t *testing.T) {
		t.Parallel()

		g := garment("two-piece")
		g.ConstructionDetails = []string{"continuous fabric through bodice"}

		result := taxonomy.Validate(doc(g))

		assert.Equal(t, taxonomy.GarmentDress, result.Descriptor.Garments[0].Type)
	})
}

func TestValidateGenericFabric(t *testing.T) {
	t.Parallel()

	g := garment("dress")
	g.Fabric.PrimaryMaterial = "fabric"

	result := taxonomy.Validate(doc(g))

	require.True(t, result.OK)
	assert.True(t, result.GenericFabric)
	assert.Equal(t, taxonomy.Uncertain, result.Descriptor.Garments[0].Fabric.PrimaryMaterial)
}

func TestValidateNoGarments(t *testing.T) {
	t.Parallel()

	result := taxonomy.Validate(types.DescriptorDoc{})

	assert.False(t, result.OK)
	assert.NotEmpty(t, result.Reason)
}

func TestValidateIdempotent(t *testing.T) {
	t.Parallel()

	g := garment("Blazer")
	g.Collar = "shirt_collar"
	g.ConstructionDetails = []string{"patch pockets"}
	g.Fabric.PrimaryMaterial = "Cotton Twill"

	first := taxonomy.Validate(doc(g))
	require.True(t, first.OK)
	require.NotEmpty(t, first.Corrections)

	second := taxonomy.Validate(first.Descriptor)

	assert.Equal(t, first.Descriptor, second.Descriptor)
	assert.Empty(t, second.Corrections)
}

func TestValidateNeverLeavesContradictions(t *testing.T) {
	t.Parallel()

	// Sweep representative contradictory inputs; the validator must never
	// emit a blazer with a shirt collar or sleeveless outerwear.
	inputs := []types.Garment{
		func() types.Garment {
			g := garment("blazer")
			g.Collar = "shirt collar"
			return g
		}(),
		func() types.Garment {
			g := garment("blazer")
			g.SleeveLength = "sleeveless"
			return g
		}(),
		func() types.Garment {
			g := garment("coat")
			g.SleeveLength = "sleeveless"
			return g
		}(),
	}

	for _, g := range inputs {
		result := taxonomy.Validate(doc(g))
		out := result.Descriptor.Garments[0]

		assert.False(t, out.Type == taxonomy.GarmentBlazer && out.Collar == "shirt collar")

		if out.SleeveLength == "sleeveless" {
			assert.NotContains(t,
				[]string{taxonomy.GarmentJacket, taxonomy.GarmentBlazer, taxonomy.GarmentCoat},
				out.Type)
		}
	}
}
