package taxonomy

import (
	"fmt"
	"strings"

	"github.com/atelier-ai/atelier/internal/database/types"
)

// Rule identifiers recorded on corrections.
const (
	RuleCanonicalize      = "canonicalize"
	RuleBlazerShirtCollar = "blazer_shirt_collar"
	RuleBlazerRibbedTrim  = "blazer_ribbed_trim"
	RuleSleevelessVest    = "sleeveless_outerwear"
	RuleTwoPieceSplit     = "two_piece_separation"
	RuleDressContinuous   = "dress_continuous_fabric"
	RuleGenericFabric     = "generic_fabric"
)

// Correction records one rule rewriting a model-supplied value.
type Correction struct {
	FieldPath      string
	AIValue        string
	CorrectedValue string
	RuleID         string
}

// Result is the outcome of validating one descriptor document.
type Result struct {
	Descriptor    types.DescriptorDoc
	Corrections   []Correction
	OK            bool
	Reason        string
	GenericFabric bool
}

// Validate canonicalizes every closed-vocabulary field of the document and
// enforces the logical-consistency rules. It is pure and idempotent:
// validating an already-validated document yields the same document with no
// corrections.
func Validate(doc types.DescriptorDoc) Result {
	result := Result{Descriptor: doc, OK: true}

	if len(result.Descriptor.Garments) == 0 {
		result.OK = false
		result.Reason = "no garments detected in image"

		return result
	}

	for i := range result.Descriptor.Garments {
		validateGarment(&result, i)
	}

	validatePhotography(&result)

	return result
}

func validateGarment(result *Result, i int) {
	g := &result.Descriptor.Garments[i]
	path := func(field string) string { return fmt.Sprintf("garments[%d].%s", i, field) }

	canonField(result, path("type"), FieldGarment, &g.Type)
	canonField(result, path("silhouette"), FieldSilhouette, &g.Silhouette)
	canonField(result, path("neckline"), FieldNeckline, &g.Neckline)
	canonField(result, path("sleeve_length"), FieldSleeveLength, &g.SleeveLength)
	canonField(result, path("collar"), FieldCollar, &g.Collar)
	canonField(result, path("finish"), FieldFinish, &g.Finish)

	// Fabric specificity before canonicalization so generic strings are
	// flagged as a retry trigger rather than silently mapped to uncertain.
	if IsGenericFabric(g.Fabric.PrimaryMaterial) {
		result.GenericFabric = true
		record(result, path("fabric.primary_material"), g.Fabric.PrimaryMaterial, Uncertain, RuleGenericFabric)
		g.Fabric.PrimaryMaterial = Uncertain
	} else {
		canonField(result, path("fabric.primary_material"), FieldFabric, &g.Fabric.PrimaryMaterial)
	}

	applyGarmentRules(result, g, path)
}

// applyGarmentRules enforces the cross-field consistency rules on one garment.
func applyGarmentRules(result *Result, g *types.Garment, path func(string) string) {
	// Sleeveless outerwear is a vest form, never a jacket or blazer.
	if g.SleeveLength == "sleeveless" && isOuterwear(g.Type) {
		corrected := GarmentVestGilet
		if hasDetail(g, "quilt") {
			corrected = GarmentQuiltedVest
		}

		record(result, path("type"), g.Type, corrected, RuleSleevelessVest)
		g.Type = corrected

		return
	}

	// A blazer must carry lapels. A shirt collar means shirt jacket;
	// ribbed cuffs or hem mean bomber jacket.
	if g.Type == GarmentBlazer {
		switch {
		case g.Collar == "shirt collar":
			record(result, path("type"), g.Type, GarmentShirtJacket, RuleBlazerShirtCollar)
			g.Type = GarmentShirtJacket
		case hasDetail(g, "ribbed cuff") || hasDetail(g, "ribbed hem"):
			record(result, path("type"), g.Type, GarmentBomberJacket, RuleBlazerRibbedTrim)
			g.Type = GarmentBomberJacket
		}
	}

	// Two-piece discipline: a visibly separated set is never a dress, and a
	// continuous-fabric garment is never a two-piece.
	if g.Type == GarmentDress && hasDetail(g, "visible separation") {
		record(result, path("type"), g.Type, GarmentTwoPiece, RuleTwoPieceSplit)
		g.Type = GarmentTwoPiece
	} else if g.Type == GarmentTwoPiece && hasDetail(g, "continuous fabric") {
		record(result, path("type"), g.Type, GarmentDress, RuleDressContinuous)
		g.Type = GarmentDress
	}
}

func validatePhotography(result *Result) {
	p := &result.Descriptor.Photography

	canonField(result, "photography.shot_composition", FieldShotComposition, &p.ShotComposition)
	canonField(result, "photography.lighting.type", FieldLightingType, &p.Lighting.Type)
	canonField(result, "photography.lighting.direction", FieldLightingDir, &p.Lighting.Direction)
	canonField(result, "photography.camera.angle", FieldCameraAngle, &p.Camera.Angle)
	canonField(result, "photography.camera.height", FieldCameraHeight, &p.Camera.Height)
	canonField(result, "photography.background", FieldBackground, &p.Background)
}

// canonField canonicalizes one field in place, recording a correction when
// the stored value changes. Empty optional fields stay empty.
func canonField(result *Result, path string, field Field, value *string) {
	if strings.TrimSpace(*value) == "" {
		return
	}

	canonical, _ := Canonicalize(field, *value)
	if canonical != *value {
		record(result, path, *value, canonical, RuleCanonicalize)
		*value = canonical
	}
}

func record(result *Result, path, aiValue, corrected, ruleID string) {
	result.Corrections = append(result.Corrections, Correction{
		FieldPath:      path,
		AIValue:        aiValue,
		CorrectedValue: corrected,
		RuleID:         ruleID,
	})
}

func isOuterwear(garmentType string) bool {
	switch garmentType {
	case GarmentJacket, GarmentBlazer, GarmentCoat, GarmentBomberJacket, GarmentShirtJacket:
		return true
	default:
		return false
	}
}

func hasDetail(g *types.Garment, substr string) bool {
	for _, d := range g.ConstructionDetails {
		if strings.Contains(strings.ToLower(d), substr) {
			return true
		}
	}

	return false
}
