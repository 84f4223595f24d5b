// Package taxonomy owns the controlled vocabulary and the logical-consistency
// rules applied to every descriptor before persistence. Everything in this
// package is pure and deterministic.
package taxonomy

// Uncertain is the sentinel emitted when a value cannot be resolved to the
// controlled vocabulary. It is accepted everywhere a closed set is enforced.
const Uncertain = "uncertain"

// Field names the vocabulary a value is canonicalized against.
type Field string

const (
	FieldGarment         Field = "garment"
	FieldFabric          Field = "fabric"
	FieldSilhouette      Field = "silhouette"
	FieldNeckline        Field = "neckline"
	FieldSleeveLength    Field = "sleeve_length"
	FieldCollar          Field = "collar"
	FieldFinish          Field = "finish"
	FieldTexture         Field = "texture"
	FieldPattern         Field = "pattern"
	FieldLightingType    Field = "lighting_type"
	FieldLightingDir     Field = "lighting_direction"
	FieldCameraAngle     Field = "camera_angle"
	FieldCameraHeight    Field = "camera_height"
	FieldBackground      Field = "background"
	FieldShotComposition Field = "shot_composition"
)

// Garment type names the rules refer to directly.
const (
	GarmentBlazer       = "blazer"
	GarmentBomberJacket = "bomber jacket"
	GarmentShirtJacket  = "shirt jacket"
	GarmentVestGilet    = "vest/gilet"
	GarmentQuiltedVest  = "quilted vest"
	GarmentDress        = "dress"
	GarmentTwoPiece     = "two-piece"
	GarmentCoat         = "coat"
	GarmentJacket       = "jacket"
)

// vocabularies holds the closed value set per field. The sets are
// representative rather than exhaustive; Canonicalize stays total over any
// extension via the uncertain sentinel.
var vocabularies = map[Field][]string{
	FieldGarment: {
		GarmentBlazer, GarmentBomberJacket, GarmentVestGilet, GarmentQuiltedVest,
		GarmentShirtJacket, GarmentDress, GarmentTwoPiece, GarmentCoat, GarmentJacket,
		"utility shirt", "ribbed knit sweater", "outfit", "skirt", "pants",
		"jumpsuit", "shirt", "blouse", "t-shirt", "cardigan", "trench coat",
		"parka", "hoodie", "shorts", "leggings", "gown",
	},
	FieldFabric: {
		"cotton twill", "ponte knit", "nylon taffeta", "wool suiting",
		"silk charmeuse", "denim", "leather", "suede", "linen", "cashmere",
		"merino wool", "boiled wool", "jersey", "chiffon", "organza", "tweed",
		"corduroy", "velvet", "satin", "crepe", "poplin", "flannel",
		"ripstop nylon", "technical mesh", "scuba knit", "boucle",
	},
	FieldSilhouette: {
		"fitted", "tailored", "oversized", "relaxed", "a-line", "straight",
		"boxy", "draped", "bodycon", "flared", "wrap", "column", "cocoon",
	},
	FieldNeckline: {
		"crew neck", "v-neck", "scoop neck", "boat neck", "turtleneck",
		"mock neck", "square neck", "sweetheart", "halter", "off-shoulder",
		"collared",
	},
	FieldSleeveLength: {
		"sleeveless", "cap sleeve", "short sleeve", "three-quarter sleeve",
		"long sleeve", "bracelet sleeve",
	},
	FieldCollar: {
		"notched lapel", "peaked lapel", "shawl collar", "shirt collar",
		"band collar", "mandarin collar", "spread collar", "camp collar",
		"funnel neck", "no collar",
	},
	FieldFinish: {
		"matte", "glossy", "satin finish", "brushed", "coated", "washed",
		"distressed", "polished", "raw",
	},
	FieldTexture: {
		"smooth", "ribbed", "quilted", "cable knit", "waffle", "slubbed",
		"napped", "crinkled", "pleated",
	},
	FieldPattern: {
		"solid", "striped", "plaid", "houndstooth", "herringbone", "floral",
		"polka dot", "animal print", "abstract", "colorblock", "pinstripe",
	},
	FieldLightingType: {
		"natural light", "studio softbox", "hard flash", "golden hour",
		"overcast", "diffused", "dramatic", "rim lighting", "high key",
		"low key",
	},
	FieldLightingDir: {
		"front", "side", "back", "top", "three-quarter", "ambient",
	},
	FieldCameraAngle: {
		"eye level", "low angle", "high angle", "three-quarter angle",
		"profile", "straight on",
	},
	FieldCameraHeight: {
		"full length", "three-quarter length", "waist up", "close up",
	},
	FieldBackground: {
		"studio seamless", "white backdrop", "grey backdrop", "urban street",
		"industrial interior", "natural outdoor", "minimal interior",
		"textured wall", "runway",
	},
	FieldShotComposition: {
		"editorial", "lookbook", "e-commerce", "street style", "campaign",
		"detail shot", "runway",
	},
}

// genericFabricTerms are rejected outright; they trigger a stricter retry.
var genericFabricTerms = map[string]struct{}{
	"fabric":   {},
	"material": {},
	"cloth":    {},
	"textile":  {},
	"unknown":  {},
}

// Vocabulary returns the allowed values for a field. The returned slice must
// not be mutated.
func Vocabulary(field Field) []string {
	return vocabularies[field]
}
