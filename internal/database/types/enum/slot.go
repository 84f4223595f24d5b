package enum

// Slot identifies an attribute slot the bandit can fill in a prompt spec.
type Slot string

const (
	SlotGarment    Slot = "garment"
	SlotFabric     Slot = "fabric"
	SlotColor      Slot = "color"
	SlotLighting   Slot = "lighting"
	SlotCamera     Slot = "camera"
	SlotBackground Slot = "background"
	SlotSilhouette Slot = "silhouette"
	SlotFinish     Slot = "finish"
	SlotDetails    Slot = "details"
)

// Slots lists every bandit-controlled attribute slot in prompt order.
func Slots() []Slot {
	return []Slot{
		SlotGarment,
		SlotFabric,
		SlotColor,
		SlotLighting,
		SlotCamera,
		SlotBackground,
		SlotSilhouette,
		SlotFinish,
		SlotDetails,
	}
}

// TokenCategory classifies RLHF-weighted prompt tokens.
type TokenCategory string

const (
	TokenCategoryLighting    TokenCategory = "lighting"
	TokenCategoryComposition TokenCategory = "composition"
	TokenCategoryStyle       TokenCategory = "style"
	TokenCategoryQuality     TokenCategory = "quality"
	TokenCategoryMood        TokenCategory = "mood"
	TokenCategoryModelPose   TokenCategory = "modelPose"
)

// TokenCategories lists every valid RLHF token category.
func TokenCategories() []TokenCategory {
	return []TokenCategory{
		TokenCategoryLighting,
		TokenCategoryComposition,
		TokenCategoryStyle,
		TokenCategoryQuality,
		TokenCategoryMood,
		TokenCategoryModelPose,
	}
}

// ValidTokenCategory reports whether c is one of the known categories.
func ValidTokenCategory(c TokenCategory) bool {
	switch c {
	case TokenCategoryLighting, TokenCategoryComposition, TokenCategoryStyle,
		TokenCategoryQuality, TokenCategoryMood, TokenCategoryModelPose:
		return true
	default:
		return false
	}
}
