package prompt

import (
	"strings"

	"github.com/atelier-ai/atelier/internal/database/types/enum"
	"github.com/atelier-ai/atelier/internal/taxonomy"
)

// defaultPoseTokens always render when no learned pose exists. The campaign
// front-facing framing is non-negotiable for e-commerce output.
const defaultPoseTokens = "(three-quarter length shot:1.3), (model facing camera:1.3), (front-facing pose:1.2)"

// frontPoseOverride replaces learned poses that imply a turned model.
const frontPoseOverride = "3/4 front angle"

// negativeTokens must appear in every negative prompt.
var negativeTokens = []string{
	"back view", "rear view", "turned away",
	"blurry", "distorted proportions", "extra limbs", "watermark",
}

// tokenCandidates are the builder-owned pools the RLHF store picks from.
// The builder owns the token-to-category mapping end to end.
var tokenCandidates = map[enum.TokenCategory][]string{
	enum.TokenCategoryLighting: {
		"soft studio lighting", "golden hour glow", "dramatic rim light",
		"diffused daylight", "high key lighting",
	},
	enum.TokenCategoryComposition: {
		"centered composition", "rule of thirds", "negative space",
		"tight crop", "full frame",
	},
	enum.TokenCategoryStyle: {
		"editorial fashion photography", "lookbook style", "campaign imagery",
		"e-commerce catalog style", "street style photography",
	},
	enum.TokenCategoryQuality: {
		"sharp detail", "professional photography", "8k resolution",
		"crisp fabric texture", "magazine quality",
	},
	enum.TokenCategoryMood: {
		"confident", "understated elegance", "effortless",
		"polished", "relaxed sophistication",
	},
	enum.TokenCategoryModelPose: {
		"model facing camera", "three-quarter length shot", "front-facing pose",
		"hands in pockets", "walking stride",
	},
}

// TokenCandidates returns the candidate pool per category.
func TokenCandidates() map[enum.TokenCategory][]string {
	return tokenCandidates
}

// fiberNames recognizes bare fiber mentions in user commands. The fabric
// vocabulary stores full material phrases ("wool suiting", "cotton twill"),
// so a command saying just "wool" would otherwise go unnoticed.
var fiberNames = []string{"wool", "silk", "cotton", "nylon"}

// colorWords recognizes color mentions in user commands; the descriptor
// taxonomy has no closed color set.
var colorWords = []string{
	"black", "white", "ivory", "cream", "beige", "camel", "tan", "brown",
	"charcoal", "grey", "gray", "navy", "blue", "teal", "green", "olive",
	"khaki", "red", "burgundy", "rust", "orange", "yellow", "mustard",
	"pink", "blush", "purple", "lavender", "silver", "gold",
}

// ExtractCommandSlots pulls explicit slot values out of a free-text command
// by matching against the controlled vocabulary. Longer matches win so
// "bomber jacket" beats "jacket".
func ExtractCommandSlots(command string) map[enum.Slot]string {
	command = strings.ToLower(command)
	slots := make(map[enum.Slot]string)

	match := func(slot enum.Slot, values []string) {
		best := ""

		for _, value := range values {
			if strings.Contains(command, value) && len(value) > len(best) {
				best = value
			}
		}

		if best != "" {
			slots[slot] = best
		}
	}

	fabrics := make([]string, 0, len(taxonomy.Vocabulary(taxonomy.FieldFabric))+len(fiberNames))
	fabrics = append(fabrics, taxonomy.Vocabulary(taxonomy.FieldFabric)...)
	fabrics = append(fabrics, fiberNames...)

	match(enum.SlotGarment, taxonomy.Vocabulary(taxonomy.FieldGarment))
	match(enum.SlotFabric, fabrics)
	match(enum.SlotSilhouette, taxonomy.Vocabulary(taxonomy.FieldSilhouette))
	match(enum.SlotFinish, taxonomy.Vocabulary(taxonomy.FieldFinish))
	match(enum.SlotBackground, taxonomy.Vocabulary(taxonomy.FieldBackground))
	match(enum.SlotLighting, taxonomy.Vocabulary(taxonomy.FieldLightingType))
	match(enum.SlotColor, colorWords)

	return slots
}
