package prompt

import (
	"strings"

	"github.com/atelier-ai/atelier/internal/database/types/enum"
	"github.com/atelier-ai/atelier/internal/taxonomy"
)

// SpecificityParams are the knobs derived from a command's specificity.
type SpecificityParams struct {
	Creativity    float64
	BrandDNA      float64
	RespectIntent bool
}

var specificityParams = map[enum.Specificity]SpecificityParams{
	enum.SpecificityLow:    {Creativity: 0.8, BrandDNA: 0.9, RespectIntent: false},
	enum.SpecificityMedium: {Creativity: 0.5, BrandDNA: 0.6, RespectIntent: false},
	enum.SpecificityHigh:   {Creativity: 0.2, BrandDNA: 0.3, RespectIntent: true},
}

// imperativeTerms signal precision the builder must respect.
var imperativeTerms = []string{"exactly", "must", "precisely", "only", "specifically"}

// technicalTerms beyond the fabric vocabulary that mark an expert command.
var technicalTerms = []string{
	"lapel", "seam", "quilted", "ribbed", "hem", "closure", "dart",
	"topstitch", "placket", "gusset", "vent", "welt", "selvedge",
	"breasted",
}

var quantityWords = map[string]struct{}{
	"one": {}, "two": {}, "three": {}, "four": {}, "five": {},
	"single": {}, "double": {}, "pair": {},
}

// ClassifySpecificity scores a free-text command by concrete attribute
// mentions, technical vocabulary, imperative precision, and quantity words.
func ClassifySpecificity(command string) enum.Specificity {
	command = strings.ToLower(strings.TrimSpace(command))
	if command == "" {
		return enum.SpecificityLow
	}

	score := 0
	fabricMatched := false

	// Concrete attribute mentions across the controlled vocabulary
	for _, field := range []taxonomy.Field{
		taxonomy.FieldGarment, taxonomy.FieldFabric, taxonomy.FieldSilhouette,
		taxonomy.FieldNeckline, taxonomy.FieldCollar, taxonomy.FieldFinish,
	} {
		for _, value := range taxonomy.Vocabulary(field) {
			if strings.Contains(command, value) {
				score++

				if field == taxonomy.FieldFabric {
					// Fabric names are technical terms in their own right
					score++
					fabricMatched = true
				}
			}
		}
	}

	// A bare fiber like "wool" is just as deliberate as a full material
	// phrase, but the fabric vocabulary only stores the compounds
	if !fabricMatched {
		for _, fiber := range fiberNames {
			if strings.Contains(command, fiber) {
				score += 2
				break
			}
		}
	}

	for _, term := range technicalTerms {
		if strings.Contains(command, term) {
			score += 2
		}
	}

	for _, term := range imperativeTerms {
		if strings.Contains(command, term) {
			score += 2
			break
		}
	}

	words := strings.Fields(command)
	quantity := 0

	for _, w := range words {
		if _, ok := quantityWords[strings.Trim(w, ".,!?")]; ok {
			quantity++
		}
	}

	if len(words) > 0 && quantity*4 >= len(words) {
		score++
	}

	switch {
	case score >= 5:
		return enum.SpecificityHigh
	case score >= 2:
		return enum.SpecificityMedium
	default:
		return enum.SpecificityLow
	}
}

// ParamsFor returns the creativity and brand-DNA knobs for a specificity.
func ParamsFor(s enum.Specificity) SpecificityParams {
	return specificityParams[s]
}
