package prompt

import (
	"strings"

	"github.com/atelier-ai/atelier/internal/database/types"
	"github.com/atelier-ai/atelier/internal/database/types/enum"
	"github.com/atelier-ai/atelier/pkg/utils"
)

// defaultSlotWeights are the baseline importance weights before signature and
// coverage-gap boosts.
var defaultSlotWeights = map[enum.Slot]float64{
	enum.SlotGarment:    0.8,
	enum.SlotColor:      0.7,
	enum.SlotFabric:     0.7,
	enum.SlotLighting:   0.7,
	enum.SlotSilhouette: 0.6,
	enum.SlotCamera:     0.6,
	enum.SlotFinish:     0.5,
	enum.SlotBackground: 0.5,
	enum.SlotDetails:    0.4,
}

// Segment priorities drive truncation order under the word budget: the
// highest priority number is dropped first.
const (
	prioCore        = 0
	prioLearned     = 1
	prioUser        = 2
	prioExploratory = 3
)

type segment struct {
	text     string
	priority int
}

// RenderResult is the rendered prompt with its accounting.
type RenderResult struct {
	Text         string
	NegativeText string
	TokensUsed   int
	Truncated    bool
}

// bracket maps a slot weight to the emphasis syntax consumed by the image
// models: w>0.8 -> [text], w>0.5 -> (text), else bare.
func bracket(text string, weight float64) string {
	switch {
	case weight > 0.8:
		return "[" + text + "]"
	case weight > 0.5:
		return "(" + text + ")"
	default:
		return text
	}
}

// Render assembles the prompt text in the strict slot order and enforces the
// hard word budget. Truncation removes the lowest-priority segments first and
// never touches the pose block.
func Render(spec *types.PromptSpec, picks map[enum.TokenCategory]string, maxWords int) *RenderResult {
	var segments []segment

	add := func(text string, priority int) {
		if strings.TrimSpace(text) != "" {
			segments = append(segments, segment{text: text, priority: priority})
		}
	}

	weight := func(slot enum.Slot) float64 {
		if w, ok := spec.Weights[slot]; ok {
			return w
		}

		return defaultSlotWeights[slot]
	}

	// Cluster/mode prefix: bare context-setter
	if spec.ClusterLabel != "" {
		add("in the user's signature '"+spec.ClusterLabel+"' mode:", prioCore)
	}

	// Garment absorbs the silhouette so the pair reads as one phrase
	garment := spec.Garment
	if spec.Silhouette != "" && garment != "" {
		garment = spec.Silhouette + " " + garment
	}

	add(bracket(garment, weight(enum.SlotGarment)), prioCore)
	add(bracket(spec.Fabric, weight(enum.SlotFabric)), prioCore)
	add(bracket(spec.Finish, weight(enum.SlotFinish)), prioCore)
	add(bracket(spec.ColorPalette, weight(enum.SlotColor)), prioCore)

	// Model/pose block is required and never truncated
	add(poseBlock(spec.ModelPose), prioCore)

	add(bracket(spec.Lighting, weight(enum.SlotLighting)), prioCore)
	add(bracket(spec.CameraAngle, weight(enum.SlotCamera)), prioCore)
	add(bracket(spec.Background, weight(enum.SlotBackground)), prioCore)
	add(bracket(spec.Details, weight(enum.SlotDetails)), prioUser)

	// Learned modifiers
	add(picks[enum.TokenCategoryStyle], prioLearned)
	add(picks[enum.TokenCategoryMood], prioLearned)

	if spec.IsExploration {
		add(picks[enum.TokenCategoryComposition], prioExploratory)
	}

	// Quality trailer closes the prompt
	add(picks[enum.TokenCategoryQuality], prioLearned)

	truncated := enforceBudget(&segments, maxWords)

	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		parts = append(parts, s.text)
	}

	text := strings.Join(parts, ", ")

	return &RenderResult{
		Text:         text,
		NegativeText: strings.Join(negativeTokens, ", "),
		TokensUsed:   utils.WordCount(text),
		Truncated:    truncated,
	}
}

// poseBlock returns the rendered pose tokens. Learned poses implying a
// turned model are overridden to a front angle; poses the default block
// already carries render once, never duplicated alongside it.
func poseBlock(learned string) string {
	if learned == "" {
		return defaultPoseTokens
	}

	lowered := strings.ToLower(learned)
	for _, turned := range []string{"profile", "side", "back"} {
		if strings.Contains(lowered, turned) {
			return "(" + frontPoseOverride + ":1.3), (model facing camera:1.3)"
		}
	}

	if strings.Contains(defaultPoseTokens, lowered) {
		return defaultPoseTokens
	}

	return "(" + learned + ":1.3), (model facing camera:1.3)"
}

// enforceBudget drops segments until the rendered text fits the word budget.
// Within a priority tier the last segment goes first; the pose block and
// garment never go.
func enforceBudget(segments *[]segment, maxWords int) bool {
	if maxWords <= 0 {
		return false
	}

	truncated := false

	for wordCount(*segments) > maxWords {
		idx := -1

		for prio := prioExploratory; prio >= prioCore; prio-- {
			for i := len(*segments) - 1; i >= 0; i-- {
				s := (*segments)[i]
				if s.priority != prio {
					continue
				}

				// Core essentials are kept even over budget
				if prio == prioCore && (isPoseSegment(s.text) || i <= 1) {
					continue
				}

				idx = i

				break
			}

			if idx >= 0 {
				break
			}
		}

		if idx < 0 {
			break
		}

		*segments = append((*segments)[:idx], (*segments)[idx+1:]...)
		truncated = true
	}

	return truncated
}

func isPoseSegment(text string) bool {
	return strings.Contains(text, "model facing camera")
}

func wordCount(segments []segment) int {
	total := 0
	for _, s := range segments {
		total += utils.WordCount(s.text)
	}

	return total
}
