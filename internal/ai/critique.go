package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/atelier-ai/atelier/internal/ai/client"
	"github.com/atelier-ai/atelier/internal/database/types/enum"
	"github.com/atelier-ai/atelier/internal/setup/config"
	"github.com/atelier-ai/atelier/pkg/utils"
	"github.com/bytedance/sonic"
	"github.com/openai/openai-go"
	"go.uber.org/zap"
)

const critiqueSystemPrompt = `You convert a fashion designer's free-text critique of a generated image
into structured prompt deltas.

Output format:
{
  "add": [{"category": "string", "token": "string"}],
  "remove": [{"category": "string", "token": "string"}],
  "slot_overrides": {"slot": "value"}
}

Valid categories: lighting, composition, style, quality, mood, modelPose.
Valid slots: garment, fabric, color, lighting, camera, background, silhouette, finish, details.

Rules:
1. "add" lists tokens the user wants MORE of; "remove" lists tokens they want gone.
2. Only include slot_overrides when the critique names a concrete replacement value.
3. Tokens are short lowercase phrases, not sentences.
4. Return empty arrays when the critique carries no actionable signal.`

// CritiqueDelta is one token the critique referenced.
type CritiqueDelta struct {
	Category string `json:"category"`
	Token    string `json:"token"`
}

// CritiqueAnalysis is the structured form of a free-text critique.
type CritiqueAnalysis struct {
	Add           []CritiqueDelta   `json:"add"`
	Remove        []CritiqueDelta   `json:"remove"`
	SlotOverrides map[string]string `json:"slot_overrides"`
}

// CritiqueSchema is the JSON schema for the critique analysis response.
var CritiqueSchema = utils.GenerateSchema[CritiqueAnalysis]()

// CritiqueAnalyzer parses free-text critiques into structured deltas.
type CritiqueAnalyzer struct {
	chat   client.ChatCompletions
	model  string
	logger *zap.Logger
}

// NewCritiqueAnalyzer creates a CritiqueAnalyzer instance.
func NewCritiqueAnalyzer(chat client.ChatCompletions, cfg *config.Config, logger *zap.Logger) *CritiqueAnalyzer {
	return &CritiqueAnalyzer{
		chat:   chat,
		model:  cfg.Common.OpenAI.CritiqueModel,
		logger: logger.Named("ai_critique"),
	}
}

// Parse converts critique text into deltas, dropping entries with unknown
// categories or slots. The retry callback reparses each attempt so transient
// malformed output is retried rather than surfaced.
func (a *CritiqueAnalyzer) Parse(ctx context.Context, text string) (*CritiqueAnalysis, error) {
	var analysis *CritiqueAnalysis

	err := a.chat.NewWithRetry(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(critiqueSystemPrompt),
			openai.UserMessage("Critique: " + text),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        "critiqueAnalysis",
					Description: openai.String("Structured deltas parsed from a critique"),
					Schema:      CritiqueSchema,
					Strict:      openai.Bool(true),
				},
			},
		},
		Model:       a.model,
		Temperature: openai.Float(0.1),
	}, func(resp *openai.ChatCompletion, err error) error {
		if err != nil {
			return nil // already counted by the retry loop
		}

		if len(resp.Choices) == 0 || len(resp.Choices[0].Message.Content) == 0 {
			return fmt.Errorf("%w: no response from model", utils.ErrContentBlocked)
		}

		var parsed CritiqueAnalysis
		if err := sonic.Unmarshal([]byte(resp.Choices[0].Message.Content), &parsed); err != nil {
			return fmt.Errorf("JSON unmarshal error: %w", err)
		}

		analysis = sanitizeCritique(&parsed)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("critique parse failed: %w", err)
	}

	return analysis, nil
}

// sanitizeCritique drops deltas with unknown categories and overrides with
// unknown slots.
func sanitizeCritique(parsed *CritiqueAnalysis) *CritiqueAnalysis {
	clean := &CritiqueAnalysis{SlotOverrides: make(map[string]string)}

	keep := func(deltas []CritiqueDelta) []CritiqueDelta {
		out := make([]CritiqueDelta, 0, len(deltas))

		for _, d := range deltas {
			d.Token = strings.ToLower(strings.TrimSpace(d.Token))
			if d.Token == "" || !enum.ValidTokenCategory(enum.TokenCategory(d.Category)) {
				continue
			}

			out = append(out, d)
		}

		return out
	}

	clean.Add = keep(parsed.Add)
	clean.Remove = keep(parsed.Remove)

	for slot, value := range parsed.SlotOverrides {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}

		for _, known := range enum.Slots() {
			if enum.Slot(slot) == known {
				clean.SlotOverrides[slot] = value
				break
			}
		}
	}

	return clean
}
