// Package ai contains the vision-LLM analyzers.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atelier-ai/atelier/internal/ai/client"
	"github.com/atelier-ai/atelier/internal/database/types"
	"github.com/atelier-ai/atelier/internal/setup/config"
	"github.com/atelier-ai/atelier/internal/taxonomy"
	"github.com/atelier-ai/atelier/pkg/utils"
	"github.com/bytedance/sonic"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"go.uber.org/zap"
)

// DescriptorPromptVersion tags stored descriptors with the prompt revision
// that produced them. Bump on any change to the prompt text below.
const DescriptorPromptVersion = "v1.2"

const descriptorSystemPromptTemplate = `You are a fashion analysis expert cataloguing a designer's portfolio.

Each request contains one garment photograph. Produce a single JSON document
matching the provided schema. Use ONLY values from the controlled vocabulary
below; when a value cannot be determined from the image, use "uncertain"
instead of guessing.

Controlled vocabulary:
- garment types: %s
- silhouettes: %s
- necklines: %s
- sleeve lengths: %s
- collars: %s
- fabrics: %s
- finishes: %s

Analysis protocol (follow in order):
1. Sleeveless check: determine sleeve length first. A sleeveless outer layer
   is a vest/gilet, never a jacket, blazer, or coat.
2. Collar examination: a notched or peaked lapel indicates a blazer; a shirt
   collar on a tailored jacket indicates a shirt jacket; ribbed cuffs or hem
   indicate a bomber jacket.
3. Fabric verification: name the specific material (e.g. cotton twill, ponte
   knit, nylon taffeta). Never answer "fabric" or "material".
4. Construction details: list lapels, closures, pockets, ribbing, quilting,
   topstitching, and other visible construction.
5. Final verification: if top and bottom are continuous fabric with no
   visible separation, the garment is a dress; a visibly separated matching
   set is a two-piece. Never label a separated top and skirt as a dress.

Decision trees for confusable categories:
- blazer vs shirt jacket: lapels present -> blazer; shirt collar -> shirt jacket.
- blazer vs bomber jacket: ribbed trim at cuffs or hem -> bomber jacket.
- jacket vs vest/gilet: sleeveless -> vest/gilet.
- dress vs two-piece: continuous fabric -> dress; visible separation -> two-piece.

Model demographics are optional observations; leave a field empty rather than
guessing. Report overall_confidence in [0,1] and completeness_percentage in
[0,100] honestly.`

const descriptorRequestPrompt = `Analyze this garment photograph and return the JSON document.

Remember:
1. Follow the analysis protocol in order.
2. Use only controlled vocabulary values or "uncertain".
3. Be specific about fabric; generic terms are rejected.
4. Include every garment layer with its layer_index.`

// strictFabricPrompt is appended after a generic-fabric rejection.
const strictFabricPrompt = `Your previous answer used a generic fabric term.
Name the specific material for each garment (e.g. cotton twill, ponte knit,
wool suiting). If the material is genuinely unreadable, answer "uncertain".`

var ErrLowConfidence = errors.New("analysis below confidence threshold")

// DescriptorSchema is the JSON schema for the analysis document.
var DescriptorSchema = utils.GenerateSchema[types.DescriptorDoc]()

// descriptorSystemPrompt is built once from the controlled vocabulary.
var descriptorSystemPrompt = fmt.Sprintf(descriptorSystemPromptTemplate,
	strings.Join(taxonomy.Vocabulary(taxonomy.FieldGarment), ", "),
	strings.Join(taxonomy.Vocabulary(taxonomy.FieldSilhouette), ", "),
	strings.Join(taxonomy.Vocabulary(taxonomy.FieldNeckline), ", "),
	strings.Join(taxonomy.Vocabulary(taxonomy.FieldSleeveLength), ", "),
	strings.Join(taxonomy.Vocabulary(taxonomy.FieldCollar), ", "),
	strings.Join(taxonomy.Vocabulary(taxonomy.FieldFabric), ", "),
	strings.Join(taxonomy.Vocabulary(taxonomy.FieldFinish), ", "),
)

// ImageInput identifies one image handed to the analyzer. Ref is either a
// fetchable URL or a data URL built from the stored bytes.
type ImageInput struct {
	ImageID     uuid.UUID
	PortfolioID uuid.UUID
	Ref         string
}

// ExtractResult bundles the validated descriptor with its corrections.
type ExtractResult struct {
	Descriptor  *types.Descriptor
	Corrections []*types.DescriptorCorrection
}

// DescriptorAnalyzer extracts structured descriptors from garment images.
type DescriptorAnalyzer struct {
	chat      client.ChatCompletions
	model     string
	threshold float64
	logger    *zap.Logger
}

// NewDescriptorAnalyzer creates a DescriptorAnalyzer instance.
func NewDescriptorAnalyzer(chat client.ChatCompletions, cfg *config.Config, logger *zap.Logger) *DescriptorAnalyzer {
	return &DescriptorAnalyzer{
		chat:      chat,
		model:     cfg.Common.OpenAI.DescriptorModel,
		threshold: cfg.Server.Pipeline.ConfidenceRetry,
		logger:    logger.Named("ai_descriptor"),
	}
}

// Extract analyzes one image. Parse failures, taxonomy violations, and
// low-confidence results retry with 1s/2s/4s backoff; the final failure is
// returned to the caller, who marks the image failed without blocking the
// batch.
func (a *DescriptorAnalyzer) Extract(ctx context.Context, input ImageInput) (*ExtractResult, error) {
	strictFabric := false

	result, err := utils.WithRetry(ctx, func() (*ExtractResult, error) {
		if err := ctx.Err(); err != nil {
			return nil, backoff.Permanent(err)
		}

		res, err := a.attempt(ctx, input, strictFabric)
		if err != nil {
			var genericErr *genericFabricError
			if errors.As(err, &genericErr) {
				strictFabric = true
			}

			if errors.Is(err, utils.ErrContentBlocked) {
				return nil, backoff.Permanent(err)
			}

			a.logger.Warn("Descriptor attempt failed",
				zap.Error(err),
				zap.String("imageID", input.ImageID.String()))

			return nil, err
		}

		return res, nil
	}, utils.GetAnalysisRetryOptions())
	if err != nil {
		return nil, fmt.Errorf("descriptor extraction failed: %w", err)
	}

	return result, nil
}

// genericFabricError marks an attempt rejected for generic fabric terms so
// the next attempt can tighten the instruction.
type genericFabricError struct{}

func (e *genericFabricError) Error() string {
	return "generic fabric term rejected"
}

// attempt performs one analysis round trip and validation pass.
func (a *DescriptorAnalyzer) attempt(ctx context.Context, input ImageInput, strictFabric bool) (*ExtractResult, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(descriptorSystemPrompt),
		openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: input.Ref,
			}),
		}),
		openai.UserMessage(descriptorRequestPrompt),
	}
	if strictFabric {
		messages = append(messages, openai.UserMessage(strictFabricPrompt))
	}

	resp, err := a.chat.New(ctx, openai.ChatCompletionNewParams{
		Messages: messages,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        "garmentDescriptor",
					Description: openai.String("Structured analysis of a garment photograph"),
					Schema:      DescriptorSchema,
					Strict:      openai.Bool(true),
				},
			},
		},
		Model:       a.model,
		Temperature: openai.Float(0.2),
		TopP:        openai.Float(0.1),
	})
	if err != nil {
		return nil, fmt.Errorf("openai API error: %w", err)
	}

	if len(resp.Choices) == 0 || len(resp.Choices[0].Message.Content) == 0 {
		return nil, fmt.Errorf("%w: no response from model", utils.ErrContentBlocked)
	}

	var doc types.DescriptorDoc
	if err := sonic.Unmarshal([]byte(resp.Choices[0].Message.Content), &doc); err != nil {
		return nil, fmt.Errorf("JSON unmarshal error: %w", err)
	}

	// Normalize against the taxonomy before anything else sees the document
	validation := taxonomy.Validate(doc)
	if !validation.OK {
		return nil, fmt.Errorf("taxonomy validation failed: %s", validation.Reason)
	}

	if validation.GenericFabric {
		return nil, &genericFabricError{}
	}

	confidence, completeness := deriveQualityMetrics(&validation.Descriptor)
	if confidence < a.threshold {
		return nil, fmt.Errorf("%w: confidence %.3f", ErrLowConfidence, confidence)
	}

	if completeness < a.threshold*100 {
		return nil, fmt.Errorf("%w: completeness %.1f", ErrLowConfidence, completeness)
	}

	descriptorID := uuid.New()
	corrections := make([]*types.DescriptorCorrection, 0, len(validation.Corrections))

	for _, c := range validation.Corrections {
		corrections = append(corrections, &types.DescriptorCorrection{
			ID:             uuid.New(),
			ImageID:        input.ImageID,
			FieldPath:      c.FieldPath,
			AIValue:        c.AIValue,
			CorrectedValue: c.CorrectedValue,
			RuleID:         c.RuleID,
			CreatedAt:      time.Now(),
		})
	}

	return &ExtractResult{
		Descriptor: &types.Descriptor{
			ID:            descriptorID,
			ImageID:       input.ImageID,
			PortfolioID:   input.PortfolioID,
			PromptVersion: DescriptorPromptVersion,
			Document:      validation.Descriptor,
			Confidence:    utils.Clamp(utils.RoundConfidence(confidence), 0, 9.999),
			Completeness:  utils.Clamp(completeness, 0, 999.99),
			CreatedAt:     time.Now(),
		},
		Corrections: corrections,
	}, nil
}

// deriveQualityMetrics recomputes confidence and completeness from the
// document itself rather than trusting the model's self-report. Confidence is
// the mean of per-garment confidences blended with the reported overall;
// completeness is the schema fill rate as a percentage.
func deriveQualityMetrics(doc *types.DescriptorDoc) (float64, float64) {
	var confSum float64

	confCount := 0

	for _, g := range doc.Garments {
		confSum += utils.RescaleConfidence(g.Confidence)
		confCount++
	}

	for _, fc := range doc.Metadata.FieldConfidence {
		confSum += utils.RescaleConfidence(fc)
		confCount++
	}

	confidence := utils.RescaleConfidence(doc.Metadata.OverallConfidence)
	if confCount > 0 {
		// Blend equally so one inflated self-report cannot dominate
		confidence = (confidence + confSum/float64(confCount)) / 2
	}

	filled, total := 0, 0

	countField := func(v string) {
		total++
		if v != "" && v != taxonomy.Uncertain {
			filled++
		}
	}

	countField(doc.ExecutiveSummary)
	countField(doc.StylingContext)
	countField(doc.TechnicalNotes)
	countField(doc.Photography.ShotComposition)
	countField(doc.Photography.Lighting.Type)
	countField(doc.Photography.Lighting.Direction)
	countField(doc.Photography.Camera.Angle)
	countField(doc.Photography.Camera.Height)
	countField(doc.Photography.Background)
	countField(doc.ContextualAttributes.Season)
	countField(doc.ContextualAttributes.Occasion)
	countField(doc.ContextualAttributes.MoodAesthetic)

	for _, g := range doc.Garments {
		countField(g.Type)
		countField(g.Silhouette)
		countField(g.Neckline)
		countField(g.SleeveLength)
		countField(g.Collar)
		countField(g.Fabric.PrimaryMaterial)
		countField(g.Fabric.Weave)
		countField(g.Fabric.Finish)
		countField(g.Fabric.Weight)
		countField(g.Finish)

		total++
		if len(g.ColorPalette) > 0 {
			filled++
		}

		total++
		if len(g.ConstructionDetails) > 0 {
			filled++
		}
	}

	completeness := 0.0
	if total > 0 {
		completeness = float64(filled) / float64(total) * 100
	}

	return utils.Clamp(confidence, 0, 1), completeness
}
