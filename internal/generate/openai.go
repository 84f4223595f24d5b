package generate

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/atelier-ai/atelier/internal/ai/client"
	"github.com/atelier-ai/atelier/internal/database/types"
	"github.com/atelier-ai/atelier/internal/setup/config"
	"github.com/openai/openai-go"
	"go.uber.org/zap"
)

// OpenAIAdapter generates images through the OpenAI-compatible Images API.
type OpenAIAdapter struct {
	images        client.ImageGenerations
	model         string
	size          string
	baseCostCents int64
	logger        *zap.Logger
}

// NewOpenAIAdapter creates an adapter over the shared AI client.
func NewOpenAIAdapter(images client.ImageGenerations, cfg *config.OpenAIImageAdapter, logger *zap.Logger) *OpenAIAdapter {
	return &OpenAIAdapter{
		images:        images,
		model:         cfg.Model,
		size:          cfg.Size,
		baseCostCents: cfg.BaseCostCents,
		logger:        logger.Named("adapter_openai"),
	}
}

// Name implements Adapter.
func (a *OpenAIAdapter) Name() string { return "openai" }

// Initialize implements Adapter. The shared client is already connected.
func (a *OpenAIAdapter) Initialize(context.Context) error { return nil }

// Generate implements Adapter.
func (a *OpenAIAdapter) Generate(ctx context.Context, prompt *types.Prompt, settings Settings) (*Output, error) {
	params := openai.ImageGenerateParams{
		Prompt: prompt.Text,
		Model:  openai.ImageModel(a.model),
		N:      openai.Int(1),
		Size:   openai.ImageGenerateParamsSize(a.size),
	}

	resp, err := a.images.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("image generation failed: %w", err)
	}

	// Providers return either base64 payloads or URLs; accept both
	if len(resp.Data) == 0 {
		return nil, ErrEmptyResponse
	}

	item := resp.Data[0]
	width, height := parseSize(a.size)

	output := &Output{
		Width:     width,
		Height:    height,
		CostCents: a.CalculateCost(1),
		Metadata:  map[string]any{"revised_prompt": item.RevisedPrompt},
	}

	switch {
	case item.B64JSON != "":
		data, err := base64.StdEncoding.DecodeString(item.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("failed to decode image payload: %w", err)
		}

		output.Data = data
	case item.URL != "":
		output.URL = item.URL
	default:
		return nil, ErrEmptyResponse
	}

	return output, nil
}

// HealthCheck implements Adapter. The Images API has no ping; a mapped model
// is treated as healthy since the circuit breaker guards actual calls.
func (a *OpenAIAdapter) HealthCheck(context.Context) error {
	if a.model == "" {
		return ErrAdapterUnavailable
	}

	return nil
}

// CalculateCost implements Adapter.
func (a *OpenAIAdapter) CalculateCost(count int) int64 {
	if count < 0 {
		count = 0
	}

	return int64(count) * a.baseCostCents
}

// parseSize splits a "1024x1536" size string into dimensions.
func parseSize(size string) (int, int) {
	parts := strings.SplitN(size, "x", 2)
	if len(parts) != 2 {
		return 0, 0
	}

	width, _ := strconv.Atoi(parts[0])
	height, _ := strconv.Atoi(parts[1])

	return width, height
}
