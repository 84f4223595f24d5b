package generate

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/atelier-ai/atelier/internal/database/types"
	"github.com/atelier-ai/atelier/internal/setup/config"
	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// fluxRequest is the JSON body for a Flux-style generation endpoint.
type fluxRequest struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	Model          string `json:"model"`
	Seed           string `json:"seed,omitempty"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
}

// fluxResponse tolerates the shapes Flux-style providers actually return:
// a single image object, an array, or a bare URL string.
type fluxResponse struct {
	Image  *fluxImage  `json:"image"`
	Images []fluxImage `json:"images"`
	URL    string      `json:"url"`
	Seed   int64       `json:"seed"`
}

type fluxImage struct {
	URL     string `json:"url"`
	B64JSON string `json:"b64_json"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

// FluxAdapter generates images through a Flux-style HTTP endpoint.
type FluxAdapter struct {
	httpClient    *http.Client
	endpoint      string
	apiKey        string
	model         string
	baseCostCents int64
	logger        *zap.Logger
}

// NewFluxAdapter creates a Flux HTTP adapter.
func NewFluxAdapter(cfg *config.FluxAdapter, logger *zap.Logger) *FluxAdapter {
	return &FluxAdapter{
		httpClient:    &http.Client{Timeout: 120 * time.Second},
		endpoint:      cfg.Endpoint,
		apiKey:        cfg.APIKey,
		model:         cfg.Model,
		baseCostCents: cfg.BaseCostCents,
		logger:        logger.Named("adapter_flux"),
	}
}

// Name implements Adapter.
func (a *FluxAdapter) Name() string { return "flux" }

// Initialize implements Adapter.
func (a *FluxAdapter) Initialize(ctx context.Context) error {
	return a.HealthCheck(ctx)
}

// Generate implements Adapter.
func (a *FluxAdapter) Generate(ctx context.Context, prompt *types.Prompt, settings Settings) (*Output, error) {
	body, err := sonic.Marshal(fluxRequest{
		Prompt:         prompt.Text,
		NegativePrompt: settings.NegativePrompt,
		Model:          a.model,
		Seed:           settings.Seed,
		Width:          1024,
		Height:         1536,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("flux request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrAdapterUnavailable, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var parsed fluxResponse
	if err := sonic.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	image := parsed.pick()
	if image == nil {
		return nil, ErrEmptyResponse
	}

	output := &Output{
		URL:       image.URL,
		Seed:      fmt.Sprintf("%d", parsed.Seed),
		Width:     image.Width,
		Height:    image.Height,
		CostCents: a.CalculateCost(1),
		Metadata:  map[string]any{"provider_model": a.model},
	}

	if image.B64JSON != "" {
		decoded, err := base64.StdEncoding.DecodeString(image.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("failed to decode image payload: %w", err)
		}

		output.Data = decoded
	}

	if output.Data == nil && output.URL == "" {
		return nil, ErrEmptyResponse
	}

	return output, nil
}

// pick resolves whichever response shape the provider used.
func (r *fluxResponse) pick() *fluxImage {
	switch {
	case r.Image != nil:
		return r.Image
	case len(r.Images) > 0:
		return &r.Images[0]
	case r.URL != "":
		return &fluxImage{URL: r.URL}
	default:
		return nil
	}
}

// HealthCheck implements Adapter.
func (a *FluxAdapter) HealthCheck(ctx context.Context) error {
	if a.endpoint == "" {
		return ErrAdapterUnavailable
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, a.endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build health check: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAdapterUnavailable, err)
	}
	resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: status %d", ErrAdapterUnavailable, resp.StatusCode)
	}

	return nil
}

// CalculateCost implements Adapter.
func (a *FluxAdapter) CalculateCost(count int) int64 {
	if count < 0 {
		count = 0
	}

	return int64(count) * a.baseCostCents
}
