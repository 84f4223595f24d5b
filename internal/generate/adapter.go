// Package generate fans prompt specs out to image model adapters and
// persists the results.
package generate

import (
	"context"
	"errors"

	"github.com/atelier-ai/atelier/internal/database/types"
)

var (
	ErrAdapterUnavailable = errors.New("image adapter unavailable")
	ErrEmptyResponse      = errors.New("image adapter returned no output")
)

// Settings tune one adapter call.
type Settings struct {
	// NegativePrompt is passed to adapters that support it.
	NegativePrompt string
	// Seed pins the sampler when non-empty.
	Seed string
}

// Output is one generated image from an adapter. Either Data or URL is set;
// the orchestrator fetches URL-only outputs before upload.
type Output struct {
	Data      []byte
	URL       string
	Seed      string
	Width     int
	Height    int
	CostCents int64
	// Metadata carries adapter-reported quality hints for the selector.
	Metadata map[string]any
}

// Adapter wraps one external image model.
type Adapter interface {
	// Name identifies the provider on persisted generations.
	Name() string
	// Initialize prepares the adapter; called once at startup.
	Initialize(ctx context.Context) error
	// Generate synthesizes one image for a prompt.
	Generate(ctx context.Context, prompt *types.Prompt, settings Settings) (*Output, error)
	// HealthCheck reports whether the provider is reachable.
	HealthCheck(ctx context.Context) error
	// CalculateCost returns the cost in cents for count images. Never NaN;
	// always computed from count times the per-image base.
	CalculateCost(count int) int64
}
