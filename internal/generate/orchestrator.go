package generate

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/atelier-ai/atelier/internal/database"
	"github.com/atelier-ai/atelier/internal/database/types"
	"github.com/atelier-ai/atelier/internal/database/types/enum"
	"github.com/atelier-ai/atelier/internal/prompt"
	"github.com/atelier-ai/atelier/internal/setup/config"
	"github.com/atelier-ai/atelier/internal/storage"
	"github.com/atelier-ai/atelier/pkg/utils"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// maxPreviewURLs bounds the preview list carried on progress events.
const maxPreviewURLs = 6

// ProgressEvent is one generation progress update, suitable for SSE.
type ProgressEvent struct {
	Processed     int      `json:"processed"`
	Total         int      `json:"total"`
	PreviewURLs   []string `json:"preview_urls"`
	CurrentPrompt string   `json:"current_prompt,omitempty"`
}

// Result bundles the surviving generations with their prompts.
type Result struct {
	Generations []*types.Generation
	Prompts     []*types.Prompt
}

// Orchestrator drives prompt building, adapter fan-out, upload, and
// persistence for one generation request.
type Orchestrator struct {
	db              database.Client
	builder         *prompt.Builder
	adapters        []Adapter
	store           *storage.Client
	httpClient      *http.Client
	overgenPct      int
	imagesPerPrompt int
	logger          *zap.Logger
}

// NewOrchestrator creates an Orchestrator over the enabled adapters.
func NewOrchestrator(
	db database.Client, builder *prompt.Builder, adapters []Adapter,
	store *storage.Client, cfg *config.Config, logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		db:              db,
		builder:         builder,
		adapters:        adapters,
		store:           store,
		httpClient:      &http.Client{Timeout: 60 * time.Second},
		overgenPct:      cfg.Server.Pipeline.OvergenBufferPct,
		imagesPerPrompt: cfg.Server.Pipeline.ImagesPerPrompt,
		logger:          logger.Named("generate"),
	}
}

// PlanOutputs returns the over-generated output count and the prompt count
// for a requested N. Outputs come in pairs per prompt, so the plan rounds up
// to a full pair.
func (o *Orchestrator) PlanOutputs(requested int) (outputs, prompts int) {
	buffered := int(math.Ceil(float64(requested) * (1 + float64(o.overgenPct)/100)))
	prompts = (buffered + o.imagesPerPrompt - 1) / o.imagesPerPrompt

	return prompts * o.imagesPerPrompt, prompts
}

// Generate builds prompts, fans out to the adapters, uploads, and persists.
// Failed calls become failed rows rather than cancelling siblings; the
// returned set contains only uploaded generations. Events are emitted on
// progress when the channel is non-nil.
func (o *Orchestrator) Generate(
	ctx context.Context, userID string, requested int, profile *types.StyleProfile,
	opts prompt.BuildOptions, events chan<- ProgressEvent,
) (*Result, error) {
	total, promptCount := o.PlanOutputs(requested)

	prompts := make([]*types.Prompt, 0, promptCount)
	for range promptCount {
		p, err := o.builder.Build(ctx, userID, profile, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to build prompt: %w", err)
		}

		prompts = append(prompts, p)
	}

	if err := o.db.Model().Prompt().Insert(ctx, prompts); err != nil {
		return nil, fmt.Errorf("failed to persist prompts: %w", err)
	}

	var (
		mu          sync.Mutex
		generations []*types.Generation
		processed   int
		previews    []string
	)

	p := pool.New().WithContext(ctx).WithMaxGoroutines(total)

	for _, pr := range prompts {
		for idx := range o.imagesPerPrompt {
			p.Go(func(ctx context.Context) error {
				gen := o.generateOne(ctx, userID, pr, idx)

				mu.Lock()
				generations = append(generations, gen)
				processed++

				if gen.Status == enum.GenerationStatusUploaded && len(previews) < maxPreviewURLs {
					previews = append(previews, gen.URL)
				}

				event := ProgressEvent{
					Processed:     processed,
					Total:         total,
					PreviewURLs:   append([]string(nil), previews...),
					CurrentPrompt: pr.Text,
				}
				mu.Unlock()

				if events != nil {
					select {
					case events <- event:
					case <-ctx.Done():
					}
				}

				return nil
			})
		}
	}

	if err := p.Wait(); err != nil {
		return nil, fmt.Errorf("generation fan-out failed: %w", err)
	}

	// Results are not persisted after cancellation
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := o.db.Model().Generation().Insert(ctx, generations); err != nil {
		return nil, fmt.Errorf("failed to persist generations: %w", err)
	}

	survivors := make([]*types.Generation, 0, len(generations))
	for _, g := range generations {
		if g.Status == enum.GenerationStatusUploaded {
			survivors = append(survivors, g)
		}
	}

	o.logger.Info("Generation batch complete",
		zap.String("userID", userID),
		zap.Int("requested", requested),
		zap.Int("produced", len(survivors)),
		zap.Int("failed", len(generations)-len(survivors)))

	return &Result{Generations: survivors, Prompts: prompts}, nil
}

// generateOne runs one adapter call end to end. Errors produce a synthetic
// failed row so the batch accounting stays intact.
func (o *Orchestrator) generateOne(ctx context.Context, userID string, pr *types.Prompt, index int) *types.Generation {
	gen := &types.Generation{
		ID:              uuid.New(),
		UserID:          userID,
		PromptID:        pr.ID,
		GenerationIndex: index,
		Status:          enum.GenerationStatusPending,
		Validation:      enum.ValidationStatusUnscored,
		CreatedAt:       time.Now(),
	}

	adapter, err := o.pickAdapter(ctx)
	if err != nil {
		gen.Status = enum.GenerationStatusFailed
		gen.ErrorMessage = err.Error()

		return gen
	}

	gen.Provider = adapter.Name()

	output, err := adapter.Generate(ctx, pr, Settings{NegativePrompt: pr.NegativeText})
	if err != nil {
		o.logger.Warn("Adapter call failed",
			zap.Error(err),
			zap.String("provider", adapter.Name()),
			zap.String("promptID", pr.ID.String()))

		gen.Status = enum.GenerationStatusFailed
		gen.ErrorMessage = err.Error()

		return gen
	}

	gen.Seed = output.Seed
	gen.Width = output.Width
	gen.Height = output.Height
	gen.CostCents = output.CostCents

	data := output.Data
	if data == nil {
		data, err = o.fetchBytes(ctx, output.URL)
		if err != nil {
			gen.Status = enum.GenerationStatusFailed
			gen.ErrorMessage = err.Error()

			return gen
		}
	}

	key := fmt.Sprintf("generations/%s/%s.png", userID, gen.ID)

	_, err = utils.WithRetry(ctx, func() (struct{}, error) {
		return struct{}{}, o.store.PutObject(ctx, key, data, "image/png")
	}, utils.GetUploadRetryOptions())
	if err != nil {
		gen.Status = enum.GenerationStatusFailed
		gen.ErrorMessage = fmt.Sprintf("upload failed: %v", err)

		return gen
	}

	url, err := o.store.URL(ctx, key)
	if err != nil {
		gen.Status = enum.GenerationStatusFailed
		gen.ErrorMessage = err.Error()

		return gen
	}

	gen.StorageKey = key
	gen.URL = url
	gen.Status = enum.GenerationStatusUploaded

	return gen
}

// pickAdapter returns the first healthy adapter.
func (o *Orchestrator) pickAdapter(ctx context.Context) (Adapter, error) {
	for _, a := range o.adapters {
		if err := a.HealthCheck(ctx); err == nil {
			return a, nil
		}
	}

	return nil, ErrAdapterUnavailable
}

// fetchBytes downloads a provider-hosted image before re-upload.
func (o *Orchestrator) fetchBytes(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, ErrEmptyResponse
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build fetch request: %w", err)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch image: status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
