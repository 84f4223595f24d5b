package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/atelier-ai/atelier/internal/database"
	"github.com/atelier-ai/atelier/internal/database/models"
	"github.com/atelier-ai/atelier/internal/database/types/enum"
	"github.com/atelier-ai/atelier/internal/generate"
	"github.com/atelier-ai/atelier/internal/profile"
	"github.com/atelier-ai/atelier/internal/prompt"
	"github.com/atelier-ai/atelier/internal/selector"
	"github.com/bytedance/sonic/decoder"
	"github.com/google/uuid"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

const (
	defaultBatchSize = 5
	maxBatchSize     = 20
	// budgetWindow is the rolling window the spend ceiling applies to.
	budgetWindow = 24 * time.Hour
)

// GenerateRequest is the POST /generations body.
type GenerateRequest struct {
	Count        int               `json:"count"`
	Command      string            `json:"command"`
	Exploration  bool              `json:"exploration"`
	ClusterLabel string            `json:"cluster_label"`
	Overrides    map[string]string `json:"overrides"`
}

// GeneratedImage is one accepted image in the final response.
type GeneratedImage struct {
	ID           uuid.UUID `json:"id"`
	URL          string    `json:"url"`
	QualityScore float64   `json:"quality_score"`
	PromptID     uuid.UUID `json:"prompt_id"`
}

// GenerateHandler handles image generation endpoints.
type GenerateHandler struct {
	db           database.Client
	orchestrator *generate.Orchestrator
	selector     *selector.Selector
	profiles     *profile.Aggregator
	budgetCents  int64
	logger       *zap.Logger
}

// NewGenerateHandler creates a generation handler.
func NewGenerateHandler(
	db database.Client, orchestrator *generate.Orchestrator,
	sel *selector.Selector, profiles *profile.Aggregator,
	budgetCents int64, logger *zap.Logger,
) *GenerateHandler {
	return &GenerateHandler{
		db:           db,
		orchestrator: orchestrator,
		selector:     sel,
		profiles:     profiles,
		budgetCents:  budgetCents,
		logger:       logger,
	}
}

// Create runs one generation batch end to end, streaming progress events and
// finishing with the selected images.
func (h *GenerateHandler) Create(w http.ResponseWriter, req bunrouter.Request) error {
	user, err := userID(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return nil
	}

	var body GenerateRequest
	if err := decoder.NewStreamDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return nil
	}

	if body.Count <= 0 {
		body.Count = defaultBatchSize
	}

	if body.Count > maxBatchSize {
		body.Count = maxBatchSize
	}

	spent, err := h.db.Model().Generation().SpendSince(req.Context(), user, time.Now().Add(-budgetWindow))
	if err != nil {
		h.logger.Error("Failed to check spend", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return nil
	}

	if spent >= h.budgetCents {
		http.Error(w, "Daily generation budget exhausted", http.StatusTooManyRequests)
		return nil
	}

	styleProfile, err := h.profiles.GetActive(req.Context(), user)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			http.Error(w, "Upload a portfolio before generating", http.StatusConflict)
			return nil
		}

		h.logger.Error("Failed to load profile", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return nil
	}

	opts := prompt.BuildOptions{
		Command:       body.Command,
		IsExploration: body.Exploration,
		ClusterLabel:  body.ClusterLabel,
	}

	if len(body.Overrides) > 0 {
		opts.Overrides = make(map[enum.Slot]string, len(body.Overrides))
		for slot, value := range body.Overrides {
			opts.Overrides[enum.Slot(slot)] = value
		}
	}

	flusher, err := eventStream(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil
	}

	events := make(chan generate.ProgressEvent, 16)

	type outcome struct {
		result *generate.Result
		err    error
	}

	done := make(chan outcome, 1)

	go func() {
		result, runErr := h.orchestrator.Generate(req.Context(), user, body.Count, styleProfile, opts, events)
		close(events)
		done <- outcome{result: result, err: runErr}
	}()

	for event := range events {
		sendEvent(w, flusher, "progress", event)
	}

	final := <-done
	if final.err != nil {
		h.logger.Warn("Generation batch failed", zap.Error(final.err))
		sendEvent(w, flusher, "error", map[string]string{"error": "Generation failed."})

		return nil
	}

	selection, err := h.selector.Select(
		req.Context(), user, uuid.New(), styleProfile,
		final.result.Generations, final.result.Prompts, body.Count,
	)
	if err != nil {
		h.logger.Error("Selection failed", zap.Error(err))
		sendEvent(w, flusher, "error", map[string]string{"error": "Selection failed."})

		return nil
	}

	images := make([]GeneratedImage, 0, len(selection.Selected))
	for _, c := range selection.Selected {
		images = append(images, GeneratedImage{
			ID:           c.Generation.ID,
			URL:          c.Generation.URL,
			QualityScore: c.Quality,
			PromptID:     c.Prompt.ID,
		})
	}

	sendEvent(w, flusher, "complete", map[string]any{
		"images":   images,
		"coverage": selection.Report.SlotCoverage,
	})

	return nil
}

// List returns the caller's recent generations.
func (h *GenerateHandler) List(w http.ResponseWriter, req bunrouter.Request) error {
	user, err := userID(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return nil
	}

	limit := 50
	if raw := req.URL.Query().Get("limit"); raw != "" {
		if parsed, parseErr := strconv.Atoi(raw); parseErr == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	generations, err := h.db.Model().Generation().GetByUser(req.Context(), user, limit)
	if err != nil {
		h.logger.Error("Failed to list generations", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return nil
	}

	return bunrouter.JSON(w, generations)
}

// ListPrompts returns the caller's recent prompt specs.
func (h *GenerateHandler) ListPrompts(w http.ResponseWriter, req bunrouter.Request) error {
	user, err := userID(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return nil
	}

	limit := 50
	if raw := req.URL.Query().Get("limit"); raw != "" {
		if parsed, parseErr := strconv.Atoi(raw); parseErr == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	prompts, err := h.db.Model().Prompt().GetRecent(req.Context(), user, limit)
	if err != nil {
		h.logger.Error("Failed to list prompts", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return nil
	}

	return bunrouter.JSON(w, prompts)
}
