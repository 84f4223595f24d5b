package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/atelier-ai/atelier/internal/database"
	"github.com/atelier-ai/atelier/internal/database/models"
	"github.com/atelier-ai/atelier/internal/ingest"
	"github.com/google/uuid"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

// maxUploadBytes caps a portfolio ZIP upload.
const maxUploadBytes = 500 << 20

// PortfolioHandler handles portfolio upload and ingestion endpoints.
type PortfolioHandler struct {
	db       database.Client
	pipeline *ingest.Pipeline
	logger   *zap.Logger
}

// NewPortfolioHandler creates a portfolio handler.
func NewPortfolioHandler(db database.Client, pipeline *ingest.Pipeline, logger *zap.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		db:       db,
		pipeline: pipeline,
		logger:   logger,
	}
}

// Status returns one portfolio's processing state with per-image statuses.
func (h *PortfolioHandler) Status(w http.ResponseWriter, req bunrouter.Request) error {
	user, err := userID(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return nil
	}

	portfolioID, err := uuid.Parse(req.Param("id"))
	if err != nil {
		http.Error(w, "Invalid portfolio ID", http.StatusBadRequest)
		return nil
	}

	portfolio, err := h.db.Model().Portfolio().Get(req.Context(), portfolioID)
	if err != nil || portfolio.UserID != user {
		if errors.Is(err, models.ErrNotFound) || err == nil {
			http.Error(w, "Portfolio not found", http.StatusNotFound)
			return nil
		}

		h.logger.Error("Failed to get portfolio", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return nil
	}

	images, err := h.db.Model().Portfolio().GetImages(req.Context(), portfolioID)
	if err != nil {
		h.logger.Error("Failed to get portfolio images", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return nil
	}

	return bunrouter.JSON(w, map[string]any{
		"portfolio": portfolio,
		"images":    images,
	})
}

// Active returns the caller's active portfolio.
func (h *PortfolioHandler) Active(w http.ResponseWriter, req bunrouter.Request) error {
	user, err := userID(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return nil
	}

	portfolio, err := h.db.Model().Portfolio().GetActive(req.Context(), user)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			http.Error(w, "No portfolio uploaded yet", http.StatusNotFound)
			return nil
		}

		h.logger.Error("Failed to get active portfolio", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return nil
	}

	return bunrouter.JSON(w, portfolio)
}

// Upload ingests a ZIP of reference images as a fresh portfolio and streams
// analysis progress as server-sent events.
func (h *PortfolioHandler) Upload(w http.ResponseWriter, req bunrouter.Request) error {
	user, err := userID(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return nil
	}

	archive, err := io.ReadAll(io.LimitReader(req.Body, maxUploadBytes))
	if err != nil {
		http.Error(w, "Failed to read upload", http.StatusBadRequest)
		return nil
	}

	return h.stream(w, req, func(events chan<- ingest.ProgressEvent) (any, error) {
		portfolio, err := h.pipeline.Ingest(req.Context(), user, archive, events)
		if err != nil {
			return nil, err
		}

		return map[string]any{
			"portfolio_id": portfolio.ID,
			"status":       portfolio.Status,
			"total_images": portfolio.TotalImages,
		}, nil
	})
}

// AddImages appends a ZIP of new images to an existing portfolio, streaming
// analysis progress for just the additions.
func (h *PortfolioHandler) AddImages(w http.ResponseWriter, req bunrouter.Request) error {
	user, err := userID(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return nil
	}

	portfolioID, err := uuid.Parse(req.Param("id"))
	if err != nil {
		http.Error(w, "Invalid portfolio ID", http.StatusBadRequest)
		return nil
	}

	archive, err := io.ReadAll(io.LimitReader(req.Body, maxUploadBytes))
	if err != nil {
		http.Error(w, "Failed to read upload", http.StatusBadRequest)
		return nil
	}

	return h.stream(w, req, func(events chan<- ingest.ProgressEvent) (any, error) {
		portfolio, err := h.pipeline.AddImages(req.Context(), user, portfolioID, archive, events)
		if err != nil {
			return nil, err
		}

		return map[string]any{
			"portfolio_id": portfolio.ID,
			"status":       portfolio.Status,
			"total_images": portfolio.TotalImages,
		}, nil
	})
}

// stream runs an ingestion function while relaying its progress events, then
// closes the stream with a complete or error event.
func (h *PortfolioHandler) stream(
	w http.ResponseWriter, req bunrouter.Request,
	run func(events chan<- ingest.ProgressEvent) (any, error),
) error {
	flusher, err := eventStream(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil
	}

	events := make(chan ingest.ProgressEvent, 16)

	type outcome struct {
		result any
		err    error
	}

	done := make(chan outcome, 1)

	go func() {
		result, runErr := run(events)
		close(events)
		done <- outcome{result: result, err: runErr}
	}()

	for event := range events {
		sendEvent(w, flusher, "progress", event)
	}

	final := <-done
	if final.err != nil {
		h.logger.Warn("Ingestion failed", zap.Error(final.err))
		sendEvent(w, flusher, "error", map[string]string{
			"error": ingestErrorMessage(final.err),
		})

		return nil
	}

	sendEvent(w, flusher, "complete", final.result)

	return nil
}

// ingestErrorMessage maps pipeline failures to user-presentable text.
func ingestErrorMessage(err error) string {
	switch {
	case errors.Is(err, ingest.ErrNoValidImages):
		return "The archive contained no usable images."
	case errors.Is(err, ingest.ErrAnalysisFailed):
		return "None of the images could be analyzed."
	case errors.Is(err, models.ErrNotFound):
		return "Portfolio not found."
	default:
		return "Ingestion failed."
	}
}
