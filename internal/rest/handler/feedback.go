package handler

import (
	"errors"
	"net/http"

	"github.com/atelier-ai/atelier/internal/database/models"
	"github.com/atelier-ai/atelier/internal/database/types"
	"github.com/atelier-ai/atelier/internal/database/types/enum"
	"github.com/atelier-ai/atelier/internal/feedback"
	"github.com/bytedance/sonic/decoder"
	"github.com/google/uuid"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

// FeedbackRequest is the POST /feedback body. EventID is client-generated so
// retried deliveries stay idempotent.
type FeedbackRequest struct {
	EventID      uuid.UUID      `json:"event_id"`
	GenerationID uuid.UUID      `json:"generation_id"`
	Kind         string         `json:"kind"`
	Payload      map[string]any `json:"payload"`
}

// FeedbackHandler handles interaction feedback endpoints.
type FeedbackHandler struct {
	processor *feedback.Processor
	logger    *zap.Logger
}

// NewFeedbackHandler creates a feedback handler.
func NewFeedbackHandler(processor *feedback.Processor, logger *zap.Logger) *FeedbackHandler {
	return &FeedbackHandler{
		processor: processor,
		logger:    logger,
	}
}

// Create records one feedback event and applies its learning updates.
func (h *FeedbackHandler) Create(w http.ResponseWriter, req bunrouter.Request) error {
	user, err := userID(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return nil
	}

	var body FeedbackRequest
	if err := decoder.NewStreamDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return nil
	}

	if body.EventID == uuid.Nil || body.GenerationID == uuid.Nil {
		http.Error(w, "event_id and generation_id are required", http.StatusBadRequest)
		return nil
	}

	outcome, err := h.processor.Process(req.Context(), &types.FeedbackEvent{
		EventID:      body.EventID,
		UserID:       user,
		GenerationID: body.GenerationID,
		Kind:         enum.FeedbackKind(body.Kind),
		Payload:      body.Payload,
	})

	switch {
	case errors.Is(err, feedback.ErrDuplicateEvent):
		http.Error(w, "Event already recorded", http.StatusConflict)
		return nil
	case errors.Is(err, feedback.ErrNotOwner), errors.Is(err, models.ErrNotFound):
		// A foreign generation reads the same as a missing one
		http.Error(w, "Generation not found", http.StatusNotFound)
		return nil
	case errors.Is(err, feedback.ErrInvalidKind):
		http.Error(w, "Unknown feedback kind", http.StatusBadRequest)
		return nil
	case err != nil:
		h.logger.Error("Failed to process feedback", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return nil
	}

	return bunrouter.JSON(w, outcome)
}
