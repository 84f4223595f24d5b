package handler

import (
	"net/http"

	"github.com/atelier-ai/atelier/internal/learn/bandit"
	"github.com/atelier-ai/atelier/internal/learn/rlhf"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

// LearningHandler exposes read-only projections of the learning state.
type LearningHandler struct {
	bandit *bandit.Store
	rlhf   *rlhf.Store
	logger *zap.Logger
}

// NewLearningHandler creates a learning projection handler.
func NewLearningHandler(banditStore *bandit.Store, rlhfStore *rlhf.Store, logger *zap.Logger) *LearningHandler {
	return &LearningHandler{
		bandit: banditStore,
		rlhf:   rlhfStore,
		logger: logger,
	}
}

// BanditSnapshot returns the caller's posterior arms per slot.
func (h *LearningHandler) BanditSnapshot(w http.ResponseWriter, req bunrouter.Request) error {
	user, err := userID(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return nil
	}

	states, err := h.bandit.Snapshot(req.Context(), user)
	if err != nil {
		h.logger.Error("Failed to snapshot bandit state", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return nil
	}

	return bunrouter.JSON(w, states)
}

// TokenWeights returns the caller's learned token weights per category.
func (h *LearningHandler) TokenWeights(w http.ResponseWriter, req bunrouter.Request) error {
	user, err := userID(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return nil
	}

	weights, err := h.rlhf.Weights(req.Context(), user)
	if err != nil {
		h.logger.Error("Failed to load token weights", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return nil
	}

	return bunrouter.JSON(w, weights)
}
