package handler

import (
	"errors"
	"net/http"

	"github.com/atelier-ai/atelier/internal/database"
	"github.com/atelier-ai/atelier/internal/database/models"
	"github.com/atelier-ai/atelier/internal/profile"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

// ProfileHandler handles style profile endpoints.
type ProfileHandler struct {
	db       database.Client
	profiles *profile.Aggregator
	logger   *zap.Logger
}

// NewProfileHandler creates a profile handler.
func NewProfileHandler(db database.Client, profiles *profile.Aggregator, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{
		db:       db,
		profiles: profiles,
		logger:   logger,
	}
}

// Get returns the caller's active style profile.
func (h *ProfileHandler) Get(w http.ResponseWriter, req bunrouter.Request) error {
	user, err := userID(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return nil
	}

	styleProfile, err := h.profiles.GetActive(req.Context(), user)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			http.Error(w, "No style profile yet", http.StatusNotFound)
			return nil
		}

		h.logger.Error("Failed to get profile", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return nil
	}

	return bunrouter.JSON(w, styleProfile)
}

// Refresh rebuilds the caller's profile from the active portfolio's
// descriptors and returns the fresh aggregate.
func (h *ProfileHandler) Refresh(w http.ResponseWriter, req bunrouter.Request) error {
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

	styleProfile, err := h.profiles.Aggregate(req.Context(), user, portfolio.ID)
	if err != nil {
		h.logger.Error("Failed to aggregate profile", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return nil
	}

	return bunrouter.JSON(w, styleProfile)
}
