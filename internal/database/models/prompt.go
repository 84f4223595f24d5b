package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/atelier-ai/atelier/internal/database/dbretry"
	"github.com/atelier-ai/atelier/internal/database/types"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// PromptModel handles database operations for rendered prompts.
type PromptModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewPrompt creates a PromptModel.
func NewPrompt(db *bun.DB, logger *zap.Logger) *PromptModel {
	return &PromptModel{
		db:     db,
		logger: logger.Named("db_prompt"),
	}
}

// Insert stores a batch of rendered prompts.
func (m *PromptModel) Insert(ctx context.Context, prompts []*types.Prompt) error {
	if len(prompts) == 0 {
		return nil
	}

	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		if _, err := m.db.NewInsert().Model(&prompts).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert prompts: %w", err)
		}

		return nil
	})
}

// Get fetches one prompt by ID.
func (m *PromptModel) Get(ctx context.Context, id uuid.UUID) (*types.Prompt, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.Prompt, error) {
		var prompt types.Prompt

		err := m.db.NewSelect().
			Model(&prompt).
			Where("id = ?", id).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		if err != nil {
			return nil, fmt.Errorf("failed to get prompt: %w", err)
		}

		return &prompt, nil
	})
}

// GetRecent returns the user's most recent prompts, newest first.
func (m *PromptModel) GetRecent(ctx context.Context, userID string, limit int) ([]*types.Prompt, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Prompt, error) {
		var prompts []*types.Prompt

		err := m.db.NewSelect().
			Model(&prompts).
			Where("user_id = ?", userID).
			Order("created_at DESC").
			Limit(limit).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get recent prompts: %w", err)
		}

		return prompts, nil
	})
}
