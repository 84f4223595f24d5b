package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/atelier-ai/atelier/internal/database/dbretry"
	"github.com/atelier-ai/atelier/internal/database/types"
	"github.com/atelier-ai/atelier/internal/database/types/enum"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// GenerationModel handles database operations for generated images.
type GenerationModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewGeneration creates a GenerationModel.
func NewGeneration(db *bun.DB, logger *zap.Logger) *GenerationModel {
	return &GenerationModel{
		db:     db,
		logger: logger.Named("db_generation"),
	}
}

// Insert stores a batch of generation rows.
func (m *GenerationModel) Insert(ctx context.Context, generations []*types.Generation) error {
	if len(generations) == 0 {
		return nil
	}

	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		if _, err := m.db.NewInsert().Model(&generations).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert generations: %w", err)
		}

		return nil
	})
}

// Get fetches one generation by ID.
func (m *GenerationModel) Get(ctx context.Context, id uuid.UUID) (*types.Generation, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.Generation, error) {
		var generation types.Generation

		err := m.db.NewSelect().
			Model(&generation).
			Where("id = ?", id).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		if err != nil {
			return nil, fmt.Errorf("failed to get generation: %w", err)
		}

		return &generation, nil
	})
}

// GetByUser returns the user's generations, newest first.
func (m *GenerationModel) GetByUser(ctx context.Context, userID string, limit int) ([]*types.Generation, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Generation, error) {
		var generations []*types.Generation

		err := m.db.NewSelect().
			Model(&generations).
			Where("user_id = ?", userID).
			Order("created_at DESC").
			Limit(limit).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get generations: %w", err)
		}

		return generations, nil
	})
}

// UpdateScore records the quality score and validation outcome for one image.
func (m *GenerationModel) UpdateScore(
	ctx context.Context, id uuid.UUID, score float64, validation enum.ValidationStatus,
) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewUpdate().
			Model((*types.Generation)(nil)).
			Set("quality_score = ?", score).
			Set("validation_status = ?", validation).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update quality score: %w", err)
		}

		return nil
	})
}

// UpdateStatus transitions one generation, recording the failure reason if any.
func (m *GenerationModel) UpdateStatus(
	ctx context.Context, id uuid.UUID, status enum.GenerationStatus, errorMessage string,
) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewUpdate().
			Model((*types.Generation)(nil)).
			Set("status = ?", status).
			Set("error_message = ?", errorMessage).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update generation status: %w", err)
		}

		return nil
	})
}

// SpendSince sums the generation cost for a user within the window.
// The budget guard checks this before dispatching a new batch.
func (m *GenerationModel) SpendSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int64, error) {
		var total sql.NullInt64

		err := m.db.NewSelect().
			Model((*types.Generation)(nil)).
			ColumnExpr("COALESCE(SUM(cost_cents), 0)").
			Where("user_id = ? AND created_at >= ?", userID, since).
			Scan(ctx, &total)
		if err != nil {
			return 0, fmt.Errorf("failed to sum generation spend: %w", err)
		}

		return total.Int64, nil
	})
}
