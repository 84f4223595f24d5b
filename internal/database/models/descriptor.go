package models

import (
	"context"
	"fmt"

	"github.com/atelier-ai/atelier/internal/database/dbretry"
	"github.com/atelier-ai/atelier/internal/database/types"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// DescriptorModel handles database operations for descriptors and their
// correction records.
type DescriptorModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewDescriptor creates a DescriptorModel.
func NewDescriptor(db *bun.DB, logger *zap.Logger) *DescriptorModel {
	return &DescriptorModel{
		db:     db,
		logger: logger.Named("db_descriptor"),
	}
}

// Replace upserts the descriptor for an image, replacing any previous
// analysis, and stores the taxonomy corrections produced for it.
func (m *DescriptorModel) Replace(
	ctx context.Context, descriptor *types.Descriptor, corrections []*types.DescriptorCorrection,
) error {
	return dbretry.Transaction(ctx, m.db, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().
			Model(descriptor).
			On("CONFLICT (image_id) DO UPDATE").
			Set("prompt_version = EXCLUDED.prompt_version").
			Set("document = EXCLUDED.document").
			Set("confidence = EXCLUDED.confidence").
			Set("completeness = EXCLUDED.completeness").
			Set("created_at = EXCLUDED.created_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to upsert descriptor: %w", err)
		}

		if len(corrections) > 0 {
			if _, err := tx.NewInsert().Model(&corrections).Exec(ctx); err != nil {
				return fmt.Errorf("failed to insert corrections: %w", err)
			}
		}

		return nil
	})
}

// GetByPortfolio returns all descriptors belonging to a portfolio.
func (m *DescriptorModel) GetByPortfolio(ctx context.Context, portfolioID uuid.UUID) ([]*types.Descriptor, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Descriptor, error) {
		var descriptors []*types.Descriptor

		err := m.db.NewSelect().
			Model(&descriptors).
			Where("portfolio_id = ?", portfolioID).
			Order("created_at ASC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get descriptors: %w", err)
		}

		return descriptors, nil
	})
}

// CountByPortfolio returns how many descriptors exist for a portfolio.
func (m *DescriptorModel) CountByPortfolio(ctx context.Context, portfolioID uuid.UUID) (int, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int, error) {
		count, err := m.db.NewSelect().
			Model((*types.Descriptor)(nil)).
			Where("portfolio_id = ?", portfolioID).
			Count(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to count descriptors: %w", err)
		}

		return count, nil
	})
}
