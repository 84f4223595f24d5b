package models

import (
	"context"
	"fmt"

	"github.com/atelier-ai/atelier/internal/database/dbretry"
	"github.com/atelier-ai/atelier/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// CoverageModel handles database operations for selection results, coverage
// reports, and attribute gaps.
type CoverageModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewCoverage creates a CoverageModel.
func NewCoverage(db *bun.DB, logger *zap.Logger) *CoverageModel {
	return &CoverageModel{
		db:     db,
		logger: logger.Named("db_coverage"),
	}
}

// SaveSelection stores the diverse-subset result and coverage report for a
// batch, and swaps the user's active gaps for the newly detected ones.
func (m *CoverageModel) SaveSelection(
	ctx context.Context, selection *types.DPPSelectionResult,
	report *types.CoverageReport, gaps []*types.AttributeGap,
) error {
	return dbretry.Transaction(ctx, m.db, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(selection).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert selection result: %w", err)
		}

		if _, err := tx.NewInsert().Model(report).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert coverage report: %w", err)
		}

		_, err := tx.NewUpdate().
			Model((*types.AttributeGap)(nil)).
			Set("active = FALSE").
			Where("user_id = ? AND active", selection.UserID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to deactivate previous gaps: %w", err)
		}

		if len(gaps) > 0 {
			if _, err := tx.NewInsert().Model(&gaps).Exec(ctx); err != nil {
				return fmt.Errorf("failed to insert attribute gaps: %w", err)
			}
		}

		return nil
	})
}

// GetActiveGaps returns the user's currently active attribute gaps.
func (m *CoverageModel) GetActiveGaps(ctx context.Context, userID string) ([]*types.AttributeGap, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.AttributeGap, error) {
		var gaps []*types.AttributeGap

		err := m.db.NewSelect().
			Model(&gaps).
			Where("user_id = ? AND active", userID).
			Order("severity DESC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get attribute gaps: %w", err)
		}

		return gaps, nil
	})
}
