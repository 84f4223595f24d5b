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
	"github.com/atelier-ai/atelier/pkg/utils"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// RLHFModel handles database operations for per-token preference weights.
type RLHFModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewRLHF creates an RLHFModel.
func NewRLHF(db *bun.DB, logger *zap.Logger) *RLHFModel {
	return &RLHFModel{
		db:     db,
		logger: logger.Named("db_rlhf"),
	}
}

// GetWeights returns all token weights for a user, keyed by category.
func (m *RLHFModel) GetWeights(
	ctx context.Context, userID string,
) (map[enum.TokenCategory]map[string]float64, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (map[enum.TokenCategory]map[string]float64, error) {
		var weights []*types.TokenWeight

		err := m.db.NewSelect().
			Model(&weights).
			Where("user_id = ?", userID).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get token weights: %w", err)
		}

		byCategory := make(map[enum.TokenCategory]map[string]float64)
		for _, w := range weights {
			if byCategory[w.Category] == nil {
				byCategory[w.Category] = make(map[string]float64)
			}

			byCategory[w.Category][w.Token] = w.Weight
		}

		return byCategory, nil
	})
}

// ApplyReward moves a token weight toward the reward by the learning rate and
// appends an audit log entry, both in one transaction. The updated weight is
// clipped to [0, 2]; a missing weight starts at the neutral 1.
func (m *RLHFModel) ApplyReward(
	ctx context.Context, userID string, category enum.TokenCategory, token string,
	reward, learningRate float64, source string,
) (float64, error) {
	var updated float64

	err := dbretry.Transaction(ctx, m.db, func(ctx context.Context, tx bun.Tx) error {
		var existing types.TokenWeight

		err := tx.NewSelect().
			Model(&existing).
			Where("user_id = ? AND category = ? AND token = ?", userID, category, token).
			For("UPDATE").
			Scan(ctx)

		current, err := weightBefore(&existing, err)
		if err != nil {
			return err
		}

		updated = utils.Clamp(current+learningRate*(reward-current), 0, 2)

		_, err = tx.NewInsert().
			Model(&types.TokenWeight{
				UserID:    userID,
				Category:  category,
				Token:     token,
				Weight:    updated,
				UpdatedAt: time.Now(),
			}).
			On("CONFLICT (user_id, category, token) DO UPDATE").
			Set("weight = EXCLUDED.weight").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to upsert token weight: %w", err)
		}

		_, err = tx.NewInsert().
			Model(&types.RLHFFeedbackLog{
				ID:        uuid.New(),
				UserID:    userID,
				Category:  category,
				Token:     token,
				Reward:    reward,
				Source:    source,
				CreatedAt: time.Now(),
			}).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to log token reward: %w", err)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return updated, nil
}

// weightBefore interprets the weight select outcome: a missing row starts at
// the neutral weight, any other error aborts the update.
func weightBefore(existing *types.TokenWeight, err error) (float64, error) {
	switch {
	case err == nil:
		return existing.Weight, nil
	case errors.Is(err, sql.ErrNoRows):
		return 1.0, nil
	default:
		return 0, fmt.Errorf("failed to load token weight: %w", err)
	}
}
