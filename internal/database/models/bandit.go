package models

import (
	"context"
	"fmt"
	"time"

	"github.com/atelier-ai/atelier/internal/database/dbretry"
	"github.com/atelier-ai/atelier/internal/database/types"
	"github.com/atelier-ai/atelier/internal/database/types/enum"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// BanditModel handles database operations for Thompson sampling posteriors.
type BanditModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewBandit creates a BanditModel.
func NewBandit(db *bun.DB, logger *zap.Logger) *BanditModel {
	return &BanditModel{
		db:     db,
		logger: logger.Named("db_bandit"),
	}
}

// GetStates returns all posterior arms for a user, keyed by slot.
func (m *BanditModel) GetStates(ctx context.Context, userID string) (map[enum.Slot][]*types.BanditState, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (map[enum.Slot][]*types.BanditState, error) {
		var states []*types.BanditState

		err := m.db.NewSelect().
			Model(&states).
			Where("user_id = ?", userID).
			Order("slot ASC", "value ASC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get bandit states: %w", err)
		}

		bySlot := make(map[enum.Slot][]*types.BanditState)
		for _, state := range states {
			bySlot[state.Slot] = append(bySlot[state.Slot], state)
		}

		return bySlot, nil
	})
}

// SeedArms initializes posteriors for values that have no arm yet, leaving
// existing posteriors untouched.
func (m *BanditModel) SeedArms(ctx context.Context, arms []*types.BanditState) error {
	if len(arms) == 0 {
		return nil
	}

	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(&arms).
			On("CONFLICT (user_id, slot, value) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to seed bandit arms: %w", err)
		}

		return nil
	})
}

// ApplyReward shifts one arm's posterior by the given alpha/beta deltas.
// Parameters never drop below the floor, so an arm can always recover.
func (m *BanditModel) ApplyReward(
	ctx context.Context, userID string, slot enum.Slot, value string,
	alphaDelta, betaDelta, floor float64,
) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(&types.BanditState{
				UserID:       userID,
				Slot:         slot,
				Value:        value,
				Alpha:        max(floor, floor+alphaDelta),
				Beta:         max(floor, floor+betaDelta),
				Observations: 1,
				UpdatedAt:    time.Now(),
			}).
			On("CONFLICT (user_id, slot, value) DO UPDATE").
			Set("alpha = GREATEST(?, bandit_state.alpha + ?)", floor, alphaDelta).
			Set("beta = GREATEST(?, bandit_state.beta + ?)", floor, betaDelta).
			Set("observations = bandit_state.observations + 1").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to apply bandit reward: %w", err)
		}

		return nil
	})
}
