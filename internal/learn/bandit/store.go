// Package bandit maintains Thompson-sampling posteriors over prompt slot
// values.
package bandit

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/atelier-ai/atelier/internal/database"
	"github.com/atelier-ai/atelier/internal/database/types"
	"github.com/atelier-ai/atelier/internal/database/types/enum"
	"go.uber.org/zap"
)

// Store selects and updates slot values through Beta posteriors.
type Store struct {
	db      database.Client
	sampler *Sampler
	floor   float64
	logger  *zap.Logger
}

// NewStore creates a bandit Store.
func NewStore(db database.Client, floor float64, logger *zap.Logger) *Store {
	return &Store{
		db:      db,
		sampler: NewSampler(rand.Uint64(), rand.Uint64()),
		floor:   floor,
		logger:  logger.Named("bandit"),
	}
}

// Sample picks one value per requested slot. With no prior data, arms are
// seeded uniformly over the values present in the user's style profile, so
// exploration stays stylistically plausible from the first image. When
// exploration is set, sampling is replaced by a uniform pick among the
// bottom-quartile-visited values.
func (s *Store) Sample(
	ctx context.Context, userID string, profile *types.StyleProfile,
	slots []enum.Slot, exploration bool,
) (map[enum.Slot]string, error) {
	states, err := s.db.Model().Bandit().GetStates(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load bandit states: %w", err)
	}

	// Cold start: seed arms for slots with no posterior yet
	var seeds []*types.BanditState

	for _, slot := range slots {
		if len(states[slot]) > 0 || profile == nil {
			continue
		}

		for value := range profile.Distributions[slot] {
			arm := &types.BanditState{
				UserID:    userID,
				Slot:      slot,
				Value:     value,
				Alpha:     s.floor,
				Beta:      s.floor,
				UpdatedAt: time.Now(),
			}
			seeds = append(seeds, arm)
			states[slot] = append(states[slot], arm)
		}
	}

	if len(seeds) > 0 {
		if err := s.db.Model().Bandit().SeedArms(ctx, seeds); err != nil {
			return nil, fmt.Errorf("failed to seed bandit arms: %w", err)
		}
	}

	picks := make(map[enum.Slot]string, len(slots))

	for _, slot := range slots {
		arms := states[slot]
		if len(arms) == 0 {
			continue
		}

		if exploration {
			picks[slot] = s.pickBottomQuartile(arms)
		} else {
			picks[slot] = s.pickThompson(arms)
		}
	}

	return picks, nil
}

// pickThompson draws one Beta sample per arm and keeps the max.
func (s *Store) pickThompson(arms []*types.BanditState) string {
	var (
		best     string
		bestDraw = -1.0
	)

	for _, arm := range arms {
		draw := s.sampler.Beta(arm.Alpha, arm.Beta)
		if draw > bestDraw {
			best = arm.Value
			bestDraw = draw
		}
	}

	return best
}

// pickBottomQuartile selects uniformly among the least-visited quarter of
// arms to widen coverage.
func (s *Store) pickBottomQuartile(arms []*types.BanditState) string {
	sorted := make([]*types.BanditState, len(arms))
	copy(sorted, arms)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Observations != sorted[j].Observations {
			return sorted[i].Observations < sorted[j].Observations
		}

		return sorted[i].Value < sorted[j].Value
	})

	quartile := max(1, len(sorted)/4)

	return sorted[rand.IntN(quartile)].Value
}

// Update shifts the posterior for one (slot, value) arm. Positive rewards
// add to alpha, negative rewards add their magnitude to beta; both parameters
// stay at or above the floor.
func (s *Store) Update(ctx context.Context, userID string, slot enum.Slot, value string, reward float64) error {
	if value == "" || reward == 0 {
		return nil
	}

	var alphaDelta, betaDelta float64
	if reward > 0 {
		alphaDelta = reward
	} else {
		betaDelta = -reward
	}

	if err := s.db.Model().Bandit().ApplyReward(ctx, userID, slot, value, alphaDelta, betaDelta, s.floor); err != nil {
		return fmt.Errorf("failed to update bandit arm: %w", err)
	}

	s.logger.Debug("Updated bandit arm",
		zap.String("userID", userID),
		zap.String("slot", string(slot)),
		zap.String("value", value),
		zap.Float64("reward", reward))

	return nil
}

// Snapshot returns every posterior arm for inspection and analytics.
func (s *Store) Snapshot(ctx context.Context, userID string) (map[enum.Slot][]*types.BanditState, error) {
	return s.db.Model().Bandit().GetStates(ctx, userID)
}
