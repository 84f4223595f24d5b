// Package rlhf maintains per-token preference weights learned from user
// feedback.
package rlhf

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/atelier-ai/atelier/internal/database"
	"github.com/atelier-ai/atelier/internal/database/types/enum"
	"go.uber.org/zap"
)

var ErrUnknownCategory = fmt.Errorf("unknown token category")

// Store selects prompt tokens epsilon-greedily and applies EMA weight updates.
type Store struct {
	db           database.Client
	epsilon      float64
	learningRate float64
	logger       *zap.Logger
}

// NewStore creates an RLHF Store.
func NewStore(db database.Client, epsilon, learningRate float64, logger *zap.Logger) *Store {
	return &Store{
		db:           db,
		epsilon:      epsilon,
		learningRate: learningRate,
		logger:       logger.Named("rlhf"),
	}
}

// Pick chooses one token per category from the supplied candidates. With
// probability 1-epsilon the top-weighted candidate wins; otherwise a uniform
// random one. Unweighted candidates carry the neutral weight 1. The caller
// owns the token-to-category mapping; tokens are never re-categorized here.
func (s *Store) Pick(
	ctx context.Context, userID string, candidates map[enum.TokenCategory][]string,
) (map[enum.TokenCategory]string, error) {
	weights, err := s.db.Model().RLHF().GetWeights(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load token weights: %w", err)
	}

	picks := make(map[enum.TokenCategory]string, len(candidates))

	for category, tokens := range candidates {
		if len(tokens) == 0 {
			continue
		}

		if !enum.ValidTokenCategory(category) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
		}

		if rand.Float64() < s.epsilon {
			picks[category] = tokens[rand.IntN(len(tokens))]
			continue
		}

		best := tokens[0]
		bestWeight := weightOf(weights[category], best)

		for _, token := range tokens[1:] {
			if w := weightOf(weights[category], token); w > bestWeight {
				best = token
				bestWeight = w
			}
		}

		picks[category] = best
	}

	return picks, nil
}

// Reward applies one EMA update to a token weight. Unknown categories are
// rejected rather than silently categorized.
func (s *Store) Reward(
	ctx context.Context, userID string, category enum.TokenCategory, token string,
	reward float64, source string,
) error {
	if !enum.ValidTokenCategory(category) {
		return fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}

	if token == "" {
		return nil
	}

	updated, err := s.db.Model().RLHF().ApplyReward(ctx, userID, category, token, reward, s.learningRate, source)
	if err != nil {
		return fmt.Errorf("failed to apply token reward: %w", err)
	}

	s.logger.Debug("Updated token weight",
		zap.String("userID", userID),
		zap.String("category", string(category)),
		zap.String("token", token),
		zap.Float64("reward", reward),
		zap.Float64("weight", updated))

	return nil
}

// Weights returns the user's full weight table keyed by category.
func (s *Store) Weights(ctx context.Context, userID string) (map[enum.TokenCategory]map[string]float64, error) {
	return s.db.Model().RLHF().GetWeights(ctx, userID)
}

func weightOf(weights map[string]float64, token string) float64 {
	if w, ok := weights[token]; ok {
		return w
	}

	return 1.0
}
