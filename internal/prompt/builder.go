// Package prompt turns a style profile, learned preferences, and an optional
// user command into weighted prompt text for the image models.
package prompt

import (
	"context"
	"fmt"
	"time"

	"github.com/atelier-ai/atelier/internal/database"
	"github.com/atelier-ai/atelier/internal/database/types"
	"github.com/atelier-ai/atelier/internal/database/types/enum"
	"github.com/atelier-ai/atelier/internal/learn/bandit"
	"github.com/atelier-ai/atelier/internal/learn/rlhf"
	"github.com/atelier-ai/atelier/internal/setup/config"
	"github.com/atelier-ai/atelier/pkg/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BuildOptions carry the per-request inputs to the builder.
type BuildOptions struct {
	// Command is the user's free-text instruction, if any.
	Command string
	// IsExploration widens bandit sampling to under-visited values.
	IsExploration bool
	// Overrides pin slot values regardless of specificity. Used by critique
	// slot overrides and generate-similar requests.
	Overrides map[enum.Slot]string
	// ClusterLabel forces a named mode prefix.
	ClusterLabel string
}

// Builder assembles prompt specs from the learning stores.
type Builder struct {
	db                 database.Client
	bandit             *bandit.Store
	rlhf               *rlhf.Store
	maxWords           int
	signatureThreshold float64
	logger             *zap.Logger
}

// NewBuilder creates a Builder.
func NewBuilder(
	db database.Client, banditStore *bandit.Store, rlhfStore *rlhf.Store,
	cfg *config.Config, logger *zap.Logger,
) *Builder {
	return &Builder{
		db:                 db,
		bandit:             banditStore,
		rlhf:               rlhfStore,
		maxWords:           cfg.Server.Prompt.MaxWords,
		signatureThreshold: cfg.Server.Prompt.SignatureThreshold,
		logger:             logger.Named("prompt"),
	}
}

// Build produces one persisted-ready prompt. Explicitly commanded slots are
// frozen when the command is highly specific; the bandit only fills gaps.
func (b *Builder) Build(
	ctx context.Context, userID string, profile *types.StyleProfile, opts BuildOptions,
) (*types.Prompt, error) {
	specificity := ClassifySpecificity(opts.Command)
	params := ParamsFor(specificity)

	// Explicit slot values from the command and hard overrides
	commandSlots := ExtractCommandSlots(opts.Command)
	for slot, value := range opts.Overrides {
		commandSlots[slot] = value
	}

	frozen := make([]enum.Slot, 0, len(commandSlots))

	for slot := range commandSlots {
		if params.RespectIntent || opts.Overrides[slot] != "" {
			frozen = append(frozen, slot)
		}
	}

	// Sample the remaining slots
	sampleSlots := make([]enum.Slot, 0, len(enum.Slots()))

	for _, slot := range enum.Slots() {
		if !containsSlot(frozen, slot) {
			sampleSlots = append(sampleSlots, slot)
		}
	}

	sampled, err := b.bandit.Sample(ctx, userID, profile, sampleSlots, opts.IsExploration)
	if err != nil {
		return nil, fmt.Errorf("failed to sample slots: %w", err)
	}

	picks, err := b.rlhf.Pick(ctx, userID, TokenCandidates())
	if err != nil {
		return nil, fmt.Errorf("failed to pick tokens: %w", err)
	}

	spec := &types.PromptSpec{
		Weights:       make(map[enum.Slot]float64, len(defaultSlotWeights)),
		FrozenSlots:   frozen,
		IsExploration: opts.IsExploration,
		Creativity:    params.Creativity,
		ClusterLabel:  b.clusterLabel(profile, opts, params),
		ModelPose:     picks[enum.TokenCategoryModelPose],
		TokenPicks:    picks,
	}

	for _, slot := range enum.Slots() {
		value := commandSlots[slot]
		if value == "" {
			value = sampled[slot]
		}

		spec.SetSlotValue(slot, value)
	}

	if spec.Lighting == "" {
		spec.Lighting = picks[enum.TokenCategoryLighting]
	}

	b.applyWeights(ctx, userID, profile, spec)

	rendered := Render(spec, picks, b.maxWords)
	spec.Truncated = rendered.Truncated

	prompt := &types.Prompt{
		ID:               uuid.New(),
		UserID:           userID,
		Spec:             *spec,
		Text:             rendered.Text,
		NegativeText:     rendered.NegativeText,
		Specificity:      specificity,
		Creativity:       params.Creativity,
		BrandDNAStrength: params.BrandDNA,
		TokensUsed:       rendered.TokensUsed,
		Truncated:        rendered.Truncated,
		CreatedAt:        time.Now(),
	}

	b.logger.Debug("Built prompt",
		zap.String("userID", userID),
		zap.String("specificity", string(specificity)),
		zap.Int("tokensUsed", prompt.TokensUsed),
		zap.Bool("truncated", prompt.Truncated))

	return prompt, nil
}

// clusterLabel decides the mode prefix: an explicit label wins, otherwise the
// top profile theme when brand DNA is strong enough to impose it.
func (b *Builder) clusterLabel(profile *types.StyleProfile, opts BuildOptions, params SpecificityParams) string {
	if opts.ClusterLabel != "" {
		return opts.ClusterLabel
	}

	if profile != nil && len(profile.Themes) > 0 && params.BrandDNA > 0.5 {
		return profile.Themes[0]
	}

	return ""
}

// applyWeights sets per-slot weights: defaults, then signature boosts for
// values frequent in the profile, then active coverage-gap boosts.
func (b *Builder) applyWeights(ctx context.Context, userID string, profile *types.StyleProfile, spec *types.PromptSpec) {
	for slot, w := range defaultSlotWeights {
		spec.Weights[slot] = w
	}

	if profile != nil {
		for _, slot := range enum.Slots() {
			value := spec.SlotValue(slot)
			if value == "" {
				continue
			}

			if profile.Distributions[slot].Frequency(value) > b.signatureThreshold {
				spec.Weights[slot] = utils.Clamp(spec.Weights[slot]+0.2, 0, 1)
			}
		}
	}

	gaps, err := b.db.Model().Coverage().GetActiveGaps(ctx, userID)
	if err != nil {
		// Gap boosts are best-effort; the prompt still renders without them
		b.logger.Warn("Failed to load coverage gaps", zap.Error(err), zap.String("userID", userID))
		return
	}

	for _, gap := range gaps {
		boost := utils.Clamp(gap.RecommendedBoost, 1.2, 2.0)
		spec.Weights[gap.Slot] = utils.Clamp(spec.Weights[gap.Slot]*boost, 0, 1)
	}
}

func containsSlot(slots []enum.Slot, slot enum.Slot) bool {
	for _, s := range slots {
		if s == slot {
			return true
		}
	}

	return false
}
