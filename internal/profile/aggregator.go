// Package profile derives the user-level style signal from analyzed
// portfolio descriptors.
package profile

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/atelier-ai/atelier/internal/database"
	"github.com/atelier-ai/atelier/internal/database/types"
	"github.com/atelier-ai/atelier/internal/database/types/enum"
	"github.com/atelier-ai/atelier/internal/taxonomy"
	"github.com/atelier-ai/atelier/pkg/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// signatureConfidence is the minimum garment confidence for a signature piece.
const signatureConfidence = 0.7

// themeMinSupport drops themes seen fewer times than this.
const themeMinSupport = 2

// maxConstructionPatterns caps the reported construction pattern list.
const maxConstructionPatterns = 8

// genericThemeTerms are filtered out of aesthetic themes.
var genericThemeTerms = map[string]struct{}{
	"not_specified": {},
	"not_visible":   {},
	"none":          {},
	"classic":       {},
	"nice":          {},
	"modern":        {},
	"uncertain":     {},
}

// Aggregator builds style profiles from descriptors.
type Aggregator struct {
	db     database.Client
	cache  *Cache
	logger *zap.Logger
}

// NewAggregator creates an Aggregator.
func NewAggregator(db database.Client, cache *Cache, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		db:     db,
		cache:  cache,
		logger: logger.Named("profile"),
	}
}

// Aggregate rebuilds the user's style profile from all descriptors of the
// portfolio and atomically replaces the active row. The cache is refreshed on
// success.
func (a *Aggregator) Aggregate(ctx context.Context, userID string, portfolioID uuid.UUID) (*types.StyleProfile, error) {
	descriptors, err := a.db.Model().Descriptor().GetByPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to load descriptors: %w", err)
	}

	profile := Build(userID, portfolioID, descriptors)

	if err := a.db.Model().Profile().ReplaceActive(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to replace profile: %w", err)
	}

	if a.cache != nil {
		if err := a.cache.Set(ctx, profile); err != nil {
			a.logger.Warn("Failed to cache profile", zap.Error(err), zap.String("userID", userID))
		}
	}

	a.logger.Info("Aggregated style profile",
		zap.String("userID", userID),
		zap.Int("totalImages", profile.TotalImages),
		zap.Int("themes", len(profile.Themes)))

	return profile, nil
}

// GetActive returns the user's active profile, consulting the cache first.
func (a *Aggregator) GetActive(ctx context.Context, userID string) (*types.StyleProfile, error) {
	if a.cache != nil {
		if profile, err := a.cache.Get(ctx, userID); err == nil && profile != nil {
			return profile, nil
		}
	}

	profile, err := a.db.Model().Profile().GetActive(ctx, userID)
	if err != nil {
		return nil, err
	}

	if a.cache != nil {
		if err := a.cache.Set(ctx, profile); err != nil {
			a.logger.Warn("Failed to cache profile", zap.Error(err), zap.String("userID", userID))
		}
	}

	return profile, nil
}

// Invalidate drops the cached and persisted active profile so the next read
// triggers reaggregation. Called after additive ingestion.
func (a *Aggregator) Invalidate(ctx context.Context, userID string) error {
	if a.cache != nil {
		if err := a.cache.Delete(ctx, userID); err != nil {
			a.logger.Warn("Failed to invalidate cached profile", zap.Error(err), zap.String("userID", userID))
		}
	}

	return a.db.Model().Profile().InvalidateActive(ctx, userID)
}

// Build derives a style profile from descriptors. Pure; no I/O.
func Build(userID string, portfolioID uuid.UUID, descriptors []*types.Descriptor) *types.StyleProfile {
	profile := &types.StyleProfile{
		ID:            uuid.New(),
		UserID:        userID,
		PortfolioID:   portfolioID,
		Distributions: make(map[enum.Slot]types.Distribution),
		TotalImages:   len(descriptors),
		Active:        true,
		CreatedAt:     time.Now(),
	}

	for _, slot := range enum.Slots() {
		profile.Distributions[slot] = make(types.Distribution)
	}

	var (
		confSum, complSum float64
		themeCounts       = make(map[string]int)
		construction      = make(map[string]int)
	)

	for _, d := range descriptors {
		confSum += utils.RescaleConfidence(d.Confidence)
		complSum += utils.RescaleCompleteness(d.Completeness)

		doc := &d.Document

		countValue(profile.Distributions[enum.SlotLighting], doc.Photography.Lighting.Type)
		countValue(profile.Distributions[enum.SlotCamera], doc.Photography.Camera.Angle)
		countValue(profile.Distributions[enum.SlotBackground], doc.Photography.Background)

		collectThemes(themeCounts, doc.ContextualAttributes.MoodAesthetic)
		collectThemes(themeCounts, doc.StylingContext)

		for _, g := range doc.Garments {
			countValue(profile.Distributions[enum.SlotGarment], g.Type)
			countValue(profile.Distributions[enum.SlotFabric], g.Fabric.PrimaryMaterial)
			countValue(profile.Distributions[enum.SlotSilhouette], g.Silhouette)
			countValue(profile.Distributions[enum.SlotFinish], g.Finish)

			for _, c := range g.ColorPalette {
				countValue(profile.Distributions[enum.SlotColor], c.ColorName)
			}

			for _, detail := range g.ConstructionDetails {
				detail = strings.ToLower(strings.TrimSpace(detail))
				if detail != "" {
					construction[detail]++
				}
			}

			if utils.RescaleConfidence(g.Confidence) >= signatureConfidence && len(g.ConstructionDetails) > 0 {
				profile.Signatures = append(profile.Signatures, types.SignaturePiece{
					GarmentType: g.Type,
					Detail:      g.ConstructionDetails[0],
					Fabric:      g.Fabric.PrimaryMaterial,
					Confidence:  utils.RescaleConfidence(g.Confidence),
				})
			}
		}
	}

	profile.Themes = rankThemes(themeCounts)
	profile.Construction = rankConstruction(construction)

	if len(descriptors) > 0 {
		n := float64(len(descriptors))
		profile.AvgConfidence = utils.Clamp(confSum/n, 0, 9.999)
		profile.AvgCompleteness = utils.Clamp(complSum/n, 0, 999.99)
	}

	profile.SummaryText = summarize(profile)

	return profile
}

// countValue increments a distribution, skipping blanks and the uncertain
// sentinel so they never dominate a profile.
func countValue(dist types.Distribution, value string) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" || value == taxonomy.Uncertain {
		return
	}

	dist[value]++
}

// collectThemes splits a free-text label on / and , and counts surviving terms.
func collectThemes(counts map[string]int, raw string) {
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == '/' || r == ',' }) {
		theme := strings.ToLower(strings.TrimSpace(part))
		if theme == "" {
			continue
		}

		if _, generic := genericThemeTerms[theme]; generic {
			continue
		}

		counts[theme]++
	}
}

// rankThemes orders themes by frequency, drops those below the support
// threshold, and re-capitalizes.
func rankThemes(counts map[string]int) []string {
	type themeCount struct {
		theme string
		count int
	}

	ranked := make([]themeCount, 0, len(counts))
	for theme, count := range counts {
		if count >= themeMinSupport {
			ranked = append(ranked, themeCount{theme, count})
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}

		return ranked[i].theme < ranked[j].theme
	})

	themes := make([]string, 0, len(ranked))
	for _, tc := range ranked {
		themes = append(themes, capitalize(tc.theme))
	}

	return themes
}

func rankConstruction(counts map[string]int) []types.ConstructionPattern {
	patterns := make([]types.ConstructionPattern, 0, len(counts))
	for detail, count := range counts {
		patterns = append(patterns, types.ConstructionPattern{Detail: detail, Count: count})
	}

	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].Count != patterns[j].Count {
			return patterns[i].Count > patterns[j].Count
		}

		return patterns[i].Detail < patterns[j].Detail
	})

	if len(patterns) > maxConstructionPatterns {
		patterns = patterns[:maxConstructionPatterns]
	}

	return patterns
}

// summarize renders the deterministic profile summary.
func summarize(p *types.StyleProfile) string {
	if p.TotalImages == 0 {
		return "No analyzed images yet."
	}

	themes := "a developing aesthetic"

	switch {
	case len(p.Themes) >= 2:
		themes = p.Themes[0] + " and " + p.Themes[1]
	case len(p.Themes) == 1:
		themes = p.Themes[0]
	}

	garments := p.Distributions[enum.SlotGarment]
	topGarment, topCount := garments.Top()
	garmentPct := 0

	if total := garments.Total(); total > 0 {
		garmentPct = topCount * 100 / total
	}

	return fmt.Sprintf("Based on %d images, your style includes %s. %d%% %s pieces, %s, %s.",
		p.TotalImages, themes, garmentPct, topGarment,
		dominant(p.Distributions[enum.SlotColor], "mixed colors"),
		dominant(p.Distributions[enum.SlotFabric], "mixed fabrics"))
}

func dominant(dist types.Distribution, fallback string) string {
	top, count := dist.Top()
	if count == 0 {
		return fallback
	}

	return top
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	return strings.ToUpper(s[:1]) + s[1:]
}
