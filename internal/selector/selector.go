package selector

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/atelier-ai/atelier/internal/database"
	"github.com/atelier-ai/atelier/internal/database/types"
	"github.com/atelier-ai/atelier/internal/database/types/enum"
	"github.com/atelier-ai/atelier/internal/setup/config"
	"github.com/atelier-ai/atelier/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// pairBonus nudges the greedy pick toward keeping both images of a prompt
// together once one of them is in.
const pairBonus = 0.05

// Candidate is one scored generation competing for a batch slot.
type Candidate struct {
	Generation *types.Generation
	Prompt     *types.Prompt
	Quality    float64
	features   map[string]struct{}
}

// Selection is the outcome of one batch selection.
type Selection struct {
	Selected []*Candidate
	Rejected []*Candidate
	Report   *types.CoverageReport
	Gaps     []*types.AttributeGap
}

// Selector scores a generated batch, picks a diverse subset, and records
// coverage against the user's style profile.
type Selector struct {
	db               database.Client
	store            *storage.Client
	scorer           Scorer
	alpha            float64
	qualityThreshold float64
	coverageTarget   float64
	logger           *zap.Logger
}

// NewSelector creates a Selector with the default heuristic scorer.
func NewSelector(db database.Client, store *storage.Client, cfg *config.Config, logger *zap.Logger) *Selector {
	return &Selector{
		db:               db,
		store:            store,
		scorer:           NewHeuristicScorer(),
		alpha:            0.6,
		qualityThreshold: cfg.Server.Pipeline.QualityThreshold,
		coverageTarget:   cfg.Server.Pipeline.CoverageTargetPct,
		logger:           logger.Named("selector"),
	}
}

// Select scores every uploaded generation in the batch, keeps the best n by a
// quality-diversity trade-off, and persists scores, the selection record, and
// the coverage report. Rejected generations stay stored but are marked so.
func (s *Selector) Select(
	ctx context.Context, userID string, batchID uuid.UUID,
	profile *types.StyleProfile, generations []*types.Generation,
	prompts []*types.Prompt, n int,
) (*Selection, error) {
	promptsByID := make(map[uuid.UUID]*types.Prompt, len(prompts))
	for _, p := range prompts {
		promptsByID[p.ID] = p
	}

	candidates := make([]*Candidate, 0, len(generations))

	for _, gen := range generations {
		if gen.Status != enum.GenerationStatusUploaded {
			continue
		}

		p := promptsByID[gen.PromptID]
		if p == nil {
			s.logger.Warn("Generation has no prompt in batch",
				zap.String("generationID", gen.ID.String()))

			continue
		}

		data, err := s.store.GetObject(ctx, gen.StorageKey)
		if err != nil {
			s.logger.Warn("Failed to fetch generation for scoring",
				zap.Error(err),
				zap.String("key", gen.StorageKey))

			data = nil
		}

		candidates = append(candidates, &Candidate{
			Generation: gen,
			Prompt:     p,
			Quality:    s.scorer.Score(gen, data),
			features:   featureSet(&p.Spec),
		})
	}

	pool := make([]*Candidate, 0, len(candidates))
	rejected := make([]*Candidate, 0)

	for _, c := range candidates {
		if c.Quality >= s.qualityThreshold {
			pool = append(pool, c)
		} else {
			rejected = append(rejected, c)
		}
	}

	selected := greedyPick(pool, n, s.alpha)

	inSelected := make(map[uuid.UUID]struct{}, len(selected))
	for _, c := range selected {
		inSelected[c.Generation.ID] = struct{}{}
	}

	for _, c := range pool {
		if _, ok := inSelected[c.Generation.ID]; !ok {
			rejected = append(rejected, c)
		}
	}

	for _, c := range selected {
		if err := s.db.Model().Generation().UpdateScore(
			ctx, c.Generation.ID, c.Quality, enum.ValidationStatusAccepted,
		); err != nil {
			return nil, fmt.Errorf("failed to record accepted score: %w", err)
		}
	}

	for _, c := range rejected {
		if err := s.db.Model().Generation().UpdateScore(
			ctx, c.Generation.ID, c.Quality, enum.ValidationStatusRejected,
		); err != nil {
			return nil, fmt.Errorf("failed to record rejected score: %w", err)
		}
	}

	report, gaps := analyzeCoverage(userID, batchID, profile, selected, s.coverageTarget)

	selectedIDs := make([]uuid.UUID, 0, len(selected))
	for _, c := range selected {
		selectedIDs = append(selectedIDs, c.Generation.ID)
	}

	record := &types.DPPSelectionResult{
		ID:             uuid.New(),
		UserID:         userID,
		BatchID:        batchID,
		SelectedIDs:    selectedIDs,
		DiversityScore: diversityScore(selected),
		CreatedAt:      time.Now(),
	}

	if err := s.db.Model().Coverage().SaveSelection(ctx, record, report, gaps); err != nil {
		return nil, fmt.Errorf("failed to save selection: %w", err)
	}

	s.logger.Info("Batch selection complete",
		zap.String("userID", userID),
		zap.Int("candidates", len(candidates)),
		zap.Int("selected", len(selected)),
		zap.Int("gaps", len(gaps)),
		zap.Float64("diversity", record.DiversityScore))

	return &Selection{
		Selected: selected,
		Rejected: rejected,
		Report:   report,
		Gaps:     gaps,
	}, nil
}

// featureSet builds the one-hot attribute set a spec occupies. Slot values
// and the cluster label each contribute one feature.
func featureSet(spec *types.PromptSpec) map[string]struct{} {
	features := make(map[string]struct{})

	for _, slot := range enum.Slots() {
		if value := strings.ToLower(strings.TrimSpace(spec.SlotValue(slot))); value != "" {
			features[string(slot)+":"+value] = struct{}{}
		}
	}

	if spec.ClusterLabel != "" {
		features["cluster:"+strings.ToLower(spec.ClusterLabel)] = struct{}{}
	}

	return features
}

// similarity is the Jaccard overlap of two feature sets.
func similarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	shared := 0

	for f := range a {
		if _, ok := b[f]; ok {
			shared++
		}
	}

	union := len(a) + len(b) - shared

	return float64(shared) / float64(union)
}

// greedyPick selects up to n candidates maximizing the marginal gain
// alpha*quality - (1-alpha)*maxSimilarity at every step. Siblings of an
// already selected prompt receive a small bonus so pairs survive together.
func greedyPick(pool []*Candidate, n int, alpha float64) []*Candidate {
	if n <= 0 || len(pool) == 0 {
		return nil
	}

	// Deterministic starting order
	remaining := make([]*Candidate, len(pool))
	copy(remaining, pool)
	sort.SliceStable(remaining, func(i, j int) bool {
		if remaining[i].Quality != remaining[j].Quality {
			return remaining[i].Quality > remaining[j].Quality
		}

		return remaining[i].Generation.ID.String() < remaining[j].Generation.ID.String()
	})

	selected := make([]*Candidate, 0, n)
	selectedPrompts := make(map[uuid.UUID]struct{})

	for len(selected) < n && len(remaining) > 0 {
		bestIdx := -1
		bestGain := 0.0

		for i, c := range remaining {
			maxSim := 0.0

			for _, s := range selected {
				if sim := similarity(c.features, s.features); sim > maxSim {
					maxSim = sim
				}
			}

			gain := alpha*(c.Quality/100) - (1-alpha)*maxSim
			if _, ok := selectedPrompts[c.Prompt.ID]; ok {
				gain += pairBonus
			}

			if bestIdx == -1 || gain > bestGain {
				bestIdx = i
				bestGain = gain
			}
		}

		pick := remaining[bestIdx]
		selected = append(selected, pick)
		selectedPrompts[pick.Prompt.ID] = struct{}{}
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	return selected
}

// diversityScore is one minus the mean pairwise similarity of the selection.
func diversityScore(selected []*Candidate) float64 {
	if len(selected) < 2 {
		return 1
	}

	var (
		sum   float64
		pairs int
	)

	for i := range selected {
		for j := i + 1; j < len(selected); j++ {
			sum += similarity(selected[i].features, selected[j].features)
			pairs++
		}
	}

	return 1 - sum/float64(pairs)
}
