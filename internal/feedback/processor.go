package feedback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/atelier-ai/atelier/internal/ai"
	"github.com/atelier-ai/atelier/internal/database"
	"github.com/atelier-ai/atelier/internal/database/models"
	"github.com/atelier-ai/atelier/internal/database/types"
	"github.com/atelier-ai/atelier/internal/database/types/enum"
	"github.com/atelier-ai/atelier/internal/learn/bandit"
	"github.com/atelier-ai/atelier/internal/learn/rlhf"
	"github.com/google/uuid"
	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

// ErrInvalidKind is returned for an unrecognized event kind.
var ErrInvalidKind = errors.New("invalid feedback kind")

// ErrNotOwner is returned when feedback targets another user's generation.
var ErrNotOwner = errors.New("generation not owned by user")

// ErrDuplicateEvent re-exports the replay rejection for callers.
var ErrDuplicateEvent = models.ErrDuplicateEvent

// Outcome reports what a processed event changed.
type Outcome struct {
	// SlotOverrides carries critique-derived replacements the caller should
	// apply to its next generate-similar request.
	SlotOverrides map[enum.Slot]string
	// PreferenceReward and AttributeReward echo the applied magnitudes.
	PreferenceReward float64
	AttributeReward  float64
}

// markerTTL keeps replay markers around long enough to absorb client retries.
const markerTTL = 24 * time.Hour

// Processor applies feedback events to the learning stores. Event persistence
// is transactional per event; learner updates are best-effort and never
// surface errors to the interaction path.
type Processor struct {
	db        database.Client
	events    rueidis.Client
	bandit    *bandit.Store
	rlhf      *rlhf.Store
	critique  *ai.CritiqueAnalyzer
	userLocks sync.Map
	logger    *zap.Logger
}

// NewProcessor creates a Processor. The events client is a fast-path replay
// filter and may be nil; the event log's unique constraint stays the source
// of truth either way.
func NewProcessor(
	db database.Client, events rueidis.Client, banditStore *bandit.Store,
	rlhfStore *rlhf.Store, critique *ai.CritiqueAnalyzer, logger *zap.Logger,
) *Processor {
	return &Processor{
		db:       db,
		events:   events,
		bandit:   banditStore,
		rlhf:     rlhfStore,
		critique: critique,
		logger:   logger.Named("feedback"),
	}
}

// Process records one event and fans its reward out to the learners.
// A replayed event ID returns ErrDuplicateEvent without touching any store.
func (p *Processor) Process(ctx context.Context, event *types.FeedbackEvent) (*Outcome, error) {
	if !enum.ValidFeedbackKind(event.Kind) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidKind, event.Kind)
	}

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	// Events for one user apply in sequence so the learners' read-modify-write
	// updates never interleave.
	unlock := p.lockUser(event.UserID)
	defer unlock()

	if p.alreadyMarked(ctx, event.EventID) {
		return nil, ErrDuplicateEvent
	}

	gen, err := p.db.Model().Generation().Get(ctx, event.GenerationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load generation: %w", err)
	}

	if err := p.authorize(event, gen); err != nil {
		return nil, err
	}

	prompt, err := p.db.Model().Prompt().Get(ctx, gen.PromptID)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompt: %w", err)
	}

	if err := p.db.Model().Feedback().InsertEvent(ctx, event); err != nil {
		return nil, err
	}

	// Marked only after the insert commits, so a transient insert failure
	// never blocks the client's retry of the same event ID
	p.markSeen(ctx, event.EventID)

	if event.Kind == enum.FeedbackKindCritique {
		return p.processCritique(ctx, event, prompt)
	}

	outcome := &Outcome{
		PreferenceReward: preferenceReward(event.Kind, event.Payload),
		AttributeReward:  attributeReward(event.Kind, event.Payload),
	}

	p.rewardTokens(ctx, event.UserID, prompt, outcome.PreferenceReward, string(event.Kind))
	p.rewardSlots(ctx, event.UserID, prompt, outcome.AttributeReward)

	return outcome, nil
}

// lockUser acquires the per-user mutex and returns its release.
func (p *Processor) lockUser(userID string) func() {
	value, _ := p.userLocks.LoadOrStore(userID, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()

	return mu.Unlock
}

// authorize rejects feedback aimed at a generation the caller does not own.
func (p *Processor) authorize(event *types.FeedbackEvent, gen *types.Generation) error {
	if gen.UserID != event.UserID {
		return fmt.Errorf("%w: %s", ErrNotOwner, event.GenerationID)
	}

	return nil
}

// alreadyMarked reports whether the event ID carries a replay marker. Marker
// failures fail open; the event log's unique constraint still rejects true
// replays.
func (p *Processor) alreadyMarked(ctx context.Context, eventID uuid.UUID) bool {
	if p.events == nil {
		return false
	}

	resp := p.events.Do(ctx, p.events.B().Exists().Key(markerKey(eventID)).Build())

	count, err := resp.AsInt64()
	if err != nil {
		p.logger.Warn("Replay marker unavailable", zap.Error(err))
		return false
	}

	return count > 0
}

// markSeen records the replay marker once the event is durably logged.
func (p *Processor) markSeen(ctx context.Context, eventID uuid.UUID) {
	if p.events == nil {
		return
	}

	resp := p.events.Do(ctx, p.events.B().Set().
		Key(markerKey(eventID)).Value("1").Nx().
		Ex(markerTTL).Build())
	if err := resp.Error(); err != nil && !rueidis.IsRedisNil(err) {
		p.logger.Warn("Failed to set replay marker", zap.Error(err))
	}
}

func markerKey(eventID uuid.UUID) string {
	return "evt:" + eventID.String()
}

// rewardTokens applies a preference reward to every token the prompt used.
func (p *Processor) rewardTokens(
	ctx context.Context, userID string, prompt *types.Prompt, reward float64, source string,
) {
	if reward == 0 {
		return
	}

	for category, token := range prompt.Spec.TokenPicks {
		if token == "" {
			continue
		}

		if err := p.rlhf.Reward(ctx, userID, category, token, reward, source); err != nil {
			p.logger.Warn("Failed to apply preference reward",
				zap.Error(err),
				zap.String("category", string(category)),
				zap.String("token", token))
		}
	}
}

// rewardSlots updates the bandit posterior for every rewardable slot the
// prompt filled.
func (p *Processor) rewardSlots(
	ctx context.Context, userID string, prompt *types.Prompt, reward float64,
) {
	if reward == 0 {
		return
	}

	for slot, value := range rewardableSlots(&prompt.Spec) {
		if err := p.bandit.Update(ctx, userID, slot, value, reward); err != nil {
			p.logger.Warn("Failed to apply attribute reward",
				zap.Error(err),
				zap.String("slot", string(slot)),
				zap.String("value", value))
		}
	}
}

// rewardableSlots returns the filled slot values eligible for bandit updates.
// Frozen slots reflect explicit user intent, not a sampled choice, so
// reactions carry no signal for them.
func rewardableSlots(spec *types.PromptSpec) map[enum.Slot]string {
	eligible := make(map[enum.Slot]string)

	for _, slot := range enum.Slots() {
		if spec.Frozen(slot) {
			continue
		}

		if value := spec.SlotValue(slot); value != "" {
			eligible[slot] = value
		}
	}

	return eligible
}

// processCritique parses the free-text critique into deltas and applies them
// as directed preference rewards. Slot overrides are returned for the next
// build rather than applied retroactively.
func (p *Processor) processCritique(
	ctx context.Context, event *types.FeedbackEvent, prompt *types.Prompt,
) (*Outcome, error) {
	text, _ := event.Payload["text"].(string)
	if text == "" {
		return &Outcome{}, nil
	}

	analysis, err := p.critique.Parse(ctx, text)
	if err != nil {
		// Critique parsing is advisory; the event itself is already recorded
		p.logger.Warn("Failed to parse critique",
			zap.Error(err),
			zap.String("eventID", event.EventID.String()))

		return &Outcome{}, nil
	}

	for _, delta := range analysis.Add {
		if err := p.rlhf.Reward(
			ctx, event.UserID, enum.TokenCategory(delta.Category),
			delta.Token, critiqueDeltaReward, "critique",
		); err != nil {
			p.logger.Warn("Failed to apply critique addition", zap.Error(err), zap.String("token", delta.Token))
		}
	}

	for _, delta := range analysis.Remove {
		if err := p.rlhf.Reward(
			ctx, event.UserID, enum.TokenCategory(delta.Category),
			delta.Token, -critiqueDeltaReward, "critique",
		); err != nil {
			p.logger.Warn("Failed to apply critique removal", zap.Error(err), zap.String("token", delta.Token))
		}
	}

	outcome := &Outcome{SlotOverrides: make(map[enum.Slot]string, len(analysis.SlotOverrides))}

	for slot, value := range analysis.SlotOverrides {
		if prompt.Spec.Frozen(enum.Slot(slot)) {
			continue
		}

		outcome.SlotOverrides[enum.Slot(slot)] = value
	}

	return outcome, nil
}
