package feedback

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/atelier-ai/atelier/internal/database/types"
	"github.com/atelier-ai/atelier/internal/database/types/enum"
	"github.com/google/uuid"
	"github.com/redis/rueidis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testEventsClient(t *testing.T) rueidis.Client {
	t.Helper()

	mr := miniredis.RunT(t)

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)

	t.Cleanup(client.Close)

	return client
}

func TestReplayMarkerRoundTrip(t *testing.T) {
	t.Parallel()

	p := &Processor{events: testEventsClient(t), logger: zaptest.NewLogger(t)}
	eventID := uuid.New()

	assert.False(t, p.alreadyMarked(context.Background(), eventID), "unmarked event")

	p.markSeen(context.Background(), eventID)

	assert.True(t, p.alreadyMarked(context.Background(), eventID), "marked event")
	assert.False(t, p.alreadyMarked(context.Background(), uuid.New()), "different event")
}

func TestReplayMarkerNilClientFailsOpen(t *testing.T) {
	t.Parallel()

	p := &Processor{logger: zaptest.NewLogger(t)}
	eventID := uuid.New()

	p.markSeen(context.Background(), eventID)

	assert.False(t, p.alreadyMarked(context.Background(), eventID))
}

func TestProcessRejectsMarkedDuplicate(t *testing.T) {
	t.Parallel()

	p := &Processor{events: testEventsClient(t), logger: zaptest.NewLogger(t)}

	event := &types.FeedbackEvent{
		EventID:      uuid.New(),
		UserID:       "designer-1",
		GenerationID: uuid.New(),
		Kind:         enum.FeedbackKindLike,
	}

	p.markSeen(context.Background(), event.EventID)

	// The marker short-circuits before any store is touched
	_, err := p.Process(context.Background(), event)
	assert.ErrorIs(t, err, ErrDuplicateEvent)
}

func TestAuthorizeRejectsForeignGeneration(t *testing.T) {
	t.Parallel()

	p := &Processor{logger: zaptest.NewLogger(t)}

	event := &types.FeedbackEvent{
		EventID:      uuid.New(),
		UserID:       "designer-1",
		GenerationID: uuid.New(),
	}

	err := p.authorize(event, &types.Generation{UserID: "designer-2"})
	assert.ErrorIs(t, err, ErrNotOwner)

	assert.NoError(t, p.authorize(event, &types.Generation{UserID: "designer-1"}))
}

func TestRewardableSlotsSkipsFrozen(t *testing.T) {
	t.Parallel()

	spec := &types.PromptSpec{
		Garment:     "blazer",
		Fabric:      "wool suiting",
		Lighting:    "studio softbox",
		FrozenSlots: []enum.Slot{enum.SlotGarment},
	}

	eligible := rewardableSlots(spec)

	assert.NotContains(t, eligible, enum.SlotGarment, "frozen slot must not be rewarded")
	assert.Equal(t, "wool suiting", eligible[enum.SlotFabric])
	assert.Equal(t, "studio softbox", eligible[enum.SlotLighting])
	assert.NotContains(t, eligible, enum.SlotBackground, "empty slot carries nothing to reward")
}

func TestLockUserSerializes(t *testing.T) {
	t.Parallel()

	p := &Processor{logger: zaptest.NewLogger(t)}

	var (
		wg      sync.WaitGroup
		counter int
	)

	for range 50 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			unlock := p.lockUser("designer-1")
			defer unlock()

			counter++
		}()
	}

	wg.Wait()
	assert.Equal(t, 50, counter)
}
