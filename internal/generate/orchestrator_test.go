package generate

import (
	"testing"

	"github.com/atelier-ai/atelier/internal/setup/config"
	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestPlanOutputs(t *testing.T) {
	t.Parallel()

	o := &Orchestrator{overgenPct: 20, imagesPerPrompt: 2}

	tests := []struct {
		requested   int
		wantOutputs int
		wantPrompts int
	}{
		// ceil(5 * 1.2) = 6 -> 3 prompts x 2 images
		{requested: 5, wantOutputs: 6, wantPrompts: 3},
		{requested: 1, wantOutputs: 2, wantPrompts: 1},
		{requested: 4, wantOutputs: 6, wantPrompts: 3},
		{requested: 10, wantOutputs: 12, wantPrompts: 6},
	}

	for _, tt := range tests {
		outputs, prompts := o.PlanOutputs(tt.requested)
		assert.Equal(t, tt.wantOutputs, outputs, "outputs for %d", tt.requested)
		assert.Equal(t, tt.wantPrompts, prompts, "prompts for %d", tt.requested)
	}
}

func TestCalculateCostNeverNegative(t *testing.T) {
	t.Parallel()

	adapter := NewOpenAIAdapter(nil, &config.OpenAIImageAdapter{BaseCostCents: 4}, zaptest.NewLogger(t))

	assert.Equal(t, int64(8), adapter.CalculateCost(2))
	assert.Equal(t, int64(0), adapter.CalculateCost(0))
	assert.Equal(t, int64(0), adapter.CalculateCost(-3))
}

func TestFluxResponseShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		wantURL string
	}{
		{
			name:    "single image object",
			body:    `{"image": {"url": "https://cdn/a.png", "width": 1024, "height": 1536}}`,
			wantURL: "https://cdn/a.png",
		},
		{
			name:    "image array",
			body:    `{"images": [{"url": "https://cdn/b.png"}, {"url": "https://cdn/c.png"}]}`,
			wantURL: "https://cdn/b.png",
		},
		{
			name:    "bare url",
			body:    `{"url": "https://cdn/d.png", "seed": 42}`,
			wantURL: "https://cdn/d.png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var parsed fluxResponse
			require.NoError(t, sonic.Unmarshal([]byte(tt.body), &parsed))

			image := parsed.pick()
			require.NotNil(t, image)
			assert.Equal(t, tt.wantURL, image.URL)
		})
	}
}

func TestFluxResponseEmpty(t *testing.T) {
	t.Parallel()

	var parsed fluxResponse
	require.NoError(t, sonic.Unmarshal([]byte(`{}`), &parsed))
	assert.Nil(t, parsed.pick())
}

func TestParseSize(t *testing.T) {
	t.Parallel()

	w, h := parseSize("1024x1536")
	assert.Equal(t, 1024, w)
	assert.Equal(t, 1536, h)

	w, h = parseSize("bogus")
	assert.Zero(t, w)
	assert.Zero(t, h)
}
