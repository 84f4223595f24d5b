// Package selector scores generated images and picks the diverse subset
// returned to the user.
package selector

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"github.com/HugoSmits86/nativewebp"
	"github.com/atelier-ai/atelier/internal/database/types"
	"github.com/atelier-ai/atelier/pkg/utils"
	"golang.org/x/image/draw"
)

// Score component caps: resolution adequacy, edge statistics, and
// adapter-reported metadata sum to 100.
const (
	resolutionCap = 40.0
	edgeCap       = 40.0
	metadataCap   = 20.0

	// referencePixels is the pixel count that earns full resolution marks.
	referencePixels = 1024 * 1024

	// edgeReference is the mean Sobel magnitude treated as fully sharp.
	edgeReference = 24.0

	// thumbSize bounds the working image for edge statistics.
	thumbSize = 256
)

// Scorer produces a bounded [0,100] quality score for one generation.
type Scorer interface {
	Score(gen *types.Generation, data []byte) float64
}

// HeuristicScorer scores from resolution, Sobel edge statistics, and
// adapter metadata. No model calls.
type HeuristicScorer struct{}

// NewHeuristicScorer creates the default scorer.
func NewHeuristicScorer() *HeuristicScorer {
	return &HeuristicScorer{}
}

// Score implements Scorer. Undecodable images score zero.
func (s *HeuristicScorer) Score(gen *types.Generation, data []byte) float64 {
	img := decode(data)
	if img == nil {
		return 0
	}

	score := resolutionScore(img) + edgeScore(img) + metadataScore(gen)

	return utils.Clamp(score, 0, 100)
}

func decode(data []byte) image.Image {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err == nil {
		return img
	}

	if webp, werr := nativewebp.Decode(bytes.NewReader(data)); werr == nil {
		return webp
	}

	return nil
}

// resolutionScore scales with pixel count up to the reference resolution.
func resolutionScore(img image.Image) float64 {
	bounds := img.Bounds()
	pixels := float64(bounds.Dx() * bounds.Dy())

	return math.Min(resolutionCap, resolutionCap*pixels/referencePixels)
}

// edgeScore runs a Sobel operator over a grayscale thumbnail; flat or smeared
// images earn little, crisp fabric texture earns the full band.
func edgeScore(img image.Image) float64 {
	gray := grayThumb(img)
	bounds := gray.Bounds()

	if bounds.Dx() < 3 || bounds.Dy() < 3 {
		return 0
	}

	var sum float64

	count := 0

	for y := bounds.Min.Y + 1; y < bounds.Max.Y-1; y++ {
		for x := bounds.Min.X + 1; x < bounds.Max.X-1; x++ {
			gx := -int(gray.GrayAt(x-1, y-1).Y) + int(gray.GrayAt(x+1, y-1).Y) +
				-2*int(gray.GrayAt(x-1, y).Y) + 2*int(gray.GrayAt(x+1, y).Y) +
				-int(gray.GrayAt(x-1, y+1).Y) + int(gray.GrayAt(x+1, y+1).Y)

			gy := -int(gray.GrayAt(x-1, y-1).Y) - 2*int(gray.GrayAt(x, y-1).Y) - int(gray.GrayAt(x+1, y-1).Y) +
				int(gray.GrayAt(x-1, y+1).Y) + 2*int(gray.GrayAt(x, y+1).Y) + int(gray.GrayAt(x+1, y+1).Y)

			sum += math.Sqrt(float64(gx*gx + gy*gy))
			count++
		}
	}

	if count == 0 {
		return 0
	}

	mean := sum / float64(count)

	return math.Min(edgeCap, edgeCap*mean/edgeReference)
}

// grayThumb downsamples to a bounded grayscale image so edge statistics cost
// the same regardless of source resolution.
func grayThumb(img image.Image) *image.Gray {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w > thumbSize || h > thumbSize {
		scale := float64(thumbSize) / math.Max(float64(w), float64(h))
		w = max(1, int(float64(w)*scale))
		h = max(1, int(float64(h)*scale))
	}

	scaled := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, bounds, draw.Over, nil)

	gray := image.NewGray(scaled.Bounds())
	draw.Draw(gray, gray.Bounds(), scaled, scaled.Bounds().Min, draw.Src)

	return gray
}

// metadataScore credits adapter-reported provenance: a known provider and a
// reproducible seed each earn half the band.
func metadataScore(gen *types.Generation) float64 {
	score := 0.0

	if gen.Provider != "" {
		score += metadataCap / 2
	}

	if gen.Seed != "" {
		score += metadataCap / 2
	}

	return score
}
