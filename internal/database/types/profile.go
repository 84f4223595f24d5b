package types

import (
	"time"

	"github.com/atelier-ai/atelier/internal/database/types/enum"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// StyleProfile is the aggregated, user-level style signal derived from all
// descriptors of a portfolio. Regenerated on demand, never mutated in place;
// a single active row per user is replaced atomically.
type StyleProfile struct {
	bun.BaseModel `bun:"table:style_profiles"`

	ID            uuid.UUID                   `bun:"id,pk,type:uuid"`
	UserID        string                      `bun:"user_id,notnull"`
	PortfolioID   uuid.UUID                   `bun:"portfolio_id,notnull,type:uuid"`
	Distributions map[enum.Slot]Distribution  `bun:"distributions,type:jsonb"`
	Themes        []string                    `bun:"themes,type:jsonb"`
	Construction  []ConstructionPattern       `bun:"construction,type:jsonb"`
	Signatures    []SignaturePiece            `bun:"signatures,type:jsonb"`
	SummaryText   string                      `bun:"summary_text"`
	TotalImages   int                         `bun:"total_images,notnull"`
	// AvgConfidence is clamped to the DECIMAL(4,3) storage contract.
	AvgConfidence float64 `bun:"avg_confidence,notnull"`
	// AvgCompleteness is clamped to the DECIMAL(5,2) storage contract.
	AvgCompleteness float64   `bun:"avg_completeness,notnull"`
	Active          bool      `bun:"active,notnull"`
	CreatedAt       time.Time `bun:"created_at,notnull"`
}

// Distribution maps attribute values to occurrence counts for one slot.
type Distribution map[string]int

// Top returns the most frequent value in the distribution and its count.
func (d Distribution) Top() (string, int) {
	var (
		best      string
		bestCount int
	)

	for value, count := range d {
		if count > bestCount || (count == bestCount && value < best) {
			best = value
			bestCount = count
		}
	}

	return best, bestCount
}

// Total returns the sum of all counts.
func (d Distribution) Total() int {
	total := 0
	for _, count := range d {
		total += count
	}

	return total
}

// Frequency returns the relative frequency of a value in [0, 1].
func (d Distribution) Frequency(value string) float64 {
	total := d.Total()
	if total == 0 {
		return 0
	}

	return float64(d[value]) / float64(total)
}

// ConstructionPattern counts one construction detail across garments.
type ConstructionPattern struct {
	Detail string `json:"detail"`
	Count  int    `json:"count"`
}

// SignaturePiece is a high-confidence standout garment surfaced as an exemplar.
type SignaturePiece struct {
	GarmentType string  `json:"garment_type"`
	Detail      string  `json:"detail"`
	Fabric      string  `json:"fabric"`
	Confidence  float64 `json:"confidence"`
}
