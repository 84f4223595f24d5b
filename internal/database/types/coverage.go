package types

import (
	"time"

	"github.com/atelier-ai/atelier/internal/database/types/enum"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DPPSelectionResult records a diverse-subset pick for one generation batch.
type DPPSelectionResult struct {
	bun.BaseModel `bun:"table:dpp_selection_results"`

	ID             uuid.UUID   `bun:"id,pk,type:uuid"`
	UserID         string      `bun:"user_id,notnull"`
	BatchID        uuid.UUID   `bun:"batch_id,notnull,type:uuid"`
	SelectedIDs    []uuid.UUID `bun:"selected_ids,type:jsonb"`
	DiversityScore float64     `bun:"diversity_score,notnull"`
	CreatedAt      time.Time   `bun:"created_at,notnull"`
}

// CoverageReport summarizes per-slot coverage of a selected batch against
// the user's style profile.
type CoverageReport struct {
	bun.BaseModel `bun:"table:coverage_reports"`

	ID           uuid.UUID             `bun:"id,pk,type:uuid"`
	UserID       string                `bun:"user_id,notnull"`
	BatchID      uuid.UUID             `bun:"batch_id,notnull,type:uuid"`
	SlotCoverage map[enum.Slot]float64 `bun:"slot_coverage,type:jsonb"`
	CreatedAt    time.Time             `bun:"created_at,notnull"`
}

// AttributeGap flags a slot whose profile values were underrepresented in a
// batch. Active gaps boost that slot's weight on the next prompt build.
type AttributeGap struct {
	bun.BaseModel `bun:"table:attribute_gaps"`

	ID              uuid.UUID `bun:"id,pk,type:uuid"`
	UserID          string    `bun:"user_id,notnull"`
	Slot            enum.Slot `bun:"slot,notnull"`
	UncoveredValues []string  `bun:"uncovered_values,type:jsonb"`
	Severity        float64   `bun:"severity,notnull"`
	// RecommendedBoost is a multiplier in [1.2, 2.0].
	RecommendedBoost float64   `bun:"recommended_boost,notnull"`
	Active           bool      `bun:"active,notnull"`
	CreatedAt        time.Time `bun:"created_at,notnull"`
}
