package types

import (
	"time"

	"github.com/atelier-ai/atelier/internal/database/types/enum"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Generation is one image synthesized from one prompt spec.
// Rows are append-only.
type Generation struct {
	bun.BaseModel `bun:"table:generations"`

	ID              uuid.UUID             `bun:"id,pk,type:uuid"`
	UserID          string                `bun:"user_id,notnull"`
	PromptID        uuid.UUID             `bun:"prompt_id,notnull,type:uuid"`
	GenerationIndex int                   `bun:"generation_index,notnull"`
	Provider        string                `bun:"provider,notnull"`
	URL             string                `bun:"url"`
	StorageKey      string                `bun:"storage_key"`
	Width           int                   `bun:"width"`
	Height          int                   `bun:"height"`
	Seed            string                `bun:"seed"`
	CostCents       int64                 `bun:"cost_cents,notnull"`
	QualityScore    *float64              `bun:"quality_score"`
	Status          enum.GenerationStatus `bun:"status,notnull"`
	Validation      enum.ValidationStatus `bun:"validation_status,notnull"`
	ErrorMessage    string                `bun:"error_message"`
	CreatedAt       time.Time             `bun:"created_at,notnull"`
}
