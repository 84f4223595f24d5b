package types

import (
	"time"

	"github.com/atelier-ai/atelier/internal/database/types/enum"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// BanditState is the Beta posterior for one (user, slot, value) arm.
// Alpha and Beta never drop below the configured floor (default 1).
type BanditState struct {
	bun.BaseModel `bun:"table:bandit_state"`

	UserID       string    `bun:"user_id,pk"`
	Slot         enum.Slot `bun:"slot,pk"`
	Value        string    `bun:"value,pk"`
	Alpha        float64   `bun:"alpha,notnull"`
	Beta         float64   `bun:"beta,notnull"`
	Observations int64     `bun:"observations,notnull"`
	UpdatedAt    time.Time `bun:"updated_at,notnull"`
}

// TokenWeight is the RLHF scalar weight for one (user, category, token).
// Weights live in [0, 2] with a default of 1.
type TokenWeight struct {
	bun.BaseModel `bun:"table:rlhf_token_weights"`

	UserID    string             `bun:"user_id,pk"`
	Category  enum.TokenCategory `bun:"category,pk"`
	Token     string             `bun:"token,pk"`
	Weight    float64            `bun:"weight,notnull"`
	UpdatedAt time.Time          `bun:"updated_at,notnull"`
}

// RLHFFeedbackLog records one applied token reward for auditability.
type RLHFFeedbackLog struct {
	bun.BaseModel `bun:"table:rlhf_feedback_log"`

	ID        uuid.UUID          `bun:"id,pk,type:uuid"`
	UserID    string             `bun:"user_id,notnull"`
	Category  enum.TokenCategory `bun:"category,notnull"`
	Token     string             `bun:"token,notnull"`
	Reward    float64            `bun:"reward,notnull"`
	Source    string             `bun:"source,notnull"`
	CreatedAt time.Time          `bun:"created_at,notnull"`
}

// FeedbackEvent is one append-only explicit or implicit user signal.
// EventID uniqueness backs replay rejection.
type FeedbackEvent struct {
	bun.BaseModel `bun:"table:interaction_events"`

	EventID      uuid.UUID         `bun:"event_id,pk,type:uuid"`
	UserID       string            `bun:"user_id,notnull"`
	GenerationID uuid.UUID         `bun:"generation_id,notnull,type:uuid"`
	Kind         enum.FeedbackKind `bun:"kind,notnull"`
	Payload      map[string]any    `bun:"payload,type:jsonb"`
	CreatedAt    time.Time         `bun:"created_at,notnull"`
}
