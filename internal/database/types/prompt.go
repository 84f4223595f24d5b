package types

import (
	"time"

	"github.com/atelier-ai/atelier/internal/database/types/enum"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// PromptSpec is the structured intent for a single image generation.
// It is the canonical object produced by the prompt builder; rendering to
// text is a separate, deterministic step.
type PromptSpec struct {
	Garment      string  `json:"garment"`
	Silhouette   string  `json:"silhouette"`
	ColorPalette string  `json:"color_palette"`
	Fabric       string  `json:"fabric"`
	Finish       string  `json:"finish"`
	Lighting     string  `json:"lighting"`
	LightingDir  string  `json:"lighting_direction"`
	CameraAngle  string  `json:"camera_angle"`
	CameraHeight string  `json:"camera_height"`
	Background   string  `json:"background"`
	Details      string  `json:"details"`
	ModelPose    string  `json:"model_pose"`
	ClusterLabel string  `json:"cluster_label"`
	Creativity   float64 `json:"creativity"`

	Weights       map[enum.Slot]float64 `json:"weights"`
	FrozenSlots   []enum.Slot           `json:"frozen_slots"`
	IsExploration bool                  `json:"is_exploration"`
	Truncated     bool                  `json:"truncated"`

	// TokenPicks records the preference-weighted token chosen per category, so
	// feedback rewards credit exactly what the prompt used.
	TokenPicks map[enum.TokenCategory]string `json:"token_picks"`
}

// SlotValue returns the spec value filling the given slot.
func (s *PromptSpec) SlotValue(slot enum.Slot) string {
	switch slot {
	case enum.SlotGarment:
		return s.Garment
	case enum.SlotSilhouette:
		return s.Silhouette
	case enum.SlotColor:
		return s.ColorPalette
	case enum.SlotFabric:
		return s.Fabric
	case enum.SlotFinish:
		return s.Finish
	case enum.SlotLighting:
		return s.Lighting
	case enum.SlotCamera:
		return s.CameraAngle
	case enum.SlotBackground:
		return s.Background
	case enum.SlotDetails:
		return s.Details
	default:
		return ""
	}
}

// SetSlotValue fills the given slot on the spec.
func (s *PromptSpec) SetSlotValue(slot enum.Slot, value string) {
	switch slot {
	case enum.SlotGarment:
		s.Garment = value
	case enum.SlotSilhouette:
		s.Silhouette = value
	case enum.SlotColor:
		s.ColorPalette = value
	case enum.SlotFabric:
		s.Fabric = value
	case enum.SlotFinish:
		s.Finish = value
	case enum.SlotLighting:
		s.Lighting = value
	case enum.SlotCamera:
		s.CameraAngle = value
	case enum.SlotBackground:
		s.Background = value
	case enum.SlotDetails:
		s.Details = value
	}
}

// Frozen reports whether a slot was explicitly set by the user and must not
// be resampled or reward-updated.
func (s *PromptSpec) Frozen(slot enum.Slot) bool {
	for _, f := range s.FrozenSlots {
		if f == slot {
			return true
		}
	}

	return false
}

// Prompt is a persisted prompt spec with its rendered text.
type Prompt struct {
	bun.BaseModel `bun:"table:prompts"`

	ID               uuid.UUID        `bun:"id,pk,type:uuid"`
	UserID           string           `bun:"user_id,notnull"`
	Spec             PromptSpec       `bun:"spec,type:jsonb"`
	Text             string           `bun:"text,notnull"`
	NegativeText     string           `bun:"negative_text,notnull"`
	Specificity      enum.Specificity `bun:"specificity,notnull"`
	Creativity       float64          `bun:"creativity,notnull"`
	BrandDNAStrength float64          `bun:"brand_dna_strength,notnull"`
	TokensUsed       int              `bun:"tokens_used,notnull"`
	Truncated        bool             `bun:"truncated,notnull"`
	CreatedAt        time.Time        `bun:"created_at,notnull"`
}
