package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Descriptor is the validated structured analysis of one image.
// Exactly one exists per analyzed image; reanalysis replaces it.
type Descriptor struct {
	bun.BaseModel `bun:"table:descriptors"`

	ID            uuid.UUID     `bun:"id,pk,type:uuid"`
	ImageID       uuid.UUID     `bun:"image_id,notnull,unique,type:uuid"`
	PortfolioID   uuid.UUID     `bun:"portfolio_id,notnull,type:uuid"`
	PromptVersion string        `bun:"prompt_version,notnull"`
	Document      DescriptorDoc `bun:"document,type:jsonb"`
	// Confidence is clamped to DECIMAL(4,3) range before insert.
	Confidence float64 `bun:"confidence,notnull"`
	// Completeness is clamped to DECIMAL(5,2) range before insert.
	Completeness float64   `bun:"completeness,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
}

// DescriptorDoc is the schema-bound analysis document produced by the
// vision model and normalized by the taxonomy validator.
type DescriptorDoc struct {
	ExecutiveSummary     string               `json:"executive_summary"`
	Garments             []Garment            `json:"garments"`
	ModelDemographics    ModelDemographics    `json:"model_demographics"`
	Photography          Photography          `json:"photography"`
	StylingContext       string               `json:"styling_context"`
	ContextualAttributes ContextualAttributes `json:"contextual_attributes"`
	TechnicalNotes       string               `json:"technical_fashion_notes"`
	Metadata             DescriptorMetadata   `json:"metadata"`
}

// Garment describes one clothing item in an image.
type Garment struct {
	Type                string       `json:"type"`
	Silhouette          string       `json:"silhouette"`
	Neckline            string       `json:"neckline"`
	SleeveLength        string       `json:"sleeve_length"`
	Collar              string       `json:"collar"`
	Fabric              Fabric       `json:"fabric"`
	ColorPalette        []ColorEntry `json:"color_palette"`
	ConstructionDetails []string     `json:"construction_details"`
	Finish              string       `json:"finish"`
	Confidence          float64      `json:"confidence"`
	LayerIndex          int          `json:"layer_index"`
}

// Fabric describes the material of a garment.
type Fabric struct {
	PrimaryMaterial string `json:"primary_material"`
	Weave           string `json:"weave"`
	Finish          string `json:"finish"`
	Weight          string `json:"weight"`
}

// ColorEntry pairs a fashion color name with where it appears on the garment.
type ColorEntry struct {
	ColorName string `json:"color_name"`
	Placement string `json:"placement"`
}

// ModelDemographics captures observed model characteristics. All fields are
// optional; the extractor never guesses when unclear.
type ModelDemographics struct {
	ObservedEthnicity  string `json:"ethnicity_observed_characteristics"`
	BodyBuild          string `json:"body_type_overall_build"`
	AgeBucket          string `json:"age_bucket"`
	GenderPresentation string `json:"gender_presentation"`
}

// Photography captures the photographic attributes of the image.
type Photography struct {
	ShotComposition string   `json:"shot_composition_type"`
	Lighting        Lighting `json:"lighting"`
	Camera          Camera   `json:"camera"`
	Background      string   `json:"background"`
}

// Lighting describes light type and direction.
type Lighting struct {
	Type      string `json:"type"`
	Direction string `json:"direction"`
}

// Camera describes camera angle and height.
type Camera struct {
	Angle  string `json:"angle"`
	Height string `json:"height"`
}

// ContextualAttributes capture season, occasion and mood.
type ContextualAttributes struct {
	Season        string `json:"season"`
	Occasion      string `json:"occasion"`
	MoodAesthetic string `json:"mood_aesthetic"`
}

// DescriptorMetadata holds the model-reported quality metrics. The stored
// Descriptor row carries mechanically recomputed values instead of trusting
// these blindly.
type DescriptorMetadata struct {
	OverallConfidence      float64            `json:"overall_confidence"`
	CompletenessPercentage float64            `json:"completeness_percentage"`
	FieldConfidence        map[string]float64 `json:"field_confidence,omitempty"`
}

// DescriptorCorrection records a taxonomy rule rewriting a model value.
type DescriptorCorrection struct {
	bun.BaseModel `bun:"table:descriptor_corrections"`

	ID             uuid.UUID `bun:"id,pk,type:uuid"`
	ImageID        uuid.UUID `bun:"image_id,notnull,type:uuid"`
	FieldPath      string    `bun:"field_path,notnull"`
	AIValue        string    `bun:"ai_value,notnull"`
	CorrectedValue string    `bun:"corrected_value,notnull"`
	RuleID         string    `bun:"rule_id,notnull"`
	CreatedAt      time.Time `bun:"created_at,notnull"`
}
