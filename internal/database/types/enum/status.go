// Package enum defines the closed value sets persisted to the database.
package enum

// PortfolioStatus tracks a portfolio through its analysis lifecycle.
type PortfolioStatus string

const (
	PortfolioStatusProcessing PortfolioStatus = "processing"
	PortfolioStatusAnalyzed   PortfolioStatus = "analyzed"
	PortfolioStatusFailed     PortfolioStatus = "failed"
)

// ImageStatus tracks a single portfolio image.
type ImageStatus string

const (
	ImageStatusPending  ImageStatus = "pending"
	ImageStatusAnalyzed ImageStatus = "analyzed"
	ImageStatusFailed   ImageStatus = "failed"
)

// GenerationStatus tracks a synthesized image through upload and validation.
type GenerationStatus string

const (
	GenerationStatusPending  GenerationStatus = "pending"
	GenerationStatusUploaded GenerationStatus = "uploaded"
	GenerationStatusFailed   GenerationStatus = "failed"
)

// ValidationStatus records the selector's verdict on a generation.
type ValidationStatus string

const (
	ValidationStatusUnscored ValidationStatus = "unscored"
	ValidationStatusAccepted ValidationStatus = "accepted"
	ValidationStatusRejected ValidationStatus = "rejected"
)
