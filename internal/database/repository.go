package database

import (
	"github.com/atelier-ai/atelier/internal/database/models"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Repository aggregates the per-entity model operations.
type Repository struct {
	portfolio  *models.PortfolioModel
	descriptor *models.DescriptorModel
	profile    *models.ProfileModel
	prompt     *models.PromptModel
	generation *models.GenerationModel
	bandit     *models.BanditModel
	rlhf       *models.RLHFModel
	feedback   *models.FeedbackModel
	coverage   *models.CoverageModel
}

// NewRepository creates a Repository with all model instances.
func NewRepository(db *bun.DB, logger *zap.Logger) *Repository {
	return &Repository{
		portfolio:  models.NewPortfolio(db, logger),
		descriptor: models.NewDescriptor(db, logger),
		profile:    models.NewProfile(db, logger),
		prompt:     models.NewPrompt(db, logger),
		generation: models.NewGeneration(db, logger),
		bandit:     models.NewBandit(db, logger),
		rlhf:       models.NewRLHF(db, logger),
		feedback:   models.NewFeedback(db, logger),
		coverage:   models.NewCoverage(db, logger),
	}
}

// Portfolio returns portfolio and image operations.
func (r *Repository) Portfolio() *models.PortfolioModel { return r.portfolio }

// Descriptor returns descriptor operations.
func (r *Repository) Descriptor() *models.DescriptorModel { return r.descriptor }

// Profile returns style profile operations.
func (r *Repository) Profile() *models.ProfileModel { return r.profile }

// Prompt returns prompt operations.
func (r *Repository) Prompt() *models.PromptModel { return r.prompt }

// Generation returns generation operations.
func (r *Repository) Generation() *models.GenerationModel { return r.generation }

// Bandit returns bandit state operations.
func (r *Repository) Bandit() *models.BanditModel { return r.bandit }

// RLHF returns token weight operations.
func (r *Repository) RLHF() *models.RLHFModel { return r.rlhf }

// Feedback returns feedback event operations.
func (r *Repository) Feedback() *models.FeedbackModel { return r.feedback }

// Coverage returns coverage report and gap operations.
func (r *Repository) Coverage() *models.CoverageModel { return r.coverage }
