// Package models contains the per-entity database operations.
package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/atelier-ai/atelier/internal/database/dbretry"
	"github.com/atelier-ai/atelier/internal/database/types"
	"github.com/atelier-ai/atelier/internal/database/types/enum"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("record not found")

// PortfolioModel handles database operations for portfolios and their images.
type PortfolioModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewPortfolio creates a PortfolioModel.
func NewPortfolio(db *bun.DB, logger *zap.Logger) *PortfolioModel {
	return &PortfolioModel{
		db:     db,
		logger: logger.Named("db_portfolio"),
	}
}

// Create inserts a new processing portfolio and deactivates any previously
// active portfolio for the user.
func (m *PortfolioModel) Create(ctx context.Context, userID string) (*types.Portfolio, error) {
	portfolio := &types.Portfolio{
		ID:        uuid.New(),
		UserID:    userID,
		Status:    enum.PortfolioStatusProcessing,
		Active:    true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	err := dbretry.Transaction(ctx, m.db, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewUpdate().
			Model((*types.Portfolio)(nil)).
			Set("active = FALSE").
			Where("user_id = ? AND active", userID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to deactivate previous portfolios: %w", err)
		}

		if _, err := tx.NewInsert().Model(portfolio).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert portfolio: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return portfolio, nil
}

// Get fetches one portfolio by ID.
func (m *PortfolioModel) Get(ctx context.Context, id uuid.UUID) (*types.Portfolio, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.Portfolio, error) {
		var portfolio types.Portfolio

		err := m.db.NewSelect().
			Model(&portfolio).
			Where("id = ?", id).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		if err != nil {
			return nil, fmt.Errorf("failed to get portfolio: %w", err)
		}

		return &portfolio, nil
	})
}

// GetActive fetches the user's active portfolio.
func (m *PortfolioModel) GetActive(ctx context.Context, userID string) (*types.Portfolio, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.Portfolio, error) {
		var portfolio types.Portfolio

		err := m.db.NewSelect().
			Model(&portfolio).
			Where("user_id = ? AND active", userID).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		if err != nil {
			return nil, fmt.Errorf("failed to get active portfolio: %w", err)
		}

		return &portfolio, nil
	})
}

// UpdateStatus transitions a portfolio to the given status.
func (m *PortfolioModel) UpdateStatus(ctx context.Context, id uuid.UUID, status enum.PortfolioStatus) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewUpdate().
			Model((*types.Portfolio)(nil)).
			Set("status = ?", status).
			Set("updated_at = ?", time.Now()).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update portfolio status: %w", err)
		}

		return nil
	})
}

// IsActive reports whether the portfolio is still the user's active one.
// The ingestion pipeline checks this to cancel superseded runs.
func (m *PortfolioModel) IsActive(ctx context.Context, id uuid.UUID) (bool, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (bool, error) {
		active, err := m.db.NewSelect().
			Model((*types.Portfolio)(nil)).
			Where("id = ? AND active", id).
			Exists(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to check portfolio active state: %w", err)
		}

		return active, nil
	})
}

// ExistingHashes returns the content hashes already present in a portfolio.
func (m *PortfolioModel) ExistingHashes(ctx context.Context, portfolioID uuid.UUID) (map[string]struct{}, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (map[string]struct{}, error) {
		var hashes []string

		err := m.db.NewSelect().
			Model((*types.PortfolioImage)(nil)).
			Column("content_hash").
			Where("portfolio_id = ?", portfolioID).
			Scan(ctx, &hashes)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch existing hashes: %w", err)
		}

		existing := make(map[string]struct{}, len(hashes))
		for _, h := range hashes {
			existing[h] = struct{}{}
		}

		return existing, nil
	})
}

// InsertImages stores new portfolio images, skipping duplicate content hashes,
// and updates the portfolio image count.
func (m *PortfolioModel) InsertImages(ctx context.Context, images []*types.PortfolioImage) error {
	if len(images) == 0 {
		return nil
	}

	portfolioID := images[0].PortfolioID

	return dbretry.Transaction(ctx, m.db, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().
			Model(&images).
			On("CONFLICT (portfolio_id, content_hash) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert images: %w", err)
		}

		count, err := tx.NewSelect().
			Model((*types.PortfolioImage)(nil)).
			Where("portfolio_id = ?", portfolioID).
			Count(ctx)
		if err != nil {
			return fmt.Errorf("failed to count images: %w", err)
		}

		_, err = tx.NewUpdate().
			Model((*types.Portfolio)(nil)).
			Set("total_images = ?", count).
			Set("updated_at = ?", time.Now()).
			Where("id = ?", portfolioID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update image count: %w", err)
		}

		return nil
	})
}

// GetImages returns all images of a portfolio in upload order.
func (m *PortfolioModel) GetImages(ctx context.Context, portfolioID uuid.UUID) ([]*types.PortfolioImage, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.PortfolioImage, error) {
		var images []*types.PortfolioImage

		err := m.db.NewSelect().
			Model(&images).
			Where("portfolio_id = ?", portfolioID).
			Order("upload_order ASC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get images: %w", err)
		}

		return images, nil
	})
}

// GetPendingImages returns the images of a portfolio still awaiting analysis.
func (m *PortfolioModel) GetPendingImages(ctx context.Context, portfolioID uuid.UUID) ([]*types.PortfolioImage, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.PortfolioImage, error) {
		var images []*types.PortfolioImage

		err := m.db.NewSelect().
			Model(&images).
			Where("portfolio_id = ? AND status = ?", portfolioID, enum.ImageStatusPending).
			Order("upload_order ASC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get pending images: %w", err)
		}

		return images, nil
	})
}

// UpdateImageStatus transitions one image, recording the failure reason if any.
func (m *PortfolioModel) UpdateImageStatus(
	ctx context.Context, imageID uuid.UUID, status enum.ImageStatus, lastError string,
) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewUpdate().
			Model((*types.PortfolioImage)(nil)).
			Set("status = ?", status).
			Set("last_error = ?", lastError).
			Where("id = ?", imageID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update image status: %w", err)
		}

		return nil
	})
}
