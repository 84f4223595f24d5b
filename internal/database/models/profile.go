package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/atelier-ai/atelier/internal/database/dbretry"
	"github.com/atelier-ai/atelier/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// ProfileModel handles database operations for style profiles.
type ProfileModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewProfile creates a ProfileModel.
func NewProfile(db *bun.DB, logger *zap.Logger) *ProfileModel {
	return &ProfileModel{
		db:     db,
		logger: logger.Named("db_profile"),
	}
}

// ReplaceActive atomically swaps the user's active profile for the given one.
// Readers never observe a state with zero or two active rows.
func (m *ProfileModel) ReplaceActive(ctx context.Context, profile *types.StyleProfile) error {
	return dbretry.Transaction(ctx, m.db, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewUpdate().
			Model((*types.StyleProfile)(nil)).
			Set("active = FALSE").
			Where("user_id = ? AND active", profile.UserID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to deactivate previous profile: %w", err)
		}

		profile.Active = true

		if _, err := tx.NewInsert().Model(profile).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert profile: %w", err)
		}

		return nil
	})
}

// GetActive returns the user's active style profile.
func (m *ProfileModel) GetActive(ctx context.Context, userID string) (*types.StyleProfile, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.StyleProfile, error) {
		var profile types.StyleProfile

		err := m.db.NewSelect().
			Model(&profile).
			Where("user_id = ? AND active", userID).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		if err != nil {
			return nil, fmt.Errorf("failed to get active profile: %w", err)
		}

		return &profile, nil
	})
}

// InvalidateActive marks the user's active profile inactive, forcing the next
// read to trigger reaggregation.
func (m *ProfileModel) InvalidateActive(ctx context.Context, userID string) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewUpdate().
			Model((*types.StyleProfile)(nil)).
			Set("active = FALSE").
			Where("user_id = ? AND active", userID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to invalidate profile: %w", err)
		}

		return nil
	})
}
