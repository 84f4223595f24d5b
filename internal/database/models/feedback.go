package models

import (
	"context"
	"errors"
	"fmt"

	"github.com/atelier-ai/atelier/internal/database/dbretry"
	"github.com/atelier-ai/atelier/internal/database/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.uber.org/zap"
)

// ErrDuplicateEvent is returned when a feedback event ID was already recorded.
var ErrDuplicateEvent = errors.New("feedback event already recorded")

// FeedbackModel handles database operations for the append-only event log.
type FeedbackModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewFeedback creates a FeedbackModel.
func NewFeedback(db *bun.DB, logger *zap.Logger) *FeedbackModel {
	return &FeedbackModel{
		db:     db,
		logger: logger.Named("db_feedback"),
	}
}

// InsertEvent appends one feedback event. A replayed event ID yields
// ErrDuplicateEvent and leaves the log unchanged.
func (m *FeedbackModel) InsertEvent(ctx context.Context, event *types.FeedbackEvent) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().Model(event).Exec(ctx)

		var pgErr pgdriver.Error
		if errors.As(err, &pgErr) && pgErr.IntegrityViolation() {
			return ErrDuplicateEvent
		}

		if err != nil {
			return fmt.Errorf("failed to insert feedback event: %w", err)
		}

		return nil
	})
}

// GetEvents returns the user's feedback events, newest first.
func (m *FeedbackModel) GetEvents(ctx context.Context, userID string, limit int) ([]*types.FeedbackEvent, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.FeedbackEvent, error) {
		var events []*types.FeedbackEvent

		err := m.db.NewSelect().
			Model(&events).
			Where("user_id = ?", userID).
			Order("created_at DESC").
			Limit(limit).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get feedback events: %w", err)
		}

		return events, nil
	})
}
