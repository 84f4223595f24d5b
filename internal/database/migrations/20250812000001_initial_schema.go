package migrations

import (
	"context"
	"fmt"

	"github.com/atelier-ai/atelier/internal/database/types"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		models := []any{
			(*types.Portfolio)(nil),
			(*types.PortfolioImage)(nil),
			(*types.Descriptor)(nil),
			(*types.DescriptorCorrection)(nil),
			(*types.StyleProfile)(nil),
			(*types.Prompt)(nil),
			(*types.Generation)(nil),
			(*types.BanditState)(nil),
			(*types.TokenWeight)(nil),
			(*types.RLHFFeedbackLog)(nil),
			(*types.FeedbackEvent)(nil),
			(*types.DPPSelectionResult)(nil),
			(*types.CoverageReport)(nil),
			(*types.AttributeGap)(nil),
		}

		for _, model := range models {
			_, err := db.NewCreateTable().
				Model(model).
				IfNotExists().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to create table for %T: %w", model, err)
			}
		}

		// Dedupe and ownership constraints
		indexes := []struct {
			name string
			sql  string
		}{
			{
				name: "idx_portfolio_images_hash",
				sql: "CREATE UNIQUE INDEX IF NOT EXISTS idx_portfolio_images_hash " +
					"ON portfolio_images (portfolio_id, content_hash)",
			},
			{
				name: "idx_descriptors_image",
				sql: "CREATE UNIQUE INDEX IF NOT EXISTS idx_descriptors_image " +
					"ON descriptors (image_id)",
			},
			{
				name: "idx_style_profiles_active",
				sql: "CREATE UNIQUE INDEX IF NOT EXISTS idx_style_profiles_active " +
					"ON style_profiles (user_id) WHERE active",
			},
			{
				name: "idx_portfolios_active",
				sql: "CREATE UNIQUE INDEX IF NOT EXISTS idx_portfolios_active " +
					"ON portfolios (user_id) WHERE active",
			},
			{
				name: "idx_generations_user",
				sql:  "CREATE INDEX IF NOT EXISTS idx_generations_user ON generations (user_id, created_at)",
			},
			{
				name: "idx_attribute_gaps_active",
				sql:  "CREATE INDEX IF NOT EXISTS idx_attribute_gaps_active ON attribute_gaps (user_id) WHERE active",
			},
		}

		for _, idx := range indexes {
			if _, err := db.NewRaw(idx.sql).Exec(ctx); err != nil {
				return fmt.Errorf("failed to create index %s: %w", idx.name, err)
			}
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		tables := []string{
			"attribute_gaps", "coverage_reports", "dpp_selection_results",
			"interaction_events", "rlhf_feedback_log", "rlhf_token_weights",
			"bandit_state", "generations", "prompts", "style_profiles",
			"descriptor_corrections", "descriptors", "portfolio_images",
			"portfolios",
		}

		for _, table := range tables {
			if _, err := db.NewRaw(fmt.Sprintf("DROP TABLE IF EXISTS %s", table)).Exec(ctx); err != nil {
				return fmt.Errorf("failed to drop table %s: %w", table, err)
			}
		}

		return nil
	})
}
