package types

import (
	"time"

	"github.com/atelier-ai/atelier/internal/database/types/enum"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Portfolio is one uploaded collection of reference images owned by a user.
// At most one portfolio per user is active for profile derivation; older
// portfolios stay dormant but are retained.
type Portfolio struct {
	bun.BaseModel `bun:"table:portfolios"`

	ID          uuid.UUID            `bun:"id,pk,type:uuid"`
	UserID      string               `bun:"user_id,notnull"`
	Status      enum.PortfolioStatus `bun:"status,notnull"`
	Active      bool                 `bun:"active,notnull"`
	TotalImages int                  `bun:"total_images,notnull"`
	CreatedAt   time.Time            `bun:"created_at,notnull"`
	UpdatedAt   time.Time            `bun:"updated_at,notnull"`
}

// PortfolioImage is a single picture inside a portfolio. Uniqueness of
// (portfolio_id, content_hash) enforces dedupe.
type PortfolioImage struct {
	bun.BaseModel `bun:"table:portfolio_images"`

	ID          uuid.UUID        `bun:"id,pk,type:uuid"`
	PortfolioID uuid.UUID        `bun:"portfolio_id,notnull,type:uuid"`
	StorageKey  string           `bun:"storage_key,notnull"`
	ContentHash string           `bun:"content_hash,notnull"`
	UploadOrder int              `bun:"upload_order,notnull"`
	Status      enum.ImageStatus `bun:"status,notnull"`
	LastError   string           `bun:"last_error"`
	CreatedAt   time.Time        `bun:"created_at,notnull"`
}
