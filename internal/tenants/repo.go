package tenants

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/db/models"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/enums"
)

// Repository loads tenant/platform override rows.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a tenants repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByTenantAndPlatform returns the override row, or gorm.ErrRecordNotFound
// when the tenant runs on defaults.
func (r *Repository) FindByTenantAndPlatform(ctx context.Context, tenantID uuid.UUID, platform enums.Platform) (*models.TenantPlatformConfig, error) {
	var row models.TenantPlatformConfig
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND platform = ?", tenantID, platform.String()).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Upsert writes the override row, replacing an existing one for the same key.
func (r *Repository) Upsert(ctx context.Context, row *models.TenantPlatformConfig) error {
	return r.db.WithContext(ctx).
		Exec(`
			INSERT INTO tenant_platform_configs
				(tenant_id, platform, dedupe_strategy, dedupe_ttl_hours, max_retries, backoff_base_ms, backoff_cap_ms, weight_overrides)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (tenant_id, platform) DO UPDATE SET
				dedupe_strategy = EXCLUDED.dedupe_strategy,
				dedupe_ttl_hours = EXCLUDED.dedupe_ttl_hours,
				max_retries = EXCLUDED.max_retries,
				backoff_base_ms = EXCLUDED.backoff_base_ms,
				backoff_cap_ms = EXCLUDED.backoff_cap_ms,
				weight_overrides = EXCLUDED.weight_overrides,
				updated_at = now()`,
			row.TenantID, row.Platform.String(), row.DedupeStrategy, row.DedupeTTLHours,
			row.MaxRetries, row.BackoffBaseMS, row.BackoffCapMS, row.WeightOverrides).
		Error
}
