package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/enums"
)

// TenantPlatformConfig stores per-tenant/per-platform overrides for dedupe,
// retry, and scoring behavior. Absent rows (or null columns) fall back to the
// process-wide defaults.
type TenantPlatformConfig struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID        uuid.UUID            `gorm:"column:tenant_id;type:uuid;not null;uniqueIndex:ux_tenant_platform_configs"`
	Platform        enums.Platform       `gorm:"column:platform;type:text;not null;uniqueIndex:ux_tenant_platform_configs"`
	DedupeStrategy  *enums.DedupeStrategy `gorm:"column:dedupe_strategy;type:text"`
	DedupeTTLHours  *int                 `gorm:"column:dedupe_ttl_hours"`
	MaxRetries      *int                 `gorm:"column:max_retries"`
	BackoffBaseMS   *int64               `gorm:"column:backoff_base_ms"`
	BackoffCapMS    *int64               `gorm:"column:backoff_cap_ms"`
	WeightOverrides json.RawMessage      `gorm:"column:weight_overrides;type:jsonb"`
	CreatedAt       time.Time            `gorm:"column:created_at;type:timestamptz;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;type:timestamptz;autoUpdateTime"`
}

// TableName overrides the gorm default.
func (TenantPlatformConfig) TableName() string {
	return "tenant_platform_configs"
}
