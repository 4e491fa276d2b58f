package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/enums"
)

// DailyStat is the per-tenant/platform/day rollup of delivery logs. Rows are
// replaced wholesale on recompute, never incremented, so reruns are safe.
type DailyStat struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID          uuid.UUID       `gorm:"column:tenant_id;type:uuid;not null;uniqueIndex:ux_daily_stats_key"`
	Platform          enums.Platform  `gorm:"column:platform;type:text;not null;uniqueIndex:ux_daily_stats_key"`
	StatDate          time.Time       `gorm:"column:stat_date;type:date;not null;uniqueIndex:ux_daily_stats_key"`
	TotalCount        int64           `gorm:"column:total_count;not null;default:0"`
	SuccessCount      int64           `gorm:"column:success_count;not null;default:0"`
	FailedCount       int64           `gorm:"column:failed_count;not null;default:0"`
	RetriedCount      int64           `gorm:"column:retried_count;not null;default:0"`
	DeduplicatedCount int64           `gorm:"column:deduplicated_count;not null;default:0"`
	LatencyP50MS      int64           `gorm:"column:latency_p50_ms;not null;default:0"`
	LatencyP95MS      int64           `gorm:"column:latency_p95_ms;not null;default:0"`
	LatencyP99MS      int64           `gorm:"column:latency_p99_ms;not null;default:0"`
	LatencyMaxMS      int64           `gorm:"column:latency_max_ms;not null;default:0"`
	TotalValue        decimal.Decimal `gorm:"column:total_value;type:numeric(18,4);not null;default:0"`
	ComputedAt        time.Time       `gorm:"column:computed_at;type:timestamptz;not null;default:now()"`
}

// TableName overrides the gorm default.
func (DailyStat) TableName() string {
	return "daily_stats"
}
