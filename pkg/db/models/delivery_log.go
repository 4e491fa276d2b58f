package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/enums"
)

// DeliveryLog is the append-only audit record of one delivery attempt. A
// retried event produces multiple rows sharing the same event id; rows are
// never mutated after insertion.
type DeliveryLog struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID        uuid.UUID            `gorm:"column:tenant_id;type:uuid;not null;index:idx_delivery_logs_tenant_platform_attempted,priority:1"`
	Platform        enums.Platform       `gorm:"column:platform;type:text;not null;index:idx_delivery_logs_tenant_platform_attempted,priority:2"`
	EventID         string               `gorm:"column:event_id;type:text;not null"`
	EventName       string               `gorm:"column:event_name;type:text;not null"`
	DedupeKey       string               `gorm:"column:dedupe_key;type:text;not null"`
	AttemptNumber   int                  `gorm:"column:attempt_number;not null;default:1"`
	Status          enums.DeliveryStatus `gorm:"column:status;type:text;not null"`
	ErrorCategory   *enums.ErrorCategory `gorm:"column:error_category;type:text"`
	ErrorCode       *string              `gorm:"column:error_code;type:text"`
	LatencyMS       int64                `gorm:"column:latency_ms;not null;default:0"`
	MatchQuality    int                  `gorm:"column:match_quality;not null;default:0"`
	PlatformTraceID *string              `gorm:"column:platform_trace_id;type:text"`
	ResponseSummary json.RawMessage      `gorm:"column:response_summary;type:jsonb"`
	Value           decimal.Decimal      `gorm:"column:value;type:numeric(18,4);not null;default:0"`
	Currency        enums.Currency       `gorm:"column:currency;type:text;not null;default:'USD'"`
	AttemptedAt     time.Time            `gorm:"column:attempted_at;type:timestamptz;not null;default:now();index:idx_delivery_logs_tenant_platform_attempted,priority:3"`
	CreatedAt       time.Time            `gorm:"column:created_at;type:timestamptz;autoCreateTime"`
}

// TableName overrides the gorm default.
func (DeliveryLog) TableName() string {
	return "delivery_logs"
}
