package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/enums"
)

// DeadLetter retains a normalized event whose delivery exhausted its retry
// budget or hit a non-retryable failure. The payload keeps enough state to
// re-enter the dispatcher at the delivering step.
type DeadLetter struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID        uuid.UUID              `gorm:"column:tenant_id;type:uuid;not null;index:idx_dead_letters_tenant_status"`
	Platform        enums.Platform         `gorm:"column:platform;type:text;not null"`
	EventID         string                 `gorm:"column:event_id;type:text;not null"`
	EventData       json.RawMessage        `gorm:"column:event_data;type:jsonb;not null"`
	FailureReason   string                 `gorm:"column:failure_reason;type:text;not null"`
	FailureCategory enums.ErrorCategory    `gorm:"column:failure_category;type:text;not null"`
	RetryCount      int                    `gorm:"column:retry_count;not null;default:0"`
	MaxRetries      int                    `gorm:"column:max_retries;not null;default:0"`
	Status          enums.DeadLetterStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	FirstFailureAt  time.Time              `gorm:"column:first_failure_at;type:timestamptz;not null"`
	LastFailureAt   time.Time              `gorm:"column:last_failure_at;type:timestamptz;not null"`
	RecoveredAt     *time.Time             `gorm:"column:recovered_at;type:timestamptz"`
	CreatedAt       time.Time              `gorm:"column:created_at;type:timestamptz;autoCreateTime"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;type:timestamptz;autoUpdateTime"`
}

// TableName overrides the gorm default.
func (DeadLetter) TableName() string {
	return "dead_letters"
}
