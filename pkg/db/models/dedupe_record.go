package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/enums"
)

// DedupeRecord backs the Postgres dedupe store. The unique index on
// (tenant_id, platform, dedupe_key) makes the claim an atomic
// insert-if-absent; expired rows are treated as absent and swept by cron.
type DedupeRecord struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID    uuid.UUID      `gorm:"column:tenant_id;type:uuid;not null;uniqueIndex:ux_dedupe_records_claim"`
	Platform    enums.Platform `gorm:"column:platform;type:text;not null;uniqueIndex:ux_dedupe_records_claim"`
	DedupeKey   string         `gorm:"column:dedupe_key;type:text;not null;uniqueIndex:ux_dedupe_records_claim"`
	FirstSeenAt time.Time      `gorm:"column:first_seen_at;type:timestamptz;not null;default:now()"`
	ExpiresAt   time.Time      `gorm:"column:expires_at;type:timestamptz;not null;index"`
}

// TableName overrides the gorm default.
func (DedupeRecord) TableName() string {
	return "dedupe_records"
}
