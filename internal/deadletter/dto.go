package deadletter

import (
	"time"

	"github.com/google/uuid"

	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/db/models"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/enums"
)

// EntryDTO is the operator-facing shape of one dead letter entry.
type EntryDTO struct {
	ID              uuid.UUID              `json:"id"`
	TenantID        uuid.UUID              `json:"tenant_id"`
	Platform        enums.Platform         `json:"platform"`
	EventID         string                 `json:"event_id"`
	FailureReason   string                 `json:"failure_reason"`
	FailureCategory enums.ErrorCategory    `json:"failure_category"`
	RetryCount      int                    `json:"retry_count"`
	MaxRetries      int                    `json:"max_retries"`
	Status          enums.DeadLetterStatus `json:"status"`
	FirstFailureAt  time.Time              `json:"first_failure_at"`
	LastFailureAt   time.Time              `json:"last_failure_at"`
	RecoveredAt     *time.Time             `json:"recovered_at,omitempty"`
}

// PageDTO is one cursor page of entries.
type PageDTO struct {
	Entries    []EntryDTO `json:"entries"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

func toEntryDTO(entry models.DeadLetter) EntryDTO {
	return EntryDTO{
		ID:              entry.ID,
		TenantID:        entry.TenantID,
		Platform:        entry.Platform,
		EventID:         entry.EventID,
		FailureReason:   entry.FailureReason,
		FailureCategory: entry.FailureCategory,
		RetryCount:      entry.RetryCount,
		MaxRetries:      entry.MaxRetries,
		Status:          entry.Status,
		FirstFailureAt:  entry.FirstFailureAt,
		LastFailureAt:   entry.LastFailureAt,
		RecoveredAt:     entry.RecoveredAt,
	}
}
