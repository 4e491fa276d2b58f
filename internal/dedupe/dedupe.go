package dedupe

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/conversion"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/enums"
	pkgerrors "github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/errors"
)

// Store is the atomic insert-if-absent claim primitive. A false result is the
// expected duplicate signal, not an error.
type Store interface {
	TryClaim(ctx context.Context, tenantID uuid.UUID, platform enums.Platform, key string, ttl time.Duration) (bool, error)
}

// Key derives the dedupe key for an event under the tenant's configured
// strategy. The composite strategy catches duplicates that arrive with
// different client-generated event ids.
func Key(strategy enums.DedupeStrategy, event conversion.NormalizedEvent) (string, error) {
	switch strategy {
	case enums.DedupeStrategyEventID:
		id := strings.TrimSpace(event.EventID)
		if id == "" {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "event id is required for event_id dedupe strategy")
		}
		return id, nil
	case enums.DedupeStrategyComposite:
		return compositeKey(event), nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown dedupe strategy %q", strategy))
	}
}

func compositeKey(event conversion.NormalizedEvent) string {
	minute := event.EventTime.UTC().Truncate(time.Minute).Format(time.RFC3339)
	payload := strings.Join([]string{event.EventName, minute, event.Identity.PrimaryHash()}, "|")
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
