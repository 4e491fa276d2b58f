package conversion

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/identity"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/score"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/enums"
	pkgerrors "github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/errors"
)

// RawEvent is the submission payload before normalization. One raw event
// fans out to one NormalizedEvent per requested platform.
type RawEvent struct {
	TenantID       uuid.UUID         `json:"tenant_id"`
	Platforms      []string          `json:"platforms"`
	EventName      string            `json:"event_name"`
	EventID        string            `json:"event_id"`
	EventTime      time.Time         `json:"event_time"`
	IdentityFields map[string]string `json:"identity_fields"`
	CustomData     map[string]any    `json:"custom_data"`
}

// NormalizedEvent is the unit the dispatcher operates on. Identity fields are
// hashed, the match quality score is stamped, and the dedupe key is set by
// the ingest layer before dispatch.
type NormalizedEvent struct {
	TenantID       uuid.UUID        `json:"tenant_id"`
	Platform       enums.Platform   `json:"platform"`
	EventID        string           `json:"event_id"`
	EventName      string           `json:"event_name"`
	EventTime      time.Time        `json:"event_time"`
	Identity       identity.Profile `json:"identity"`
	MatchQuality   int              `json:"match_quality"`
	ScoreBreakdown score.Breakdown  `json:"score_breakdown"`
	Value          decimal.Decimal  `json:"value"`
	Currency       enums.Currency   `json:"currency"`
	CustomData     map[string]any   `json:"custom_data,omitempty"`
	DedupeKey      string           `json:"dedupe_key"`
	ReceivedAt     time.Time        `json:"received_at"`
}

// Validate rejects malformed submissions before they reach the dispatcher.
func (r RawEvent) Validate() error {
	if r.TenantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}
	if len(r.Platforms) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one platform is required")
	}
	for _, p := range r.Platforms {
		if _, err := enums.ParsePlatform(p); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unsupported platform")
		}
	}
	if strings.TrimSpace(r.EventName) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "event name is required")
	}
	if strings.TrimSpace(r.EventID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "event id is required")
	}
	if r.EventTime.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "event time is required")
	}
	return nil
}

// Normalize builds the per-platform event: hashes identity fields, scores the
// result, and extracts value/currency from custom data.
func Normalize(raw RawEvent, platform enums.Platform, weights score.Weights, now time.Time) (NormalizedEvent, error) {
	if err := raw.Validate(); err != nil {
		return NormalizedEvent{}, err
	}
	if !platform.IsValid() {
		return NormalizedEvent{}, pkgerrors.New(pkgerrors.CodeValidation, "unsupported platform")
	}

	profile := identity.Normalize(raw.IdentityFields)
	total, breakdown := score.Score(profile.Flags, weights)

	value, currency, err := extractValue(raw.CustomData)
	if err != nil {
		return NormalizedEvent{}, err
	}

	return NormalizedEvent{
		TenantID:       raw.TenantID,
		Platform:       platform,
		EventID:        strings.TrimSpace(raw.EventID),
		EventName:      strings.TrimSpace(raw.EventName),
		EventTime:      raw.EventTime.UTC(),
		Identity:       profile,
		MatchQuality:   total,
		ScoreBreakdown: breakdown,
		Value:          value,
		Currency:       currency,
		CustomData:     raw.CustomData,
		ReceivedAt:     now.UTC(),
	}, nil
}

func extractValue(customData map[string]any) (decimal.Decimal, enums.Currency, error) {
	value := decimal.Zero
	currency := enums.CurrencyUSD

	if customData == nil {
		return value, currency, nil
	}

	if rawValue, ok := customData["value"]; ok {
		parsed, err := parseDecimal(rawValue)
		if err != nil {
			return value, currency, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid value in custom data")
		}
		if parsed.IsNegative() {
			return value, currency, pkgerrors.New(pkgerrors.CodeValidation, "value must not be negative")
		}
		value = parsed
	}

	if rawCurrency, ok := customData["currency"]; ok {
		s, ok := rawCurrency.(string)
		if !ok {
			return value, currency, pkgerrors.New(pkgerrors.CodeValidation, "currency must be a string")
		}
		parsed, err := enums.ParseCurrency(s)
		if err != nil {
			return value, currency, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency in custom data")
		}
		currency = parsed
	}

	return value, currency, nil
}

func parseDecimal(raw any) (decimal.Decimal, error) {
	switch v := raw.(type) {
	case string:
		return decimal.NewFromString(v)
	case float64:
		return decimal.NewFromFloat(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case json.Number:
		return decimal.NewFromString(v.String())
	default:
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "unsupported value type")
	}
}
