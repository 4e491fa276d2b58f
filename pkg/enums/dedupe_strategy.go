package enums

import "fmt"

// DedupeStrategy selects how the dedupe key for an event is derived. The
// strategy is explicit per-tenant/per-platform configuration, never inferred
// from the platform.
type DedupeStrategy string

const (
	// DedupeStrategyEventID keys on the caller-supplied event id.
	DedupeStrategyEventID DedupeStrategy = "event_id"
	// DedupeStrategyComposite keys on event name + rounded timestamp +
	// primary identity hash, catching duplicates submitted with fresh ids.
	DedupeStrategyComposite DedupeStrategy = "composite"
)

var validDedupeStrategies = []DedupeStrategy{
	DedupeStrategyEventID,
	DedupeStrategyComposite,
}

// IsValid reports whether the strategy is recognized.
func (s DedupeStrategy) IsValid() bool {
	for _, candidate := range validDedupeStrategies {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseDedupeStrategy converts a raw string into a DedupeStrategy.
func ParseDedupeStrategy(value string) (DedupeStrategy, error) {
	for _, candidate := range validDedupeStrategies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dedupe strategy %q", value)
}
