package enums

import "fmt"

// DeadLetterStatus tracks the lifecycle of a dead letter entry. Entries are
// never silently dropped; abandoned is an explicit operator action.
type DeadLetterStatus string

const (
	DeadLetterStatusPending   DeadLetterStatus = "pending"
	DeadLetterStatusRetrying  DeadLetterStatus = "retrying"
	DeadLetterStatusRecovered DeadLetterStatus = "recovered"
	DeadLetterStatusAbandoned DeadLetterStatus = "abandoned"
)

var validDeadLetterStatuses = []DeadLetterStatus{
	DeadLetterStatusPending,
	DeadLetterStatusRetrying,
	DeadLetterStatusRecovered,
	DeadLetterStatusAbandoned,
}

// Terminal reports whether no further reprocessing is expected.
func (s DeadLetterStatus) Terminal() bool {
	return s == DeadLetterStatusRecovered || s == DeadLetterStatusAbandoned
}

// IsValid reports whether the status is recognized.
func (s DeadLetterStatus) IsValid() bool {
	for _, candidate := range validDeadLetterStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseDeadLetterStatus converts a raw string into a DeadLetterStatus.
func ParseDeadLetterStatus(value string) (DeadLetterStatus, error) {
	for _, candidate := range validDeadLetterStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dead letter status %q", value)
}
