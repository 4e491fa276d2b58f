package enums

import "fmt"

// ErrorCategory classifies a connector failure for retry routing. Connectors
// own the mapping from platform responses to categories; the dispatcher and
// dead letter queue only ever branch on this enum.
type ErrorCategory string

const (
	ErrorCategoryTransient   ErrorCategory = "transient"
	ErrorCategoryRateLimited ErrorCategory = "rate_limited"
	ErrorCategoryPermanent   ErrorCategory = "permanent"
	ErrorCategoryAuth        ErrorCategory = "auth"
)

var validErrorCategories = []ErrorCategory{
	ErrorCategoryTransient,
	ErrorCategoryRateLimited,
	ErrorCategoryPermanent,
	ErrorCategoryAuth,
}

// Retryable reports whether the category is eligible for backoff retries.
// Auth failures need operator intervention, not another attempt.
func (c ErrorCategory) Retryable() bool {
	return c == ErrorCategoryTransient || c == ErrorCategoryRateLimited
}

// IsValid reports whether the category is recognized.
func (c ErrorCategory) IsValid() bool {
	for _, candidate := range validErrorCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseErrorCategory converts a raw string into an ErrorCategory.
func ParseErrorCategory(value string) (ErrorCategory, error) {
	for _, candidate := range validErrorCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid error category %q", value)
}
