package errors

import (
	"math"
	"strings"
	"unicode"
)

// MaxItemIDLength bounds catalog item identifiers.
const MaxItemIDLength = 256

// ValidateItemID validates a catalog item identifier.
//
// The validation rules are intentionally conservative:
//   - No empty identifiers (after trimming whitespace)
//   - No control characters
//   - Maximum length of MaxItemIDLength bytes
func ValidateItemID(id string) error {
	if strings.TrimSpace(id) == "" {
		return New(ErrCodeInvalidItem, "item id cannot be empty")
	}

	if len(id) > MaxItemIDLength {
		return New(ErrCodeInvalidItem, "item id too long (max %d characters)", MaxItemIDLength)
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidItem, "item id %q contains control characters", id)
		}
	}

	return nil
}

// ValidateFinite rejects NaN and infinite values for the named field.
func ValidateFinite(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return New(ErrCodeInvalidInput, "%s must be a finite number, got %v", field, v)
	}
	return nil
}

// ValidateNonNegative rejects negative, NaN and infinite values for the named field.
func ValidateNonNegative(field string, v float64) error {
	if err := ValidateFinite(field, v); err != nil {
		return err
	}
	if v < 0 {
		return New(ErrCodeInvalidInput, "%s must be >= 0, got %v", field, v)
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}
