package validation

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/username/scenariobudget/src/logger"
	"github.com/username/scenariobudget/src/models"
)

var ErrValidationFailed = fmt.Errorf("validation failed")

const (
	DefaultMaxStringLength = 255
	MaxCurrencyCodeLength  = 3
	MaxNameLength          = 120
	MaxCommentLength       = 1024
	// MaxAmount keeps amounts well inside float64's exact integer range.
	MaxAmount = 1e12
)

// --- String Validators ---

// ValidateStringNotEmpty checks if a string is not empty after trimming.
func ValidateStringNotEmpty(s, fieldName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrValidationFailed, fieldName)
	}
	return nil
}

// ValidateStringMaxLength checks if a string's UTF-8 character count is within max bounds.
func ValidateStringMaxLength(s string, maxLength int, fieldName string) error {
	if utf8.RuneCountInString(s) > maxLength {
		return fmt.Errorf("%w: %s exceeds maximum length of %d characters", ErrValidationFailed, fieldName, maxLength)
	}
	return nil
}

// ValidateStringRegex checks if a string matches a given regex pattern.
func ValidateStringRegex(s string, pattern *regexp.Regexp, fieldName, formatDescription string) error {
	if !pattern.MatchString(s) {
		return fmt.Errorf("%w: %s ('%s') is not in the expected format (%s)", ErrValidationFailed, fieldName, s, formatDescription)
	}
	return nil
}

// --- Numeric Validators ---

// ValidatePositiveAmount checks that v is finite and in (0, MaxAmount].
func ValidatePositiveAmount(v float64, fieldName string) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s must be a finite number", ErrValidationFailed, fieldName)
	}
	if v <= 0 {
		return fmt.Errorf("%w: %s must be greater than zero", ErrValidationFailed, fieldName)
	}
	if v > MaxAmount {
		logger.L.Warn("Amount out of range", "field", fieldName, "value", v)
		return fmt.Errorf("%w: %s must not exceed %.0f", ErrValidationFailed, fieldName, MaxAmount)
	}
	return nil
}

// ValidateIntString parses a string to int and checks if it's within a range.
func ValidateIntString(s, fieldName string, minVal, maxVal int) (int, error) {
	trimmed := strings.TrimSpace(s)
	if err := ValidateStringNotEmpty(trimmed, fieldName); err != nil {
		return 0, err
	}

	val, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%w: %s ('%s') is not a valid integer: %v", ErrValidationFailed, fieldName, s, err)
	}
	if val < minVal || val > maxVal {
		logger.L.Warn("Integer value out of range", "field", fieldName, "value", val, "min", minVal, "max", maxVal)
		return 0, fmt.Errorf("%w: %s must be between %d and %d, got %d", ErrValidationFailed, fieldName, minVal, maxVal, val)
	}
	return val, nil
}

// --- Specific Format Validators ---

var currencyCodeRegex = regexp.MustCompile(`^[A-Z]{3}$`)

// NormalizeCurrencyCode trims and upper-cases a currency code.
func NormalizeCurrencyCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ValidateCurrencyCode checks that s is a supported three-letter code. Call
// it on a normalized code.
func ValidateCurrencyCode(s string) error {
	if err := ValidateStringNotEmpty(s, "currency"); err != nil {
		return err
	}
	if err := ValidateStringMaxLength(s, MaxCurrencyCodeLength, "currency"); err != nil {
		return err
	}
	if err := ValidateStringRegex(s, currencyCodeRegex, "currency", "3 uppercase letters"); err != nil {
		return err
	}
	if !models.IsSupportedCurrency(s) {
		return fmt.Errorf("%w: currency %s is not supported", ErrValidationFailed, s)
	}
	return nil
}
