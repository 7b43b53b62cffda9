// Package validation provides configuration validation utilities.
package validation

import (
	"fmt"
	"time"
)

// ValidateDefaultValue checks a brand default for values a franchisee could
// never enter themselves. Problems are reported as warnings, not errors.
func ValidateDefaultValue(category, field, format string, value float64) []string {
	var warnings []string
	name := category + "." + field

	switch format {
	case "currency", "integer":
		if value < 0 {
			warnings = append(warnings, fmt.Sprintf("Brand default '%s' is negative (%v) - field input rejects negative values", name, value))
		}
	case "percentage":
		if value < 0 || value > 1 {
			warnings = append(warnings, fmt.Sprintf("Brand default '%s' (%v) is outside 0-1 - percentages are stored as fractions", name, value))
		}
	default:
		warnings = append(warnings, fmt.Sprintf("Brand default '%s' has unknown format %q", name, format))
	}

	return warnings
}

// ValidateStartupCost checks one brand default startup cost line item.
func ValidateStartupCost(label string, amountCents int64) []string {
	var warnings []string
	if label == "" {
		warnings = append(warnings, "Startup cost item has an empty label")
	}
	if amountCents < 0 {
		warnings = append(warnings, fmt.Sprintf("Startup cost '%s' is negative (%d cents)", label, amountCents))
	}
	return warnings
}

// ValidateGuardianTiming checks the change-signal durations.
func ValidateGuardianTiming(debounce, pulse time.Duration) []string {
	var warnings []string
	if debounce <= 0 {
		warnings = append(warnings, fmt.Sprintf("Guardian debounce %s is not positive - every level change will pulse immediately", debounce))
	}
	if pulse <= 0 {
		warnings = append(warnings, fmt.Sprintf("Guardian pulse %s is not positive - highlights will clear immediately", pulse))
	}
	return warnings
}
