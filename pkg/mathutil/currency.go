// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"

	"github.com/KatTate/katalyst-franchise-planner/pkg/constants"
)

// CentsToDollars converts a stored cent amount to dollars.
func CentsToDollars(cents float64) float64 {
	return cents / constants.CentsPerDollar
}

// DollarsToCents converts dollars to the nearest whole cent.
func DollarsToCents(dollars float64) float64 {
	return math.Round(dollars * constants.CentsPerDollar)
}

// FractionToPercent converts a stored fraction (0.05) to a percentage (5).
func FractionToPercent(fraction float64) float64 {
	return fraction * constants.PercentageMultiplier
}

// PercentToFraction converts a percentage (5) to a stored fraction (0.05).
func PercentToFraction(percent float64) float64 {
	return percent / constants.PercentageMultiplier
}

// IsWhole reports whether the value has no fractional part.
func IsWhole(val float64) bool {
	return !math.IsInf(val, 0) && !math.IsNaN(val) && val == math.Trunc(val)
}

// RoundTo rounds a value to the given number of decimals.
func RoundTo(val float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(val*p) / p
}

// Percentage returns the integer percentage part/total, 0 when total is 0.
func Percentage(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * constants.PercentageMultiplier))
}

// Min returns the minimum of two float64 values
func Min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
