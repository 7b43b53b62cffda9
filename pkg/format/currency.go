// Package format renders stored plan values for display.
package format

import (
	"math"
	"strconv"

	"github.com/KatTate/katalyst-franchise-planner/pkg/mathutil"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Currency renders a cent amount as dollars with thousands separators
// (e.g., "$1,500", "$1,500.50", "-$20").
func Currency(cents float64) string {
	formatted := positiveDollars(math.Abs(cents))
	if cents < 0 {
		return "-$" + formatted
	}
	return "$" + formatted
}

// CurrencyDelta renders a computed difference, using accounting parentheses
// for negative amounts (e.g., "($1,500)").
func CurrencyDelta(cents float64) string {
	formatted := positiveDollars(math.Abs(cents))
	if cents < 0 {
		return "($" + formatted + ")"
	}
	return "$" + formatted
}

// Percentage renders a stored fraction with one decimal (0.05 -> "5.0%").
func Percentage(fraction float64) string {
	return printer.Sprintf("%.1f%%", mathutil.FractionToPercent(fraction))
}

// PercentageCompact renders a fraction with one decimal unless the
// percentage is exactly a whole number (1.0 -> "100%", 0.455 -> "45.5%",
// 0.99996 -> "100.0%"). Binary noise below a millionth of a percent is
// dropped first, so 0.07 is still "7%".
func PercentageCompact(fraction float64) string {
	pct := mathutil.RoundTo(mathutil.FractionToPercent(fraction), 6)
	if mathutil.IsWhole(pct) {
		return printer.Sprintf("%d%%", int64(pct))
	}
	return printer.Sprintf("%.1f%%", pct)
}

// Integer renders a whole number with thousands separators.
func Integer(value float64) string {
	return printer.Sprintf("%d", int64(math.Round(value)))
}

// PlainNumber renders a value without grouping or trailing zeros, suitable
// for seeding an editable text buffer.
func PlainNumber(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func positiveDollars(cents float64) string {
	cents = math.Round(cents)
	dollars := mathutil.CentsToDollars(cents)
	if math.Mod(cents, 100) == 0 {
		return printer.Sprintf("%d", int64(dollars))
	}
	return printer.Sprintf("%.2f", dollars)
}
