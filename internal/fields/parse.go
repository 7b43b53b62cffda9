package fields

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/KatTate/katalyst-franchise-planner/pkg/mathutil"
)

// maxCents is the largest amount accepted from an edit. Stored currency is
// float64 cents, whose integers are exact up to 2^53.
const maxCents = 1 << 53

// ParseFieldInput converts edit text back into a stored value. ok is false
// when the text cannot be used; callers must check it before using value.
func ParseFieldInput(text string, f Format) (value float64, ok bool) {
	switch f {
	case FormatCurrency:
		cents, ok := ParseDollarsToCents(text)
		return float64(cents), ok
	case FormatPercentage:
		return parsePercentage(text)
	case FormatInteger:
		return parseInteger(text)
	}
	return 0, false
}

// ParseDollarsToCents parses a dollar amount such as "$1,500.00" into cents.
// Accounting parentheses mark a negative amount, and negative amounts are
// rejected: "-5" and "(15)" both fail.
func ParseDollarsToCents(text string) (int64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if r == '$' || r == ',' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)

	negative := false
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		negative = true
		cleaned = cleaned[1 : len(cleaned)-1]
	}

	dollars, ok := parseFinite(cleaned)
	if !ok {
		return 0, false
	}
	if negative {
		dollars = -dollars
	}
	if dollars < 0 {
		return 0, false
	}
	cents := mathutil.DollarsToCents(dollars)
	if cents > maxCents {
		return 0, false
	}
	return int64(cents), true
}

func parsePercentage(text string) (float64, bool) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(text, "%", ""))
	pct, ok := parseFinite(cleaned)
	if !ok {
		return 0, false
	}
	return mathutil.PercentToFraction(pct), true
}

func parseInteger(text string) (float64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) || r == '.' || r == '-' {
			return r
		}
		return -1
	}, text)

	n, ok := parseFinite(cleaned)
	if !ok || n < 0 {
		return 0, false
	}
	return math.Round(n), true
}

// parseFinite rejects empty text and the NaN/Inf spellings strconv accepts.
func parseFinite(text string) (float64, bool) {
	if text == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}
