// Package datetime provides date and time utility functions.
package datetime

import (
	"time"

	"github.com/KatTate/katalyst-franchise-planner/pkg/constants"
)

// MustParseTime parses a date string using the given layout and panics on error.
// This is intended for use in tests where the date string is known to be valid.
func MustParseTime(layout, dateStr string) time.Time {
	t, err := time.Parse(layout, dateStr)
	if err != nil {
		panic(err)
	}
	return t
}

// AddMonths offsets a date by whole calendar months. The day is pinned to the
// first of the month so that month-end dates do not roll into the next month.
func AddMonths(t time.Time, months int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return first.AddDate(0, months, 0)
}

// MonthYear renders the calendar month that lies the given number of months
// after start, e.g. "Mar 2027".
func MonthYear(start time.Time, months int) string {
	return AddMonths(start, months).Format(constants.MonthYearLayout)
}

// ParseDate parses a plan start date. Empty input yields nil.
func ParseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(constants.DateLayout, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
