package datetime

import (
	"testing"
	"time"

	"github.com/KatTate/katalyst-franchise-planner/pkg/constants"
)

func TestMustParseTime(t *testing.T) {
	result := MustParseTime(constants.DateLayout, "2026-03-01")
	if result.Year() != 2026 || result.Month() != time.March || result.Day() != 1 {
		t.Errorf("MustParseTime() = %v", result)
	}
}

func TestMustParseTimePanic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("MustParseTime should have panicked with invalid date")
		}
	}()
	MustParseTime(constants.DateLayout, "not-a-date")
}

func TestAddMonths(t *testing.T) {
	tests := []struct {
		name     string
		start    string
		months   int
		expected string
	}{
		{"Same month", "2026-03-01", 0, "2026-03-01"},
		{"Within year", "2026-03-01", 5, "2026-08-01"},
		{"Across year", "2026-11-01", 3, "2027-02-01"},
		{"Month end pinned", "2026-01-31", 1, "2026-02-01"},
		{"Backwards", "2026-03-15", -3, "2025-12-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := MustParseTime(constants.DateLayout, tt.start)
			result := AddMonths(start, tt.months).Format(constants.DateLayout)
			if result != tt.expected {
				t.Errorf("AddMonths(%s, %d) = %s, expected %s", tt.start, tt.months, result, tt.expected)
			}
		})
	}
}

func TestMonthYear(t *testing.T) {
	start := MustParseTime(constants.DateLayout, "2026-06-01")
	if got := MonthYear(start, 12); got != "Jun 2027" {
		t.Errorf("MonthYear(Jun 2026, 12) = %s, expected Jun 2027", got)
	}
	if got := MonthYear(start, 7); got != "Jan 2027" {
		t.Errorf("MonthYear(Jun 2026, 7) = %s, expected Jan 2027", got)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantNil bool
		wantErr bool
	}{
		{name: "Empty", input: "", wantNil: true},
		{name: "Valid", input: "2026-03-01"},
		{name: "Month only", input: "2026-03", wantErr: true},
		{name: "Garbage", input: "soon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseDate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDate(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if (result == nil) != tt.wantNil {
				t.Errorf("ParseDate(%q) = %v, wantNil %v", tt.input, result, tt.wantNil)
			}
		})
	}
}
