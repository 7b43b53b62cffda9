package validation

import (
	"strings"
	"testing"
	"time"
)

func TestValidateDefaultValue(t *testing.T) {
	tests := []struct {
		name         string
		format       string
		value        float64
		wantWarnings int
		wantContains string
	}{
		{name: "Currency positive", format: "currency", value: 4500000},
		{name: "Currency zero", format: "currency", value: 0},
		{name: "Currency negative", format: "currency", value: -1, wantWarnings: 1, wantContains: "is negative"},
		{name: "Integer negative", format: "integer", value: -3, wantWarnings: 1, wantContains: "is negative"},
		{name: "Percentage in range", format: "percentage", value: 0.28},
		{name: "Percentage at one", format: "percentage", value: 1},
		{name: "Percentage written as percent", format: "percentage", value: 28, wantWarnings: 1, wantContains: "outside 0-1"},
		{name: "Percentage negative", format: "percentage", value: -0.1, wantWarnings: 1, wantContains: "outside 0-1"},
		{name: "Unknown format", format: "ratio", value: 1, wantWarnings: 1, wantContains: "unknown format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warnings := ValidateDefaultValue("revenue", "monthlyAuv", tt.format, tt.value)
			if len(warnings) != tt.wantWarnings {
				t.Fatalf("ValidateDefaultValue() = %v, want %d warnings", warnings, tt.wantWarnings)
			}
			if tt.wantContains != "" && !strings.Contains(warnings[0], tt.wantContains) {
				t.Errorf("warning %q does not contain %q", warnings[0], tt.wantContains)
			}
			if tt.wantWarnings > 0 && !strings.Contains(warnings[0], "revenue.monthlyAuv") {
				t.Errorf("warning %q does not name the field", warnings[0])
			}
		})
	}
}

func TestValidateStartupCost(t *testing.T) {
	tests := []struct {
		name         string
		label        string
		amount       int64
		wantWarnings int
	}{
		{name: "Valid item", label: "Franchise Fee", amount: 4500000},
		{name: "Zero amount", label: "Permits", amount: 0},
		{name: "Empty label", label: "", amount: 100, wantWarnings: 1},
		{name: "Negative amount", label: "Refund", amount: -100, wantWarnings: 1},
		{name: "Both problems", label: "", amount: -100, wantWarnings: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warnings := ValidateStartupCost(tt.label, tt.amount)
			if len(warnings) != tt.wantWarnings {
				t.Errorf("ValidateStartupCost(%q, %d) = %v, want %d warnings", tt.label, tt.amount, warnings, tt.wantWarnings)
			}
		})
	}
}

func TestValidateGuardianTiming(t *testing.T) {
	tests := []struct {
		name         string
		debounce     time.Duration
		pulse        time.Duration
		wantWarnings int
	}{
		{name: "Defaults", debounce: 300 * time.Millisecond, pulse: 650 * time.Millisecond},
		{name: "Zero debounce", debounce: 0, pulse: time.Second, wantWarnings: 1},
		{name: "Negative pulse", debounce: time.Second, pulse: -time.Second, wantWarnings: 1},
		{name: "Both invalid", debounce: -1, pulse: 0, wantWarnings: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warnings := ValidateGuardianTiming(tt.debounce, tt.pulse)
			if len(warnings) != tt.wantWarnings {
				t.Errorf("ValidateGuardianTiming(%v, %v) = %v, want %d warnings", tt.debounce, tt.pulse, warnings, tt.wantWarnings)
			}
		})
	}
}
