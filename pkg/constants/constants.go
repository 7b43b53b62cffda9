// Package constants provides shared constants for the franchise planner.
package constants

import "time"

// MonthYearLayout is the calendar label format used for projected dates.
const MonthYearLayout = "Jan 2006"

// DateLayout is the format plan start dates are exchanged in.
const DateLayout = "2006-01-02"

// Financial constants
const (
	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12

	// CentsPerDollar converts stored currency values to dollars
	CentsPerDollar = 100

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0

	// DefaultProjectionMonths is the horizon of the reference projector (five years)
	DefaultProjectionMonths = 60
)

// Guardian thresholds. Boundaries are inclusive on the healthier side.
const (
	// BreakEvenHealthyMonths is the latest break-even month still considered healthy
	BreakEvenHealthyMonths = 18

	// BreakEvenAttentionMonths is the latest break-even month that only needs attention
	BreakEvenAttentionMonths = 30

	// ROIHealthyFraction is the minimum five-year ROI (1.0 = 100%) considered healthy
	ROIHealthyFraction = 1.0

	// ROIAttentionFraction is the minimum five-year ROI that only needs attention
	ROIAttentionFraction = 0.5

	// CashAttentionMonths is the most negative-cash months that only need attention
	CashAttentionMonths = 3
)

// Guardian change-signal timing
const (
	// DefaultGuardianDebounce coalesces rapid level changes into one pulse
	DefaultGuardianDebounce = 300 * time.Millisecond

	// DefaultGuardianPulse is how long a changed indicator stays highlighted
	DefaultGuardianPulse = 650 * time.Millisecond
)

// Completeness tiers for the document generation button
const (
	// PackageTierMinPct is the lowest completeness that unlocks the package label
	PackageTierMinPct = 50

	// PackageTierMaxPct is the highest completeness still labelled as a package
	PackageTierMaxPct = 90
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatYAML exports the full report as YAML
	OutputFormatYAML = "yaml"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "planner.yaml"

	// ExampleConfigFile is the example configuration file name
	ExampleConfigFile = "planner.yaml.example"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the plan API
	DefaultServerAddress = ":8080"

	// DefaultDatabasePath is where the reference server keeps plans
	DefaultDatabasePath = "planner.db"

	// DefaultMaxBodySizeBytes is the default maximum request body size (256 KB)
	DefaultMaxBodySizeBytes int64 = 256 * 1024

	// DefaultAPITimeout bounds a single plan API request
	DefaultAPITimeout = 15 * time.Second
)
