// Package fields is the static registry of plan input fields: their labels,
// display formats and the parse rules applied to user edits.
package fields

import (
	"github.com/KatTate/katalyst-franchise-planner/internal/plan"
	"github.com/KatTate/katalyst-franchise-planner/pkg/format"
	"github.com/KatTate/katalyst-franchise-planner/pkg/mathutil"
)

// Format selects how a field is displayed and parsed.
type Format string

const (
	FormatCurrency   Format = "currency"
	FormatPercentage Format = "percentage"
	FormatInteger    Format = "integer"
)

// Metadata describes one registered field.
type Metadata struct {
	Name   string
	Label  string
	Format Format
	List   bool
}

// Section is the registered field set of one category.
type Section struct {
	Category plan.Category
	Label    string
	Fields   []Metadata
}

var sections = []Section{
	{
		Category: plan.CategoryRevenue,
		Label:    "Revenue",
		Fields: []Metadata{
			{Name: "monthlyAuv", Label: "Monthly Revenue at Maturity", Format: FormatCurrency},
			{Name: "startingMonthAuvPct", Label: "Starting Revenue (% of Maturity)", Format: FormatPercentage},
			{Name: "monthsToReachAuv", Label: "Months to Reach Maturity", Format: FormatInteger},
			{Name: "year1GrowthRate", Label: "Year 1 Growth Rate", Format: FormatPercentage},
			{Name: "year2GrowthRate", Label: "Year 2+ Growth Rate", Format: FormatPercentage},
		},
	},
	{
		Category: plan.CategoryOperatingCosts,
		Label:    "Operating Costs",
		Fields: []Metadata{
			{Name: "cogsPct", Label: "Cost of Goods Sold", Format: FormatPercentage},
			{Name: "laborPct", Label: "Labor", Format: FormatPercentage},
			{Name: "royaltyPct", Label: "Royalty Fee", Format: FormatPercentage},
			{Name: "adFundPct", Label: "Ad Fund", Format: FormatPercentage},
			{Name: "otherOpexPct", Label: "Other Operating Expenses", Format: FormatPercentage},
			{Name: "rentMonthly", Label: "Monthly Rent", Format: FormatCurrency},
			{Name: plan.FacilitiesDecomposition, Label: "Facilities Breakdown", Format: FormatCurrency, List: true},
		},
	},
	{
		Category: plan.CategoryFinancing,
		Label:    "Financing",
		Fields: []Metadata{
			{Name: "loanAmount", Label: "Loan Amount", Format: FormatCurrency},
			{Name: "interestRate", Label: "Interest Rate", Format: FormatPercentage},
			{Name: "loanTermMonths", Label: "Loan Term (Months)", Format: FormatInteger},
			{Name: "downPaymentPct", Label: "Down Payment", Format: FormatPercentage},
		},
	},
	{
		Category: plan.CategoryStartupCapital,
		Label:    "Startup Capital",
		Fields: []Metadata{
			{Name: "workingCapitalMonths", Label: "Working Capital (Months)", Format: FormatInteger},
			{Name: "depreciationYears", Label: "Depreciation Period (Years)", Format: FormatInteger},
		},
	},
}

var index = buildIndex()

func buildIndex() map[plan.Category]map[string]Metadata {
	idx := make(map[plan.Category]map[string]Metadata, len(sections))
	for _, section := range sections {
		byName := make(map[string]Metadata, len(section.Fields))
		for _, field := range section.Fields {
			byName[field.Name] = field
		}
		idx[section.Category] = byName
	}
	return idx
}

// Sections returns every category's registered fields in display order.
func Sections() []Section {
	out := make([]Section, len(sections))
	for i, section := range sections {
		out[i] = section
		out[i].Fields = append([]Metadata(nil), section.Fields...)
	}
	return out
}

// SectionFor returns the registered fields of one category.
func SectionFor(category plan.Category) (Section, bool) {
	for _, section := range sections {
		if section.Category == category {
			return section, true
		}
	}
	return Section{}, false
}

// Lookup returns the metadata of a registered field.
func Lookup(category plan.Category, name string) (Metadata, bool) {
	meta, ok := index[category][name]
	return meta, ok
}

// FormatFieldValue renders a stored value for display.
func FormatFieldValue(value float64, f Format) string {
	switch f {
	case FormatCurrency:
		return format.Currency(value)
	case FormatPercentage:
		return format.Percentage(value)
	default:
		return format.Integer(value)
	}
}

// FormatEditBuffer renders a stored value as the plain text an edit starts
// from: dollars for currency, value*100 for percentages, the raw integer
// otherwise.
func FormatEditBuffer(value float64, f Format) string {
	switch f {
	case FormatCurrency:
		return format.PlainNumber(mathutil.CentsToDollars(value))
	case FormatPercentage:
		return format.PlainNumber(mathutil.RoundTo(mathutil.FractionToPercent(value), 6))
	default:
		return format.PlainNumber(value)
	}
}
