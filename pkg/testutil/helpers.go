// Package testutil provides common utility functions for testing.
package testutil

import (
	"time"

	"github.com/KatTate/katalyst-franchise-planner/internal/engine"
	"github.com/KatTate/katalyst-franchise-planner/internal/plan"
)

// BrandDefaults returns a brand default set covering every registered field.
func BrandDefaults() plan.BrandDefaults {
	return plan.BrandDefaults{
		Fields: map[plan.Category]map[string]float64{
			plan.CategoryRevenue: {
				"monthlyAuv":          4500000,
				"startingMonthAuvPct": 0.6,
				"monthsToReachAuv":    12,
				"year1GrowthRate":     0.05,
				"year2GrowthRate":     0.03,
			},
			plan.CategoryOperatingCosts: {
				"cogsPct":      0.28,
				"laborPct":     0.25,
				"royaltyPct":   0.06,
				"adFundPct":    0.02,
				"otherOpexPct": 0.05,
				"rentMonthly":  600000,
			},
			plan.CategoryFinancing: {
				"loanAmount":     25000000,
				"interestRate":   0.085,
				"loanTermMonths": 120,
				"downPaymentPct": 0.2,
			},
			plan.CategoryStartupCapital: {
				"workingCapitalMonths": 3,
				"depreciationYears":    7,
			},
		},
		FacilitiesDecomposition: []float64{120000, 45000, 30000},
		StartupCosts: []plan.StartupCostLineItem{
			{ID: "franchise-fee", Label: "Franchise Fee", Amount: 4500000},
			{ID: "build-out", Label: "Build-out", Amount: 18000000},
			{ID: "equipment", Label: "Equipment", Amount: 9000000},
			{ID: "opening-inventory", Label: "Opening Inventory", Amount: 1500000},
		},
	}
}

// NewBrandInputs returns an all-defaults input document.
func NewBrandInputs() plan.FinancialInputs {
	return plan.NewFromBrandDefaults(BrandDefaults())
}

// NewPlan returns an all-defaults plan with the given id.
func NewPlan(id string) plan.Plan {
	defaults := BrandDefaults()
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	return plan.Plan{
		ID:              id,
		Name:            "Test Location",
		BrandID:         "test-brand",
		StartDate:       &start,
		FinancialInputs: plan.NewFromBrandDefaults(defaults),
		StartupCosts:    defaults.DefaultStartupCosts(),
		CreatedAt:       created,
		UpdatedAt:       created,
	}
}

// OutputOption customizes NewOutput.
type OutputOption func(*engine.Output)

// WithBreakEven sets the break-even month; nil means never reached.
func WithBreakEven(month *int) OutputOption {
	return func(o *engine.Output) { o.ROIMetrics.BreakEvenMonth = month }
}

// WithROI sets the five-year ROI fraction.
func WithROI(fraction float64) OutputOption {
	return func(o *engine.Output) { o.ROIMetrics.FiveYearROIPct = fraction }
}

// WithNegativeCashMonths makes the first n months end with negative cash.
func WithNegativeCashMonths(n int) OutputOption {
	return func(o *engine.Output) {
		for i := range o.MonthlyProjections {
			if i < n {
				o.MonthlyProjections[i].EndingCash = -1000
			} else {
				o.MonthlyProjections[i].EndingCash = 5000
			}
		}
	}
}

// NewOutput builds a healthy 24-month output and applies the options.
func NewOutput(opts ...OutputOption) engine.Output {
	month := 12
	o := engine.Output{
		ROIMetrics: engine.ROIMetrics{BreakEvenMonth: &month, FiveYearROIPct: 1.5},
	}
	for m := 1; m <= 24; m++ {
		o.MonthlyProjections = append(o.MonthlyProjections, engine.MonthlyProjection{Month: m, EndingCash: 5000})
	}
	o.AnnualSummaries = []engine.AnnualSummary{{Year: 1, PreTaxIncome: 100}, {Year: 2, PreTaxIncome: 200}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// IntPtr returns a pointer to n.
func IntPtr(n int) *int {
	return &n
}
