// Package engine defines the projection contract the derived-state layers
// consume, and a reference projector that satisfies it.
package engine

import (
	"context"

	"github.com/KatTate/katalyst-franchise-planner/internal/plan"
)

// MonthlyProjection is one projected month. Amounts are in cents.
type MonthlyProjection struct {
	Month      int     `json:"month"`
	Revenue    float64 `json:"revenue"`
	TotalCosts float64 `json:"totalCosts"`
	NetIncome  float64 `json:"netIncome"`
	EndingCash float64 `json:"endingCash"`
}

// AnnualSummary aggregates one projected year. Amounts are in cents.
type AnnualSummary struct {
	Year         int     `json:"year"`
	Revenue      float64 `json:"revenue"`
	TotalCosts   float64 `json:"totalCosts"`
	PreTaxIncome float64 `json:"preTaxIncome"`
}

// ROIMetrics are the headline return figures. FiveYearROIPct is a fraction
// (1.0 = 100%).
type ROIMetrics struct {
	BreakEvenMonth    *int    `json:"breakEvenMonth"`
	FiveYearROIPct    float64 `json:"fiveYearROIPct"`
	TotalCashInvested float64 `json:"totalCashInvested"`
}

// IdentityCheck is an accounting invariant the projector verified.
type IdentityCheck struct {
	Name     string  `json:"name"`
	Passed   bool    `json:"passed"`
	Expected float64 `json:"expected"`
	Actual   float64 `json:"actual"`
}

// Output is everything a projection run produces. It is recomputed whenever
// a plan's inputs or startup costs change and is never edited in place.
type Output struct {
	MonthlyProjections []MonthlyProjection `json:"monthlyProjections"`
	AnnualSummaries    []AnnualSummary     `json:"annualSummaries"`
	ROIMetrics         ROIMetrics          `json:"roiMetrics"`
	IdentityChecks     []IdentityCheck     `json:"identityChecks"`
}

// Adjustment scales a projection for a scenario.
type Adjustment struct {
	Name              string  `json:"name"`
	RevenueMultiplier float64 `json:"revenueMultiplier"`
	CostMultiplier    float64 `json:"costMultiplier"`
}

// Unadjusted projects the plan as entered.
var Unadjusted = Adjustment{Name: "base", RevenueMultiplier: 1, CostMultiplier: 1}

// Projector turns a plan into projected outputs.
type Projector interface {
	Project(ctx context.Context, p plan.Plan, adj Adjustment) (Output, error)
}

// NegativeCashMonths counts months that end with negative cash.
func (o Output) NegativeCashMonths() int {
	n := 0
	for _, month := range o.MonthlyProjections {
		if month.EndingCash < 0 {
			n++
		}
	}
	return n
}

// LowestEndingCash returns the minimum month-end cash, 0 for an empty run.
func (o Output) LowestEndingCash() float64 {
	if len(o.MonthlyProjections) == 0 {
		return 0
	}
	lowest := o.MonthlyProjections[0].EndingCash
	for _, month := range o.MonthlyProjections[1:] {
		if month.EndingCash < lowest {
			lowest = month.EndingCash
		}
	}
	return lowest
}
