package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/KatTate/katalyst-franchise-planner/internal/plan"
	"github.com/KatTate/katalyst-franchise-planner/pkg/constants"
	"github.com/KatTate/katalyst-franchise-planner/pkg/mathutil"
	"go.uber.org/zap"
)

// LinearProjector is a straight-line monthly projection. It stands in for
// the production engine so the server and CLI have something to serve.
type LinearProjector struct {
	logger *zap.Logger
	months int
}

// NewLinearProjector creates a projector over the given horizon. A
// non-positive horizon falls back to five years.
func NewLinearProjector(logger *zap.Logger, months int) *LinearProjector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if months <= 0 {
		months = constants.DefaultProjectionMonths
	}
	return &LinearProjector{logger: logger, months: months}
}

type assumptions struct {
	monthlyAuv         float64
	startingPct        float64
	rampMonths         int
	year1Growth        float64
	year2Growth        float64
	variablePct        float64
	fixedMonthly       float64
	loanAmount         float64
	interestRate       float64
	loanTermMonths     int
	workingCapital     int
	depreciationMonths int
	startupTotal       float64
}

func readAssumptions(p plan.Plan) assumptions {
	in := p.FinancialInputs
	a := assumptions{
		monthlyAuv:     in.Value(plan.CategoryRevenue, "monthlyAuv", 0),
		startingPct:    in.Value(plan.CategoryRevenue, "startingMonthAuvPct", 1),
		rampMonths:     int(in.Value(plan.CategoryRevenue, "monthsToReachAuv", 0)),
		year1Growth:    in.Value(plan.CategoryRevenue, "year1GrowthRate", 0),
		year2Growth:    in.Value(plan.CategoryRevenue, "year2GrowthRate", 0),
		loanAmount:     in.Value(plan.CategoryFinancing, "loanAmount", 0),
		interestRate:   in.Value(plan.CategoryFinancing, "interestRate", 0),
		loanTermMonths: int(in.Value(plan.CategoryFinancing, "loanTermMonths", 0)),
		workingCapital: int(in.Value(plan.CategoryStartupCapital, "workingCapitalMonths", 0)),
		startupTotal:   float64(plan.TotalStartupCosts(p.StartupCosts)),
	}
	for _, name := range []string{"cogsPct", "laborPct", "royaltyPct", "adFundPct", "otherOpexPct"} {
		a.variablePct += in.Value(plan.CategoryOperatingCosts, name, 0)
	}
	a.fixedMonthly = in.Value(plan.CategoryOperatingCosts, "rentMonthly", 0)
	for _, line := range in.OperatingCosts.FacilitiesDecomposition {
		a.fixedMonthly += line.CurrentValue
	}
	a.depreciationMonths = int(in.Value(plan.CategoryStartupCapital, "depreciationYears", 0)) * constants.MonthsPerYear
	return a
}

// Project runs the monthly loop for one adjustment.
func (lp *LinearProjector) Project(ctx context.Context, p plan.Plan, adj Adjustment) (Output, error) {
	if adj.RevenueMultiplier <= 0 || adj.CostMultiplier <= 0 {
		return Output{}, fmt.Errorf("invalid adjustment %q: multipliers must be positive", adj.Name)
	}
	a := readAssumptions(p)

	fixed := a.fixedMonthly * adj.CostMultiplier
	reserve := float64(a.workingCapital) * fixed
	equity := math.Max(a.startupTotal-a.loanAmount, 0) + reserve
	principal := 0.0
	if a.loanTermMonths > 0 {
		principal = a.loanAmount / float64(a.loanTermMonths)
	}
	depreciation := 0.0
	if a.depreciationMonths > 0 {
		depreciation = a.startupTotal / float64(a.depreciationMonths)
	}

	out := Output{ROIMetrics: ROIMetrics{TotalCashInvested: equity}}
	cash := reserve
	balance := a.loanAmount
	cumulative := 0.0

	for m := 1; m <= lp.months; m++ {
		if err := ctx.Err(); err != nil {
			return Output{}, err
		}

		revenue := a.monthlyAuv * rampFactor(a, m) * growthFactor(a, m) * adj.RevenueMultiplier
		variable := revenue * a.variablePct * adj.CostMultiplier
		interest := balance * a.interestRate / constants.MonthsPerYear
		payment := 0.0
		if m <= a.loanTermMonths {
			payment = mathutil.Min(principal, balance)
		}
		balance -= payment

		costs := variable + fixed + interest
		net := revenue - costs
		cashFlow := net - payment
		cash += cashFlow
		cumulative += cashFlow

		out.MonthlyProjections = append(out.MonthlyProjections, MonthlyProjection{
			Month:      m,
			Revenue:    math.Round(revenue),
			TotalCosts: math.Round(costs),
			NetIncome:  math.Round(net),
			EndingCash: math.Round(cash),
		})

		if out.ROIMetrics.BreakEvenMonth == nil && equity > 0 && cumulative >= equity {
			month := m
			out.ROIMetrics.BreakEvenMonth = &month
		}

		year := (m - 1) / constants.MonthsPerYear
		if len(out.AnnualSummaries) <= year {
			out.AnnualSummaries = append(out.AnnualSummaries, AnnualSummary{Year: year + 1})
		}
		summary := &out.AnnualSummaries[year]
		summary.Revenue += math.Round(revenue)
		summary.TotalCosts += math.Round(costs)
		summary.PreTaxIncome += math.Round(net - depreciation)
	}

	if equity > 0 {
		out.ROIMetrics.FiveYearROIPct = mathutil.RoundTo((cumulative-equity)/equity, 4)
	}
	out.IdentityChecks = identityChecks(out, reserve)

	lp.logger.Debug(fmt.Sprintf("projected %d months for plan %s", lp.months, p.ID),
		zap.String("op", "engine.Project"),
		zap.String("adjustment", adj.Name),
	)
	return out, nil
}

func rampFactor(a assumptions, month int) float64 {
	if a.rampMonths <= 0 || month > a.rampMonths {
		return 1
	}
	step := (1 - a.startingPct) / float64(a.rampMonths)
	return a.startingPct + step*float64(month-1)
}

func growthFactor(a assumptions, month int) float64 {
	year := (month - 1) / constants.MonthsPerYear
	if year == 0 {
		return 1
	}
	return (1 + a.year1Growth) * math.Pow(1+a.year2Growth, float64(year-1))
}

func identityChecks(out Output, startingCash float64) []IdentityCheck {
	var monthlyRevenue, monthlyNet float64
	for _, month := range out.MonthlyProjections {
		monthlyRevenue += month.Revenue
		monthlyNet += month.NetIncome
	}
	var annualRevenue float64
	for _, year := range out.AnnualSummaries {
		annualRevenue += year.Revenue
	}

	checks := []IdentityCheck{{
		Name:     "annual revenue equals monthly revenue",
		Expected: monthlyRevenue,
		Actual:   annualRevenue,
		Passed:   mathutil.RoundTo(monthlyRevenue, 0) == mathutil.RoundTo(annualRevenue, 0),
	}}
	if n := len(out.MonthlyProjections); n > 0 {
		last := out.MonthlyProjections[n-1].EndingCash
		checks = append(checks, IdentityCheck{
			Name:     "ending cash does not exceed starting cash plus net income",
			Expected: math.Round(startingCash + monthlyNet),
			Actual:   last,
			Passed:   last <= math.Round(startingCash+monthlyNet)+float64(n),
		})
	}
	return checks
}
