// Package guardian classifies a plan's projected outputs into a small set of
// health indicators and signals when an indicator changes level.
package guardian

import (
	"fmt"
	"time"

	"github.com/KatTate/katalyst-franchise-planner/internal/engine"
	"github.com/KatTate/katalyst-franchise-planner/internal/plan"
	"github.com/KatTate/katalyst-franchise-planner/pkg/constants"
	"github.com/KatTate/katalyst-franchise-planner/pkg/datetime"
	"github.com/KatTate/katalyst-franchise-planner/pkg/format"
)

// IndicatorID names one of the fixed indicators.
type IndicatorID string

const (
	BreakEven IndicatorID = "break-even"
	ROI       IndicatorID = "roi"
	Cash      IndicatorID = "cash"
)

// Indicators lists every indicator in display order.
var Indicators = []IndicatorID{BreakEven, ROI, Cash}

// Level is the health classification of an indicator.
type Level string

const (
	Healthy    Level = "healthy"
	Attention  Level = "attention"
	Concerning Level = "concerning"
)

// NavigateTo is where the UI takes the user when an indicator is selected.
type NavigateTo struct {
	Tab      string `json:"tab"`
	ScrollTo string `json:"scrollTo,omitempty"`
}

// Indicator is one classified health signal.
type Indicator struct {
	ID         IndicatorID `json:"id"`
	Label      string      `json:"label"`
	Value      string      `json:"value"`
	Subtitle   string      `json:"subtitle,omitempty"`
	Level      Level       `json:"level"`
	NavigateTo NavigateTo  `json:"navigateTo"`
}

// State is the full Guardian evaluation of a plan.
type State struct {
	Indicators  []Indicator `json:"indicators"`
	AllDefaults bool        `json:"allDefaults"`
}

// Indicator returns the indicator with the given id.
func (s State) Indicator(id IndicatorID) (Indicator, bool) {
	for _, ind := range s.Indicators {
		if ind.ID == id {
			return ind, true
		}
	}
	return Indicator{}, false
}

type options struct {
	now func() time.Time
}

// Option customizes ComputeState.
type Option func(*options)

// WithNow sets the clock used when the plan has no start date.
func WithNow(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// ComputeState evaluates the three indicators from one projection. The
// break-even date is anchored to planStartDate, or to now when it is nil.
// A nil inputs document counts as all defaults.
func ComputeState(output engine.Output, planStartDate *time.Time, inputs *plan.FinancialInputs, startupCosts []plan.StartupCostLineItem, opts ...Option) State {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	start := o.now()
	if planStartDate != nil {
		start = *planStartDate
	}

	return State{
		Indicators: []Indicator{
			breakEvenIndicator(output.ROIMetrics.BreakEvenMonth, start),
			roiIndicator(output.ROIMetrics.FiveYearROIPct),
			cashIndicator(output.NegativeCashMonths()),
		},
		AllDefaults: IsAllDefaults(inputs, startupCosts),
	}
}

// IsAllDefaults reports whether no field and no startup cost item is custom.
func IsAllDefaults(inputs *plan.FinancialInputs, startupCosts []plan.StartupCostLineItem) bool {
	if inputs != nil && inputs.AnyCustom() {
		return false
	}
	return !plan.AnyCustomStartupCost(startupCosts)
}

// BreakEvenLevel classifies a break-even month; nil means never reached.
func BreakEvenLevel(month *int) Level {
	switch {
	case month == nil:
		return Concerning
	case *month <= constants.BreakEvenHealthyMonths:
		return Healthy
	case *month <= constants.BreakEvenAttentionMonths:
		return Attention
	default:
		return Concerning
	}
}

// ROILevel classifies a five-year ROI fraction.
func ROILevel(fraction float64) Level {
	switch {
	case fraction >= constants.ROIHealthyFraction:
		return Healthy
	case fraction >= constants.ROIAttentionFraction:
		return Attention
	default:
		return Concerning
	}
}

// CashLevel classifies the number of months ending with negative cash.
func CashLevel(negativeMonths int) Level {
	switch {
	case negativeMonths == 0:
		return Healthy
	case negativeMonths <= constants.CashAttentionMonths:
		return Attention
	default:
		return Concerning
	}
}

func breakEvenIndicator(month *int, start time.Time) Indicator {
	ind := Indicator{
		ID:         BreakEven,
		Label:      "Break-even",
		Value:      "Not reached",
		Level:      BreakEvenLevel(month),
		NavigateTo: NavigateTo{Tab: "summary", ScrollTo: "break-even"},
	}
	if month != nil {
		ind.Value = fmt.Sprintf("Month %d", *month)
		ind.Subtitle = datetime.MonthYear(start, *month)
	}
	return ind
}

func roiIndicator(fraction float64) Indicator {
	return Indicator{
		ID:         ROI,
		Label:      "5-Year ROI",
		Value:      format.PercentageCompact(fraction),
		Level:      ROILevel(fraction),
		NavigateTo: NavigateTo{Tab: "roic"},
	}
}

func cashIndicator(negativeMonths int) Indicator {
	value := "OK"
	switch {
	case negativeMonths == 1:
		value = "1 month negative"
	case negativeMonths > 1:
		value = fmt.Sprintf("%d months negative", negativeMonths)
	}
	return Indicator{
		ID:         Cash,
		Label:      "Cash Position",
		Value:      value,
		Level:      CashLevel(negativeMonths),
		NavigateTo: NavigateTo{Tab: "cash-flow", ScrollTo: "ending-cash"},
	}
}
