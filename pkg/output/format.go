// Package output provides utilities for formatting and displaying plan evaluations.
package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/KatTate/katalyst-franchise-planner/internal/completeness"
	"github.com/KatTate/katalyst-franchise-planner/internal/engine"
	"github.com/KatTate/katalyst-franchise-planner/internal/guardian"
	"github.com/KatTate/katalyst-franchise-planner/internal/plan"
	"github.com/KatTate/katalyst-franchise-planner/internal/scenario"
	"github.com/KatTate/katalyst-franchise-planner/pkg/constants"
	"github.com/KatTate/katalyst-franchise-planner/pkg/format"
	"gopkg.in/yaml.v3"
)

// Report is everything an evaluation shows about one plan.
type Report struct {
	PlanID       string                         `json:"planId"`
	PlanName     string                         `json:"planName"`
	Guardian     guardian.State                 `json:"guardian"`
	Completeness int                            `json:"completeness"`
	ButtonLabel  string                         `json:"buttonLabel"`
	Sections     []completeness.SectionProgress `json:"sections"`
	Scenarios    []scenario.Summary             `json:"scenarios"`
	Annual       []engine.AnnualSummary         `json:"annual"`
}

// NewReport evaluates a plan from its base projection and scenario set.
func NewReport(p plan.Plan, base engine.Output, scenarios scenario.Outputs, now func() time.Time) Report {
	pct := completeness.ComputeCompleteness(p.FinancialInputs, len(p.StartupCosts))
	return Report{
		PlanID:       p.ID,
		PlanName:     p.Name,
		Guardian:     guardian.ComputeState(base, p.StartDate, &p.FinancialInputs, p.StartupCosts, guardian.WithNow(now)),
		Completeness: pct,
		ButtonLabel:  completeness.GenerateButtonLabel(pct),
		Sections:     completeness.ComputeSectionProgress(p.FinancialInputs),
		Scenarios:    scenario.Summarize(scenarios),
		Annual:       base.AnnualSummaries,
	}
}

// Write renders the report in the named format.
func Write(w io.Writer, outputFormat string, r Report) error {
	switch outputFormat {
	case constants.OutputFormatPretty, "":
		return PrettyFormat(w, r)
	case constants.OutputFormatCSV:
		return CsvFormat(w, r)
	case constants.OutputFormatYAML:
		return YAMLFormat(w, r)
	}
	return fmt.Errorf("unknown output format %q", outputFormat)
}

// PrettyFormat outputs a human-readable rather than machine-readable report.
func PrettyFormat(w io.Writer, r Report) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "--- Plan %s ---\n", r.PlanName)
	fmt.Fprintf(&buf, "Completeness: %d%% (%s)\n", r.Completeness, r.ButtonLabel)
	if r.Guardian.AllDefaults {
		fmt.Fprintf(&buf, "All values are brand defaults\n")
	}
	fmt.Fprintf(&buf, "\n")

	tw := tabwriter.NewWriter(&buf, 0, 0, 1, ' ', 0)
	fmt.Fprintf(tw, "Section\t| Edited\n")
	fmt.Fprintf(tw, "_______\t| ______\n")
	for _, sp := range r.Sections {
		fmt.Fprintf(tw, "%s\t| %d/%d\n", sp.Label, sp.Edited, sp.Total)
	}
	fmt.Fprintf(tw, "\n")

	fmt.Fprintf(tw, "Indicator\t| Level\t| Value\n")
	fmt.Fprintf(tw, "_________\t| _____\t| _____\n")
	for _, ind := range r.Guardian.Indicators {
		value := ind.Value
		if ind.Subtitle != "" {
			value += " (" + ind.Subtitle + ")"
		}
		fmt.Fprintf(tw, "%s\t| %s\t| %s\n", ind.Label, ind.Level, value)
	}
	fmt.Fprintf(tw, "\n")

	fmt.Fprintf(tw, "Scenario\t| Break-even\t| 5-Year ROI\t| Final Pre-Tax Income\t| Lowest Cash\n")
	fmt.Fprintf(tw, "________\t| __________\t| __________\t| ____________________\t| ___________\n")
	for _, s := range r.Scenarios {
		fmt.Fprintf(tw, "%s\t| %s\t| %s\t| %s\t| %s\n",
			s.Identity.Label,
			breakEvenText(s.BreakEvenMonth),
			format.PercentageCompact(s.FiveYearROIPct),
			format.CurrencyDelta(s.FinalPreTaxIncome),
			format.CurrencyDelta(s.LowestEndingCash),
		)
	}
	if len(r.Annual) > 0 {
		fmt.Fprintf(tw, "\n")
		fmt.Fprintf(tw, "Year\t| Revenue\t| Total Costs\t| Pre-Tax Income\n")
		fmt.Fprintf(tw, "____\t| _______\t| ___________\t| ______________\n")
		for _, a := range r.Annual {
			fmt.Fprintf(tw, "%d\t| %s\t| %s\t| %s\n", a.Year,
				format.Currency(a.Revenue), format.Currency(a.TotalCosts), format.CurrencyDelta(a.PreTaxIncome))
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := w.Write(buf.Bytes())
	return err
}

// CsvFormat outputs the scenario comparison in comma-separated value format.
// Amounts are in dollars.
func CsvFormat(w io.Writer, r Report) error {
	cw := csv.NewWriter(w)
	records := [][]string{{"scenario", "break-even month", "five-year roi", "final pre-tax income", "lowest ending cash", "negative cash months"}}
	for _, s := range r.Scenarios {
		breakEven := ""
		if s.BreakEvenMonth != nil {
			breakEven = strconv.Itoa(*s.BreakEvenMonth)
		}
		records = append(records, []string{
			string(s.Identity.Key),
			breakEven,
			strconv.FormatFloat(s.FiveYearROIPct, 'f', 4, 64),
			dollars(s.FinalPreTaxIncome),
			dollars(s.LowestEndingCash),
			strconv.Itoa(s.NegativeCashMonths),
		})
	}
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	return nil
}

// YAMLFormat exports the report as YAML with the same keys as the JSON API.
func YAMLFormat(w io.Writer, r Report) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("normalizing report: %w", err)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("writing yaml: %w", err)
	}
	return enc.Close()
}

func breakEvenText(month *int) string {
	if month == nil {
		return "Not reached"
	}
	return fmt.Sprintf("Month %d", *month)
}

func dollars(cents float64) string {
	return strings.TrimSuffix(strconv.FormatFloat(cents/constants.CentsPerDollar, 'f', 2, 64), ".00")
}
