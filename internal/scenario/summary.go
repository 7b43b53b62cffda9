package scenario

// Summary is the headline comparison row for one scenario.
type Summary struct {
	Identity           Identity `json:"identity"`
	BreakEvenMonth     *int     `json:"breakEvenMonth"`
	FiveYearROIPct     float64  `json:"fiveYearROIPct"`
	FinalPreTaxIncome  float64  `json:"finalPreTaxIncome"`
	LowestEndingCash   float64  `json:"lowestEndingCash"`
	NegativeCashMonths int      `json:"negativeCashMonths"`
}

// Summarize builds one row per scenario in enumeration order.
func Summarize(outputs Outputs) []Summary {
	entries := outputs.Entries()
	rows := make([]Summary, 0, len(entries))
	for _, entry := range entries {
		row := Summary{
			Identity:           entry.Identity,
			BreakEvenMonth:     entry.Output.ROIMetrics.BreakEvenMonth,
			FiveYearROIPct:     entry.Output.ROIMetrics.FiveYearROIPct,
			LowestEndingCash:   entry.Output.LowestEndingCash(),
			NegativeCashMonths: entry.Output.NegativeCashMonths(),
		}
		if n := len(entry.Output.AnnualSummaries); n > 0 {
			row.FinalPreTaxIncome = entry.Output.AnnualSummaries[n-1].PreTaxIncome
		}
		rows = append(rows, row)
	}
	return rows
}
