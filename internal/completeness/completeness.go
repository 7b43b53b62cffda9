// Package completeness measures how much of a plan the franchisee has
// customized away from brand defaults.
package completeness

import (
	"github.com/KatTate/katalyst-franchise-planner/internal/fields"
	"github.com/KatTate/katalyst-franchise-planner/internal/plan"
	"github.com/KatTate/katalyst-franchise-planner/pkg/constants"
	"github.com/KatTate/katalyst-franchise-planner/pkg/mathutil"
)

// SectionProgress is the edited/total count of one category.
type SectionProgress struct {
	Category plan.Category `json:"category"`
	Label    string        `json:"label"`
	Edited   int           `json:"edited"`
	Total    int           `json:"total"`
}

// ComputeSectionProgress counts edited fields per category. Totals come from
// the field registry, so fields missing from the document count as unedited.
// A list field counts as edited when its first element is a user override.
func ComputeSectionProgress(inputs plan.FinancialInputs) []SectionProgress {
	sections := fields.Sections()
	progress := make([]SectionProgress, 0, len(sections))
	for _, section := range sections {
		sp := SectionProgress{
			Category: section.Category,
			Label:    section.Label,
			Total:    len(section.Fields),
		}
		for _, meta := range section.Fields {
			if isEdited(inputs, section.Category, meta) {
				sp.Edited++
			}
		}
		progress = append(progress, sp)
	}
	return progress
}

// ComputeCompleteness returns the 0-100 completeness percentage. Every
// startup cost line item counts as satisfied.
func ComputeCompleteness(inputs plan.FinancialInputs, startupCostCount int) int {
	edited, total := 0, 0
	for _, sp := range ComputeSectionProgress(inputs) {
		edited += sp.Edited
		total += sp.Total
	}
	if total == 0 {
		return 0
	}
	if startupCostCount > 0 {
		edited += startupCostCount
		total += startupCostCount
	}
	return mathutil.Percentage(edited, total)
}

// HasAnyUserEdits reports whether any registered field is customized.
func HasAnyUserEdits(inputs plan.FinancialInputs) bool {
	for _, section := range fields.Sections() {
		for _, meta := range section.Fields {
			if isEdited(inputs, section.Category, meta) {
				return true
			}
		}
	}
	return false
}

// GenerateButtonLabel names the document the plan is ready to produce.
func GenerateButtonLabel(pct int) string {
	switch {
	case pct < constants.PackageTierMinPct:
		return "Generate Draft"
	case pct <= constants.PackageTierMaxPct:
		return "Generate Package"
	default:
		return "Generate Lender Package"
	}
}

func isEdited(inputs plan.FinancialInputs, category plan.Category, meta fields.Metadata) bool {
	if meta.List {
		list := inputs.List(category, meta.Name)
		return len(list) > 0 && list[0].IsCustom()
	}
	field, ok := inputs.Group(category)[meta.Name]
	return ok && field.IsCustom()
}
