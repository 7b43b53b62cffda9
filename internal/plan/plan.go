package plan

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// StartupCostLineItem is one startup cost, persisted separately from the
// input document. Amount is in cents.
type StartupCostLineItem struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Amount   int64  `json:"amount"`
	IsCustom bool   `json:"isCustom"`
}

// Plan is a franchisee's saved inputs and startup costs for one location.
type Plan struct {
	ID              string                `json:"id"`
	Name            string                `json:"name"`
	BrandID         string                `json:"brandId"`
	StartDate       *time.Time            `json:"startDate,omitempty"`
	FinancialInputs FinancialInputs       `json:"financialInputs"`
	StartupCosts    []StartupCostLineItem `json:"startupCosts"`
	CreatedAt       time.Time             `json:"createdAt"`
	UpdatedAt       time.Time             `json:"updatedAt"`
}

// AnyCustomStartupCost reports whether any line item was customized.
func AnyCustomStartupCost(items []StartupCostLineItem) bool {
	for _, item := range items {
		if item.IsCustom {
			return true
		}
	}
	return false
}

// TotalStartupCosts sums the line items in cents.
func TotalStartupCosts(items []StartupCostLineItem) int64 {
	var total int64
	for _, item := range items {
		total += item.Amount
	}
	return total
}

// CloneStartupCosts copies a line item slice.
func CloneStartupCosts(items []StartupCostLineItem) []StartupCostLineItem {
	if items == nil {
		return nil
	}
	return append([]StartupCostLineItem(nil), items...)
}

// BrandDefaults are the values a brand seeds every new plan with.
type BrandDefaults struct {
	Fields                  map[Category]map[string]float64
	FacilitiesDecomposition []float64
	StartupCosts            []StartupCostLineItem
}

// NewFromBrandDefaults builds an input document whose every field carries
// brand-default provenance.
func NewFromBrandDefaults(defaults BrandDefaults) FinancialInputs {
	in := FinancialInputs{
		Revenue:        FieldGroup{},
		OperatingCosts: OperatingCosts{Fields: FieldGroup{}},
		Financing:      FieldGroup{},
		StartupCapital: FieldGroup{},
	}
	for category, values := range defaults.Fields {
		group := in.Group(category)
		if group == nil {
			continue
		}
		for name, value := range values {
			group[name] = NewDefaultField(value)
		}
	}
	if len(defaults.FacilitiesDecomposition) > 0 {
		list := make([]FinancialFieldValue, len(defaults.FacilitiesDecomposition))
		for i, value := range defaults.FacilitiesDecomposition {
			list[i] = NewDefaultField(value)
		}
		in.OperatingCosts.FacilitiesDecomposition = list
	}
	return in
}

// DefaultStartupCosts copies the brand's startup cost items, clearing the
// custom flag.
func (d BrandDefaults) DefaultStartupCosts() []StartupCostLineItem {
	items := CloneStartupCosts(d.StartupCosts)
	for i := range items {
		items[i].IsCustom = false
	}
	return items
}

// DecodeYAML reads a plan fixture. The YAML uses the same keys as the JSON
// wire format, so it is normalized through JSON to share the decoders.
func DecodeYAML(data []byte) (*Plan, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("error reading plan data, %w", err)
	}
	normalized, err := json.Marshal(normalizeYAML(raw))
	if err != nil {
		return nil, fmt.Errorf("unable to normalize plan data, %w", err)
	}
	var p Plan
	if err := json.Unmarshal(normalized, &p); err != nil {
		return nil, fmt.Errorf("unable to decode into plan, %w", err)
	}
	return &p, nil
}

// normalizeYAML converts YAML-specific values into JSON-encodable ones.
func normalizeYAML(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		for key, item := range v {
			v[key] = normalizeYAML(item)
		}
		return v
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, item := range v {
			out[fmt.Sprint(key)] = normalizeYAML(item)
		}
		return out
	case []interface{}:
		for i, item := range v {
			v[i] = normalizeYAML(item)
		}
		return v
	case time.Time:
		return v.Format(time.RFC3339)
	}
	return value
}
