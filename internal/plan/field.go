// Package plan defines a franchisee's financial plan: the provenance-tracked
// input document, startup cost line items and the rules for editing them.
package plan

import "time"

// Source records where a field's current value came from.
type Source string

const (
	// SourceBrandDefault marks a value seeded from the brand's defaults.
	SourceBrandDefault Source = "brand_default"
	// SourceUserOverride marks a value the user explicitly entered.
	SourceUserOverride Source = "user_override"
)

// FinancialFieldValue is one editable numeric input. Currency values are
// stored in cents, percentages as fractions and integers as whole numbers.
//
// Provenance is explicit: a field typed back to its default value stays a
// user override until it is reset.
type FinancialFieldValue struct {
	CurrentValue   float64    `json:"currentValue"`
	DefaultValue   float64    `json:"defaultValue"`
	Source         Source     `json:"source"`
	LastModifiedAt *time.Time `json:"lastModifiedAt"`
}

// IsCustom reports whether the value departs from brand-default provenance.
func (f FinancialFieldValue) IsCustom() bool {
	return f.Source != SourceBrandDefault
}

// NewDefaultField returns a field seeded from a brand default.
func NewDefaultField(value float64) FinancialFieldValue {
	return FinancialFieldValue{
		CurrentValue: value,
		DefaultValue: value,
		Source:       SourceBrandDefault,
	}
}

// UpdateFieldValue records an explicit user edit. The result is always a user
// override, even when newValue equals the default.
func UpdateFieldValue(field FinancialFieldValue, newValue float64, at time.Time) FinancialFieldValue {
	ts := at
	field.CurrentValue = newValue
	field.Source = SourceUserOverride
	field.LastModifiedAt = &ts
	return field
}

// ResetFieldToDefault restores the brand default value and provenance.
func ResetFieldToDefault(field FinancialFieldValue, at time.Time) FinancialFieldValue {
	ts := at
	field.CurrentValue = field.DefaultValue
	field.Source = SourceBrandDefault
	field.LastModifiedAt = &ts
	return field
}
