package plan

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Category groups related input fields. The set is fixed.
type Category string

const (
	CategoryRevenue        Category = "revenue"
	CategoryOperatingCosts Category = "operatingCosts"
	CategoryFinancing      Category = "financing"
	CategoryStartupCapital Category = "startupCapital"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryRevenue,
	CategoryOperatingCosts,
	CategoryFinancing,
	CategoryStartupCapital,
}

// FacilitiesDecomposition is the list-valued field nested in operating costs.
const FacilitiesDecomposition = "facilitiesDecomposition"

// ErrUnknownField is returned when a FieldRef does not address a field.
var ErrUnknownField = errors.New("unknown field")

// FieldGroup maps field names to values within one category.
type FieldGroup map[string]FinancialFieldValue

// OperatingCosts holds the scalar operating cost fields plus the ordered
// facilities decomposition. On the wire the list sits inline with the scalars.
type OperatingCosts struct {
	Fields                  FieldGroup
	FacilitiesDecomposition []FinancialFieldValue
}

// MarshalJSON flattens the decomposition into the operating costs object.
func (o OperatingCosts) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(o.Fields)+1)
	for name, field := range o.Fields {
		out[name] = field
	}
	if o.FacilitiesDecomposition != nil {
		out[FacilitiesDecomposition] = o.FacilitiesDecomposition
	}
	return json.Marshal(out)
}

// UnmarshalJSON splits the decomposition list out of the operating costs object.
func (o *OperatingCosts) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	o.Fields = make(FieldGroup, len(raw))
	o.FacilitiesDecomposition = nil
	for name, msg := range raw {
		if name == FacilitiesDecomposition {
			if err := json.Unmarshal(msg, &o.FacilitiesDecomposition); err != nil {
				return fmt.Errorf("decoding %s: %w", FacilitiesDecomposition, err)
			}
			continue
		}
		var field FinancialFieldValue
		if err := json.Unmarshal(msg, &field); err != nil {
			return fmt.Errorf("decoding operatingCosts.%s: %w", name, err)
		}
		o.Fields[name] = field
	}
	return nil
}

// FinancialInputs is the full provenance-tracked input document of a plan.
// It is replaced wholesale on every save.
type FinancialInputs struct {
	Revenue        FieldGroup     `json:"revenue"`
	OperatingCosts OperatingCosts `json:"operatingCosts"`
	Financing      FieldGroup     `json:"financing"`
	StartupCapital FieldGroup     `json:"startupCapital"`
}

// FieldRef addresses one field. Index selects an element of a list field and
// is ignored otherwise.
type FieldRef struct {
	Category Category
	Name     string
	List     bool
	Index    int
}

// Ref addresses a scalar field.
func Ref(category Category, name string) FieldRef {
	return FieldRef{Category: category, Name: name}
}

// ListRef addresses one element of a list field.
func ListRef(category Category, name string, index int) FieldRef {
	return FieldRef{Category: category, Name: name, List: true, Index: index}
}

func (r FieldRef) String() string {
	if r.List {
		return fmt.Sprintf("%s.%s[%d]", r.Category, r.Name, r.Index)
	}
	return fmt.Sprintf("%s.%s", r.Category, r.Name)
}

// Group returns the scalar fields of a category, or nil for unknown categories.
func (in FinancialInputs) Group(category Category) FieldGroup {
	switch category {
	case CategoryRevenue:
		return in.Revenue
	case CategoryOperatingCosts:
		return in.OperatingCosts.Fields
	case CategoryFinancing:
		return in.Financing
	case CategoryStartupCapital:
		return in.StartupCapital
	}
	return nil
}

// List returns a list-valued field of a category.
func (in FinancialInputs) List(category Category, name string) []FinancialFieldValue {
	if category == CategoryOperatingCosts && name == FacilitiesDecomposition {
		return in.OperatingCosts.FacilitiesDecomposition
	}
	return nil
}

// Field looks up the value a ref points at.
func (in FinancialInputs) Field(ref FieldRef) (FinancialFieldValue, bool) {
	if ref.List {
		list := in.List(ref.Category, ref.Name)
		if ref.Index < 0 || ref.Index >= len(list) {
			return FinancialFieldValue{}, false
		}
		return list[ref.Index], true
	}
	group := in.Group(ref.Category)
	field, ok := group[ref.Name]
	return field, ok
}

// WithField returns a copy of the document with the addressed field replaced.
// The receiver is left untouched.
func (in FinancialInputs) WithField(ref FieldRef, value FinancialFieldValue) (FinancialInputs, error) {
	if _, ok := in.Field(ref); !ok {
		return in, fmt.Errorf("%w: %s", ErrUnknownField, ref)
	}
	out := in.Clone()
	if ref.List {
		out.OperatingCosts.FacilitiesDecomposition[ref.Index] = value
		return out, nil
	}
	out.Group(ref.Category)[ref.Name] = value
	return out, nil
}

// Clone deep-copies the document.
func (in FinancialInputs) Clone() FinancialInputs {
	out := FinancialInputs{
		Revenue:        cloneGroup(in.Revenue),
		OperatingCosts: OperatingCosts{Fields: cloneGroup(in.OperatingCosts.Fields)},
		Financing:      cloneGroup(in.Financing),
		StartupCapital: cloneGroup(in.StartupCapital),
	}
	out.OperatingCosts.FacilitiesDecomposition = cloneList(in.OperatingCosts.FacilitiesDecomposition)
	return out
}

// AnyCustom reports whether any field or list element is a user override.
func (in FinancialInputs) AnyCustom() bool {
	for _, category := range Categories {
		for _, field := range in.Group(category) {
			if field.IsCustom() {
				return true
			}
		}
	}
	for _, field := range in.OperatingCosts.FacilitiesDecomposition {
		if field.IsCustom() {
			return true
		}
	}
	return false
}

// Value returns the current value of a scalar field, or fallback when absent.
func (in FinancialInputs) Value(category Category, name string, fallback float64) float64 {
	if field, ok := in.Group(category)[name]; ok {
		return field.CurrentValue
	}
	return fallback
}

func cloneGroup(group FieldGroup) FieldGroup {
	if group == nil {
		return FieldGroup{}
	}
	out := make(FieldGroup, len(group))
	for name, field := range group {
		out[name] = cloneField(field)
	}
	return out
}

func cloneList(list []FinancialFieldValue) []FinancialFieldValue {
	if list == nil {
		return nil
	}
	out := make([]FinancialFieldValue, len(list))
	for i, field := range list {
		out[i] = cloneField(field)
	}
	return out
}

func cloneField(field FinancialFieldValue) FinancialFieldValue {
	if field.LastModifiedAt != nil {
		ts := *field.LastModifiedAt
		field.LastModifiedAt = &ts
	}
	return field
}
