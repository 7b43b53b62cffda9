// Package scenario derives the base, conservative and optimistic variants of
// a plan's projection and gives each a fixed presentation identity.
package scenario

import (
	"context"
	"fmt"

	"github.com/KatTate/katalyst-franchise-planner/internal/engine"
	"github.com/KatTate/katalyst-franchise-planner/internal/plan"
	"go.uber.org/zap"
)

// Key identifies a scenario.
type Key string

const (
	Base         Key = "base"
	Conservative Key = "conservative"
	Optimistic   Key = "optimistic"
)

// Identity is the label and dot color every view uses for a scenario.
type Identity struct {
	Key      Key    `json:"key"`
	Label    string `json:"label"`
	DotColor string `json:"dotColor"`
}

// Order is the enumeration order wherever scenarios appear together.
var Order = []Key{Base, Conservative, Optimistic}

var identities = map[Key]Identity{
	Base:         {Key: Base, Label: "Base Case", DotColor: "#3B82F6"},
	Conservative: {Key: Conservative, Label: "Conservative", DotColor: "#F59E0B"},
	Optimistic:   {Key: Optimistic, Label: "Optimistic", DotColor: "#10B981"},
}

// Adjustments are the parameter changes sent to the projector. The engine
// owns what they do to the numbers; conservative is documented as 15% lower
// revenue with higher costs and optimistic as the inverse.
var Adjustments = map[Key]engine.Adjustment{
	Base:         engine.Unadjusted,
	Conservative: {Name: string(Conservative), RevenueMultiplier: 0.85, CostMultiplier: 1.10},
	Optimistic:   {Name: string(Optimistic), RevenueMultiplier: 1.15, CostMultiplier: 0.90},
}

// IdentityOf returns the fixed identity of a scenario.
func IdentityOf(key Key) Identity {
	return identities[key]
}

// Identities returns every identity in enumeration order.
func Identities() []Identity {
	out := make([]Identity, 0, len(Order))
	for _, key := range Order {
		out = append(out, identities[key])
	}
	return out
}

// Outputs holds the three projections, always computed together.
type Outputs struct {
	Base         engine.Output `json:"base"`
	Conservative engine.Output `json:"conservative"`
	Optimistic   engine.Output `json:"optimistic"`
}

// Entry is one scenario with its identity.
type Entry struct {
	Identity Identity
	Output   engine.Output
}

// Get returns the projection of one scenario.
func (o *Outputs) Get(key Key) *engine.Output {
	switch key {
	case Base:
		return &o.Base
	case Conservative:
		return &o.Conservative
	case Optimistic:
		return &o.Optimistic
	}
	return nil
}

// Entries returns the three scenarios in enumeration order.
func (o Outputs) Entries() []Entry {
	entries := make([]Entry, 0, len(Order))
	for _, key := range Order {
		entries = append(entries, Entry{Identity: identities[key], Output: *o.Get(key)})
	}
	return entries
}

// Each calls fn for every scenario in enumeration order.
func (o Outputs) Each(fn func(Identity, engine.Output)) {
	for _, e := range o.Entries() {
		fn(e.Identity, e.Output)
	}
}

// Derive projects the plan under all three adjustments.
func Derive(ctx context.Context, logger *zap.Logger, projector engine.Projector, p plan.Plan) (Outputs, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var outputs Outputs
	for _, key := range Order {
		out, err := projector.Project(ctx, p, Adjustments[key])
		if err != nil {
			return Outputs{}, fmt.Errorf("projecting %s scenario: %w", key, err)
		}
		*outputs.Get(key) = out
	}

	logger.Debug("derived scenarios",
		zap.String("op", "scenario.Derive"),
		zap.String("plan", p.ID),
	)
	return outputs, nil
}

// ComparisonView tracks whether all scenarios or only the base are shown.
// Toggling never recomputes the outputs it was built from.
type ComparisonView struct {
	outputs Outputs
	active  bool
}

// NewComparisonView wraps outputs with comparison mode off.
func NewComparisonView(outputs Outputs) *ComparisonView {
	return &ComparisonView{outputs: outputs}
}

// Active reports whether comparison mode is on.
func (v *ComparisonView) Active() bool {
	return v.active
}

// SetActive switches comparison mode.
func (v *ComparisonView) SetActive(active bool) {
	v.active = active
}

// Toggle flips comparison mode and returns the new state.
func (v *ComparisonView) Toggle() bool {
	v.active = !v.active
	return v.active
}

// Visible returns the base scenario alone, or all three in order when
// comparison mode is on.
func (v *ComparisonView) Visible() []Entry {
	if !v.active {
		return []Entry{{Identity: identities[Base], Output: v.outputs.Base}}
	}
	return v.outputs.Entries()
}
