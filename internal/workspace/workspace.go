// Package workspace binds one plan to the API client, the shared cache, an
// edit session and a Guardian watcher, and runs the edit to save to
// recompute loop for it.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/KatTate/katalyst-franchise-planner/internal/api"
	"github.com/KatTate/katalyst-franchise-planner/internal/cache"
	"github.com/KatTate/katalyst-franchise-planner/internal/completeness"
	"github.com/KatTate/katalyst-franchise-planner/internal/editsession"
	"github.com/KatTate/katalyst-franchise-planner/internal/engine"
	"github.com/KatTate/katalyst-franchise-planner/internal/guardian"
	"github.com/KatTate/katalyst-franchise-planner/internal/optimistic"
	"github.com/KatTate/katalyst-franchise-planner/internal/plan"
	"github.com/KatTate/katalyst-franchise-planner/internal/scenario"
	"go.uber.org/zap"
)

// ErrNotLoaded is returned when the plan is not in the cache.
var ErrNotLoaded = errors.New("plan is not loaded")

// Backend is the subset of the plan API a workspace needs. *api.Client
// implements it.
type Backend interface {
	GetPlan(ctx context.Context, planID string, opts api.RequestOptions) (plan.Plan, error)
	PatchPlan(ctx context.Context, planID string, patch api.PlanPatch, opts api.RequestOptions) (plan.Plan, error)
	GetOutputs(ctx context.Context, planID string, opts api.RequestOptions) (engine.Output, error)
	GetScenarios(ctx context.Context, planID string, opts api.RequestOptions) (scenario.Outputs, error)
	PutStartupCosts(ctx context.Context, planID string, items []plan.StartupCostLineItem, opts api.RequestOptions) ([]plan.StartupCostLineItem, error)
	ResetStartupCosts(ctx context.Context, planID string, opts api.RequestOptions) ([]plan.StartupCostLineItem, error)
}

var _ Backend = (*api.Client)(nil)

// Options configures a workspace.
type Options struct {
	Logger *zap.Logger
	// Request is sent with every API call.
	Request api.RequestOptions
	// Cache is shared between workspaces; a private one is created when nil.
	Cache *cache.Cache
	// Watcher options, e.g. guardian.WithDebounce.
	Watcher []guardian.WatcherOption
	Now     func() time.Time
}

// Snapshot is the derived state of the plan after a Refresh.
type Snapshot struct {
	Guardian     guardian.State                 `json:"guardian"`
	Completeness int                            `json:"completeness"`
	ButtonLabel  string                         `json:"buttonLabel"`
	Sections     []completeness.SectionProgress `json:"sections"`
	Pulsing      []guardian.IndicatorID         `json:"pulsing"`
}

// Workspace owns the client-side state of one plan.
type Workspace struct {
	planID  string
	backend Backend
	request api.RequestOptions
	logger  *zap.Logger
	now     func() time.Time

	cache   *cache.Cache
	sync    *optimistic.Client
	watcher *guardian.Watcher
	session *editsession.Session

	saving atomic.Int32
}

// Open loads planID into the cache and returns its workspace.
func Open(ctx context.Context, backend Backend, planID string, opts Options) (*Workspace, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Cache == nil {
		opts.Cache = cache.New(opts.Logger)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	w := &Workspace{
		planID:  planID,
		backend: backend,
		request: opts.Request,
		logger:  opts.Logger,
		now:     opts.Now,
		cache:   opts.Cache,
		sync:    optimistic.NewClient(opts.Cache, opts.Logger),
	}
	watcherOpts := append([]guardian.WatcherOption{guardian.WithLogger(opts.Logger)}, opts.Watcher...)
	w.watcher = guardian.NewWatcher(watcherOpts...)
	w.session = editsession.New(w.currentInputs, w.SaveInputs,
		editsession.WithSavingCheck(w.Saving),
		editsession.WithNow(opts.Now),
		editsession.WithLogger(opts.Logger),
	)

	p, err := cache.FetchAs(ctx, w.cache, cache.PlanKey(planID), func(ctx context.Context) (plan.Plan, error) {
		return backend.GetPlan(ctx, planID, w.request)
	})
	if err != nil {
		w.watcher.Dispose()
		return nil, fmt.Errorf("loading plan %s: %w", planID, err)
	}
	if _, ok := w.cache.Get(cache.StartupCostsKey(planID)); !ok {
		w.cache.Set(cache.StartupCostsKey(planID), plan.CloneStartupCosts(p.StartupCosts))
	}

	w.logger.Info("workspace opened",
		zap.String("op", "workspace.Open"),
		zap.String("plan", planID),
		zap.String("role", string(w.request.Role)),
		zap.Bool("demo", w.request.DemoMode),
	)
	return w, nil
}

// PlanID returns the id of the bound plan.
func (w *Workspace) PlanID() string { return w.planID }

// Plan returns the cached plan, optimistic edits included. Its startup
// costs come from the startup cost entry, which is the only one their
// saves write.
func (w *Workspace) Plan() (plan.Plan, bool) {
	p, ok := cache.GetAs[plan.Plan](w.cache, cache.PlanKey(w.planID))
	if !ok {
		return p, false
	}
	if items, ok := cache.GetAs[[]plan.StartupCostLineItem](w.cache, cache.StartupCostsKey(w.planID)); ok {
		p.StartupCosts = plan.CloneStartupCosts(items)
	}
	return p, true
}

// StartupCosts returns the cached startup cost list.
func (w *Workspace) StartupCosts() []plan.StartupCostLineItem {
	items, ok := cache.GetAs[[]plan.StartupCostLineItem](w.cache, cache.StartupCostsKey(w.planID))
	if !ok {
		if p, ok := cache.GetAs[plan.Plan](w.cache, cache.PlanKey(w.planID)); ok {
			return p.StartupCosts
		}
	}
	return items
}

// Saving reports whether a write is in flight.
func (w *Workspace) Saving() bool { return w.saving.Load() > 0 }

// Edit returns the plan's field edit session. Its saves go through SaveInputs.
func (w *Workspace) Edit() *editsession.Session { return w.session }

func (w *Workspace) currentInputs() plan.FinancialInputs {
	p, _ := w.Plan()
	return p.FinancialInputs
}

func (w *Workspace) derivedKeys() []cache.Key {
	return []cache.Key{cache.OutputsKey(w.planID), cache.ScenariosKey(w.planID)}
}

// SaveInputs replaces the plan's input document. The new document is visible
// through Plan immediately and is rolled back if the server rejects it.
func (w *Workspace) SaveInputs(ctx context.Context, inputs plan.FinancialInputs) error {
	current, ok := w.Plan()
	if !ok {
		return ErrNotLoaded
	}
	w.saving.Add(1)
	defer w.saving.Add(-1)

	optimisticPlan := current
	optimisticPlan.FinancialInputs = inputs.Clone()

	_, err := optimistic.Mutate(ctx, w.sync, optimistic.Mutation[plan.Plan]{
		Key:   cache.PlanKey(w.planID),
		Value: optimisticPlan,
		Commit: func(ctx context.Context) (plan.Plan, error) {
			return w.backend.PatchPlan(ctx, w.planID, api.PlanPatch{FinancialInputs: &inputs}, w.request)
		},
		Invalidates: w.derivedKeys(),
	})
	return err
}

// SaveStartupCosts replaces the startup cost list.
func (w *Workspace) SaveStartupCosts(ctx context.Context, items []plan.StartupCostLineItem) error {
	return w.mutateStartupCosts(ctx, plan.CloneStartupCosts(items), func(ctx context.Context) ([]plan.StartupCostLineItem, error) {
		return w.backend.PutStartupCosts(ctx, w.planID, items, w.request)
	})
}

// ResetStartupCosts restores the brand's default startup costs. The brand
// list lives on the server, so the current list stays on screen until the
// server answers.
func (w *Workspace) ResetStartupCosts(ctx context.Context) error {
	return w.mutateStartupCosts(ctx, plan.CloneStartupCosts(w.StartupCosts()), func(ctx context.Context) ([]plan.StartupCostLineItem, error) {
		return w.backend.ResetStartupCosts(ctx, w.planID, w.request)
	})
}

func (w *Workspace) mutateStartupCosts(ctx context.Context, value []plan.StartupCostLineItem, commit func(context.Context) ([]plan.StartupCostLineItem, error)) error {
	w.saving.Add(1)
	defer w.saving.Add(-1)

	_, err := optimistic.Mutate(ctx, w.sync, optimistic.Mutation[[]plan.StartupCostLineItem]{
		Key:         cache.StartupCostsKey(w.planID),
		Value:       value,
		Commit:      commit,
		Invalidates: w.derivedKeys(),
	})
	return err
}

// Outputs returns the plan's projection, fetching it when missing or stale.
func (w *Workspace) Outputs(ctx context.Context) (engine.Output, error) {
	return cache.FetchAs(ctx, w.cache, cache.OutputsKey(w.planID), func(ctx context.Context) (engine.Output, error) {
		return w.backend.GetOutputs(ctx, w.planID, w.request)
	})
}

// Scenarios returns the three scenario projections as one unit.
func (w *Workspace) Scenarios(ctx context.Context) (scenario.Outputs, error) {
	return cache.FetchAs(ctx, w.cache, cache.ScenariosKey(w.planID), func(ctx context.Context) (scenario.Outputs, error) {
		return w.backend.GetScenarios(ctx, w.planID, w.request)
	})
}

// Refresh recomputes Guardian and completeness from the cached plan and the
// current outputs, and feeds the new Guardian state to the watcher.
func (w *Workspace) Refresh(ctx context.Context) (Snapshot, error) {
	p, ok := w.Plan()
	if !ok {
		return Snapshot{}, ErrNotLoaded
	}
	out, err := w.Outputs(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("fetching outputs: %w", err)
	}

	costs := w.StartupCosts()
	state := guardian.ComputeState(out, p.StartDate, &p.FinancialInputs, costs, guardian.WithNow(w.now))
	w.watcher.Observe(state)

	pct := completeness.ComputeCompleteness(p.FinancialInputs, len(costs))
	snap := Snapshot{
		Guardian:     state,
		Completeness: pct,
		ButtonLabel:  completeness.GenerateButtonLabel(pct),
		Sections:     completeness.ComputeSectionProgress(p.FinancialInputs),
		Pulsing:      w.watcher.Pulsing(),
	}
	w.logger.Debug("workspace refreshed",
		zap.String("op", "workspace.Refresh"),
		zap.String("plan", w.planID),
		zap.Int("completeness", pct),
		zap.Bool("allDefaults", state.AllDefaults),
	)
	return snap, nil
}

// Watcher returns the Guardian change watcher.
func (w *Workspace) Watcher() *guardian.Watcher { return w.watcher }

// Close stops the watcher and abandons in-flight fetches of derived state.
func (w *Workspace) Close() {
	w.watcher.Dispose()
	for _, key := range w.derivedKeys() {
		w.cache.CancelFetch(key)
	}
}
