package guardian

import (
	"sync"
	"time"

	"github.com/KatTate/katalyst-franchise-planner/pkg/constants"
	"go.uber.org/zap"
)

// Timer is a scheduled callback that can be stopped.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Watcher turns successive Guardian states into pulse signals. A level change
// arms a debounce window; changes inside the window coalesce, and when it
// closes the changed indicators pulse for a fixed duration.
//
// Dispose must be called when the owner goes away. After Dispose no callback
// runs and no timer is left scheduled.
type Watcher struct {
	mu       sync.Mutex
	clock    Clock
	debounce time.Duration
	pulse    time.Duration
	logger   *zap.Logger
	onPulse  func([]IndicatorID)

	previous map[IndicatorID]Level
	pending  map[IndicatorID]struct{}
	pulsing  map[IndicatorID]struct{}

	debounceTimer Timer
	debounceSeq   uint64
	pulseTimer    Timer
	pulseSeq      uint64
	disposed      bool
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(clock Clock) WatcherOption {
	return func(w *Watcher) { w.clock = clock }
}

// WithDebounce sets the coalescing window.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// WithPulse sets how long changed indicators stay pulsing.
func WithPulse(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.pulse = d }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = logger }
}

// WithOnPulse registers a callback invoked with the pulsing set when a pulse
// starts, and with nil when it clears. It runs without the watcher's lock.
func WithOnPulse(fn func([]IndicatorID)) WatcherOption {
	return func(w *Watcher) { w.onPulse = fn }
}

// NewWatcher creates a watcher with the default 300ms debounce and 650ms pulse.
func NewWatcher(opts ...WatcherOption) *Watcher {
	w := &Watcher{
		clock:    realClock{},
		debounce: constants.DefaultGuardianDebounce,
		pulse:    constants.DefaultGuardianPulse,
		previous: make(map[IndicatorID]Level),
		pending:  make(map[IndicatorID]struct{}),
		pulsing:  make(map[IndicatorID]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = zap.NewNop()
	}
	return w
}

// Observe records a new state. The first level seen for an indicator is a
// baseline and never pulses.
func (w *Watcher) Observe(state State) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.disposed {
		return
	}

	changed := false
	for _, ind := range state.Indicators {
		prev, seen := w.previous[ind.ID]
		w.previous[ind.ID] = ind.Level
		if seen && prev != ind.Level {
			w.pending[ind.ID] = struct{}{}
			changed = true
			w.logger.Debug("guardian level changed",
				zap.String("op", "guardian.Observe"),
				zap.String("indicator", string(ind.ID)),
				zap.String("from", string(prev)),
				zap.String("to", string(ind.Level)),
			)
		}
	}
	if !changed {
		return
	}

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceSeq++
	seq := w.debounceSeq
	w.debounceTimer = w.clock.AfterFunc(w.debounce, func() { w.fireDebounce(seq) })
}

func (w *Watcher) fireDebounce(seq uint64) {
	w.mu.Lock()
	if w.disposed || seq != w.debounceSeq || len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	for id := range w.pending {
		w.pulsing[id] = struct{}{}
	}
	w.pending = make(map[IndicatorID]struct{})
	w.debounceTimer = nil

	if w.pulseTimer != nil {
		w.pulseTimer.Stop()
	}
	w.pulseSeq++
	pulseSeq := w.pulseSeq
	w.pulseTimer = w.clock.AfterFunc(w.pulse, func() { w.firePulse(pulseSeq) })

	ids := w.pulsingLocked()
	cb := w.onPulse
	w.mu.Unlock()

	if cb != nil {
		cb(ids)
	}
}

func (w *Watcher) firePulse(seq uint64) {
	w.mu.Lock()
	if w.disposed || seq != w.pulseSeq {
		w.mu.Unlock()
		return
	}
	w.pulsing = make(map[IndicatorID]struct{})
	w.pulseTimer = nil
	cb := w.onPulse
	w.mu.Unlock()

	if cb != nil {
		cb(nil)
	}
}

// Pulsing returns the indicators currently highlighted, in display order.
func (w *Watcher) Pulsing() []IndicatorID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pulsingLocked()
}

// IsPulsing reports whether one indicator is highlighted.
func (w *Watcher) IsPulsing(id IndicatorID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.pulsing[id]
	return ok
}

// Dispose stops both timers and silences any callback already in flight.
func (w *Watcher) Dispose() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.disposed {
		return
	}
	w.disposed = true
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	if w.pulseTimer != nil {
		w.pulseTimer.Stop()
		w.pulseTimer = nil
	}
	w.pending = make(map[IndicatorID]struct{})
	w.pulsing = make(map[IndicatorID]struct{})
}

func (w *Watcher) pulsingLocked() []IndicatorID {
	if len(w.pulsing) == 0 {
		return nil
	}
	ids := make([]IndicatorID, 0, len(w.pulsing))
	for _, id := range Indicators {
		if _, ok := w.pulsing[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}
