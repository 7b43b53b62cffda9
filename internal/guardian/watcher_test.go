package guardian

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/KatTate/katalyst-franchise-planner/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward, firing due timers in deadline order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var due []*fakeTimer
		for _, t := range c.timers {
			if !t.stopped && !t.fired && !t.at.After(target) {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			c.now = target
			c.mu.Unlock()
			return
		}
		sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
		next := due[0]
		next.fired = true
		c.now = next.at
		c.mu.Unlock()
		next.fn()
	}
}

func (c *fakeClock) active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type pulseRecorder struct {
	mu     sync.Mutex
	events [][]IndicatorID
}

func (r *pulseRecorder) record(ids []IndicatorID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ids)
}

func (r *pulseRecorder) snapshot() [][]IndicatorID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]IndicatorID(nil), r.events...)
}

func stateWith(breakEven *int, roi float64, negativeMonths int) State {
	return ComputeState(testutil.NewOutput(
		testutil.WithBreakEven(breakEven),
		testutil.WithROI(roi),
		testutil.WithNegativeCashMonths(negativeMonths),
	), nil, nil, nil)
}

func newTestWatcher(clock *fakeClock, rec *pulseRecorder) *Watcher {
	return NewWatcher(WithClock(clock), WithOnPulse(rec.record))
}

func TestWatcher_FirstObservationIsBaseline(t *testing.T) {
	clock := newFakeClock()
	rec := &pulseRecorder{}
	w := newTestWatcher(clock, rec)
	defer w.Dispose()

	w.Observe(stateWith(testutil.IntPtr(12), 1.5, 0))
	clock.Advance(time.Second)

	assert.Empty(t, rec.snapshot())
	assert.Zero(t, clock.active())
}

func TestWatcher_PulsesAfterDebounce(t *testing.T) {
	clock := newFakeClock()
	rec := &pulseRecorder{}
	w := newTestWatcher(clock, rec)
	defer w.Dispose()

	w.Observe(stateWith(testutil.IntPtr(12), 1.5, 0))
	w.Observe(stateWith(testutil.IntPtr(24), 1.5, 0))

	clock.Advance(299 * time.Millisecond)
	assert.Empty(t, w.Pulsing(), "still inside the debounce window")

	clock.Advance(time.Millisecond)
	assert.Equal(t, []IndicatorID{BreakEven}, w.Pulsing())
	assert.True(t, w.IsPulsing(BreakEven))
	assert.False(t, w.IsPulsing(ROI))

	clock.Advance(649 * time.Millisecond)
	assert.Equal(t, []IndicatorID{BreakEven}, w.Pulsing())

	clock.Advance(time.Millisecond)
	assert.Empty(t, w.Pulsing())

	events := rec.snapshot()
	require.Len(t, events, 2)
	assert.Equal(t, []IndicatorID{BreakEven}, events[0])
	assert.Nil(t, events[1])
}

func TestWatcher_CoalescesRapidChanges(t *testing.T) {
	clock := newFakeClock()
	rec := &pulseRecorder{}
	w := newTestWatcher(clock, rec)
	defer w.Dispose()

	w.Observe(stateWith(testutil.IntPtr(12), 1.5, 0))
	w.Observe(stateWith(testutil.IntPtr(24), 1.5, 0))
	clock.Advance(200 * time.Millisecond)
	w.Observe(stateWith(testutil.IntPtr(24), 0.7, 0))
	clock.Advance(200 * time.Millisecond)
	w.Observe(stateWith(testutil.IntPtr(24), 0.7, 5))

	clock.Advance(299 * time.Millisecond)
	assert.Empty(t, rec.snapshot(), "each change re-arms the window")

	clock.Advance(time.Millisecond)
	events := rec.snapshot()
	require.Len(t, events, 1, "three rapid edits produce one pulse")
	assert.Equal(t, []IndicatorID{BreakEven, ROI, Cash}, events[0])
}

func TestWatcher_UnchangedLevelsDoNotPulse(t *testing.T) {
	clock := newFakeClock()
	rec := &pulseRecorder{}
	w := newTestWatcher(clock, rec)
	defer w.Dispose()

	w.Observe(stateWith(testutil.IntPtr(12), 1.5, 0))
	// Different values, same levels.
	w.Observe(stateWith(testutil.IntPtr(15), 2.0, 0))
	clock.Advance(time.Second)

	assert.Empty(t, rec.snapshot())
}

func TestWatcher_DisposeCancelsPendingDebounce(t *testing.T) {
	clock := newFakeClock()
	rec := &pulseRecorder{}
	w := newTestWatcher(clock, rec)

	w.Observe(stateWith(testutil.IntPtr(12), 1.5, 0))
	w.Observe(stateWith(nil, 1.5, 0))
	require.Equal(t, 1, clock.active())

	w.Dispose()
	assert.Zero(t, clock.active())

	clock.Advance(2 * time.Second)
	assert.Empty(t, rec.snapshot())

	w.Observe(stateWith(testutil.IntPtr(40), 0.1, 9))
	assert.Zero(t, clock.active(), "a disposed watcher schedules nothing")
}

func TestWatcher_DisposeDuringPulse(t *testing.T) {
	clock := newFakeClock()
	rec := &pulseRecorder{}
	w := newTestWatcher(clock, rec)

	w.Observe(stateWith(testutil.IntPtr(12), 1.5, 0))
	w.Observe(stateWith(testutil.IntPtr(12), 1.5, 2))
	clock.Advance(300 * time.Millisecond)
	require.Equal(t, []IndicatorID{Cash}, w.Pulsing())

	w.Dispose()
	assert.Empty(t, w.Pulsing())
	clock.Advance(time.Second)
	assert.Len(t, rec.snapshot(), 1, "no clear callback after dispose")
}

func TestWatcher_RealClockDisposeLeavesNothingRunning(t *testing.T) {
	defer goleak.VerifyNone(t)

	fired := make(chan []IndicatorID, 4)
	w := NewWatcher(
		WithDebounce(20*time.Millisecond),
		WithPulse(20*time.Millisecond),
		WithOnPulse(func(ids []IndicatorID) { fired <- ids }),
	)

	w.Observe(stateWith(testutil.IntPtr(12), 1.5, 0))
	w.Observe(stateWith(testutil.IntPtr(12), 0.2, 0))

	select {
	case ids := <-fired:
		assert.Equal(t, []IndicatorID{ROI}, ids)
	case <-time.After(2 * time.Second):
		t.Fatal("pulse never fired")
	}

	w.Observe(stateWith(testutil.IntPtr(12), 1.5, 0))
	w.Dispose()

	time.Sleep(80 * time.Millisecond)
	for {
		select {
		case ids := <-fired:
			// Only the clear of the first pulse may have raced ahead of Dispose.
			assert.Nil(t, ids)
		default:
			return
		}
	}
}
