// Package cache is the process-scoped store of server-owned resources
// (plans, startup costs, projected outputs) keyed by resource type and plan.
package cache

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Resource types.
const (
	ResourcePlan         = "plan"
	ResourceStartupCosts = "startup-costs"
	ResourceOutputs      = "outputs"
	ResourceScenarios    = "scenarios"
)

// Key identifies one cached resource of one plan.
type Key struct {
	Resource string
	PlanID   string
}

func (k Key) String() string {
	return fmt.Sprintf("plans/%s/%s", k.PlanID, k.Resource)
}

// PlanKey is the key of a plan document.
func PlanKey(planID string) Key { return Key{Resource: ResourcePlan, PlanID: planID} }

// StartupCostsKey is the key of a plan's startup cost list.
func StartupCostsKey(planID string) Key { return Key{Resource: ResourceStartupCosts, PlanID: planID} }

// OutputsKey is the key of a plan's base projection.
func OutputsKey(planID string) Key { return Key{Resource: ResourceOutputs, PlanID: planID} }

// ScenariosKey is the key of a plan's three-scenario projection.
func ScenariosKey(planID string) Key { return Key{Resource: ResourceScenarios, PlanID: planID} }

// Entry is a point-in-time view of one key, used to snapshot and restore.
type Entry struct {
	Value   any
	Present bool
	Stale   bool
}

type inflight struct {
	gen    uint64
	cancel context.CancelFunc
}

// Cache holds resource values. Reads of stale or missing keys go back to the
// fetcher; concurrent fetches of one key share a single call.
type Cache struct {
	mu       sync.Mutex
	entries  map[Key]*Entry
	gens     map[Key]uint64
	inflight map[Key]*inflight
	group    singleflight.Group
	logger   *zap.Logger
}

// New creates an empty cache.
func New(logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		entries:  make(map[Key]*Entry),
		gens:     make(map[Key]uint64),
		inflight: make(map[Key]*inflight),
		logger:   logger,
	}
}

// Get returns the cached value, stale or not.
func (c *Cache) Get(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return e.Value, true
}

// Set stores a fresh value.
func (c *Cache) Set(key Key, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &Entry{Value: value, Present: true}
}

// Delete drops a key.
func (c *Cache) Delete(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Invalidate marks a key stale so the next Fetch recomputes it. A fetch of
// the key already in flight is abandoned, since it may have been computed
// from the inputs that caused the invalidation. Only the given key is
// touched.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.Stale = true
	}
	c.abandonLocked(key)
	c.logger.Debug("cache entry invalidated",
		zap.String("op", "cache.Invalidate"),
		zap.String("key", key.String()),
	)
}

// IsStale reports whether a present key has been invalidated.
func (c *Cache) IsStale(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return ok && e.Stale
}

// Snapshot captures a key, including whether it was absent.
func (c *Cache) Snapshot(key Key) Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return *e
	}
	return Entry{}
}

// Restore puts a key back exactly as a Snapshot saw it.
func (c *Cache) Restore(key Key, snap Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !snap.Present {
		delete(c.entries, key)
		return
	}
	e := snap
	c.entries[key] = &e
}

// CancelFetch aborts any in-flight fetch of key. Its result, if it still
// arrives, is not stored.
func (c *Cache) CancelFetch(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.abandonLocked(key)
}

// abandonLocked bumps the key's generation so a running fetch is not stored,
// and cancels it. c.mu must be held.
func (c *Cache) abandonLocked(key Key) {
	c.gens[key]++
	if f, ok := c.inflight[key]; ok {
		f.cancel()
		delete(c.inflight, key)
	}
	c.group.Forget(key.String())
}

// Fetch returns the fresh cached value of key, or calls fetch and stores its
// result. The shared fetch is cancelled only by CancelFetch; a caller whose
// ctx ends stops waiting without affecting other callers.
func (c *Cache) Fetch(ctx context.Context, key Key, fetch func(ctx context.Context) (any, error)) (any, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && !e.Stale {
		c.mu.Unlock()
		return e.Value, nil
	}
	c.mu.Unlock()

	ch := c.group.DoChan(key.String(), func() (any, error) {
		fetchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		defer cancel()

		c.mu.Lock()
		gen := c.gens[key]
		c.inflight[key] = &inflight{gen: gen, cancel: cancel}
		c.mu.Unlock()

		value, err := fetch(fetchCtx)

		c.mu.Lock()
		defer c.mu.Unlock()
		if f, ok := c.inflight[key]; ok && f.gen == gen {
			delete(c.inflight, key)
		}
		if c.gens[key] != gen {
			c.logger.Debug("discarding result of cancelled fetch",
				zap.String("op", "cache.Fetch"),
				zap.String("key", key.String()),
			)
			if err == nil {
				err = context.Canceled
			}
			return nil, err
		}
		if err != nil {
			return nil, err
		}
		c.entries[key] = &Entry{Value: value, Present: true}
		return value, nil
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetAs is Get with a type assertion.
func GetAs[T any](c *Cache, key Key) (T, bool) {
	var zero T
	v, ok := c.Get(key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	return typed, ok
}

// FetchAs is Fetch with a typed fetcher.
func FetchAs[T any](ctx context.Context, c *Cache, key Key, fetch func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	v, err := c.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache entry %s holds %T", key, v)
	}
	return typed, nil
}
