// Package optimistic applies edits to the cache before the server confirms
// them, and rolls them back exactly when the server refuses.
package optimistic

import (
	"context"
	"fmt"
	"sync"

	"github.com/KatTate/katalyst-franchise-planner/internal/cache"
	"go.uber.org/zap"
)

// SyncError reports a mutation the server rejected. The cache has already
// been restored when it is returned.
type SyncError struct {
	Key cache.Key
	Err error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync %s: %v", e.Key, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// Mutation describes one optimistic write.
type Mutation[T any] struct {
	// Key is the cache entry the write replaces.
	Key cache.Key
	// Value is shown immediately.
	Value T
	// Commit persists Value and returns the server's version of it.
	Commit func(ctx context.Context) (T, error)
	// Invalidates lists derived entries that go stale on success.
	Invalidates []cache.Key
}

// Client serialises optimistic writes per key against a shared cache.
type Client struct {
	cache  *cache.Cache
	logger *zap.Logger

	mu    sync.Mutex
	seqs  map[cache.Key]uint64
	chain map[cache.Key]*chain
}

// chain tracks the mutations of one key that overlap in time. confirmed is
// the newest value the server has accepted, starting from what the cache
// held before the first of them.
type chain struct {
	pending      int
	newestFailed bool
	confirmed    cache.Entry
	confirmedSeq uint64
}

// NewClient creates a client over c.
func NewClient(c *cache.Cache, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cache:  c,
		logger: logger,
		seqs:   make(map[cache.Key]uint64),
		chain:  make(map[cache.Key]*chain),
	}
}

// Cache returns the underlying cache.
func (c *Client) Cache() *cache.Cache { return c.cache }

// begin registers a mutation of key and shows value.
func (c *Client) begin(key cache.Key, value any) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.chain[key]
	if !ok {
		ch = &chain{confirmed: c.cache.Snapshot(key)}
		c.chain[key] = ch
	}
	ch.pending++
	ch.newestFailed = false
	c.seqs[key]++
	c.cache.Set(key, value)
	return c.seqs[key]
}

// succeed records the server's value for seq and reports whether it is now
// what the cache shows.
func (c *Client) succeed(key cache.Key, seq uint64, saved any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := c.chain[key]
	defer c.end(key, ch)

	if seq > ch.confirmedSeq {
		ch.confirmed = cache.Entry{Value: saved, Present: true}
		ch.confirmedSeq = seq
	}
	newest := c.seqs[key] == seq
	if newest || (ch.newestFailed && ch.confirmedSeq == seq) {
		c.cache.Set(key, saved)
		return true
	}
	return false
}

// fail rolls the cache back to the last confirmed value when seq is the
// newest mutation of key, and reports whether it did.
func (c *Client) fail(key cache.Key, seq uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := c.chain[key]
	defer c.end(key, ch)

	if c.seqs[key] != seq {
		return false
	}
	ch.newestFailed = true
	c.cache.Restore(key, ch.confirmed)
	return true
}

func (c *Client) end(key cache.Key, ch *chain) {
	ch.pending--
	if ch.pending == 0 {
		delete(c.chain, key)
	}
}

// Mutate applies m optimistically. Any in-flight fetch of the key is
// cancelled first so it cannot overwrite the optimistic value. On failure
// the entry returns to the last value the server accepted, which is the
// entry as it was before the first of any overlapping mutations when none
// succeeded, and a *SyncError is returned. A mutation superseded by a newer
// one on the same key only writes when the newer one has been rejected.
func Mutate[T any](ctx context.Context, c *Client, m Mutation[T]) (T, error) {
	var zero T
	if m.Commit == nil {
		return zero, fmt.Errorf("mutation of %s has no commit", m.Key)
	}

	c.cache.CancelFetch(m.Key)
	seq := c.begin(m.Key, m.Value)

	saved, err := m.Commit(ctx)
	if err != nil {
		restored := c.fail(m.Key, seq)
		c.logger.Warn("optimistic update rolled back",
			zap.String("op", "optimistic.Mutate"),
			zap.String("key", m.Key.String()),
			zap.Bool("restored", restored),
			zap.Error(err),
		)
		return zero, &SyncError{Key: m.Key, Err: err}
	}

	if current := c.succeed(m.Key, seq, saved); !current {
		c.logger.Debug("superseded mutation settled",
			zap.String("op", "optimistic.Mutate"),
			zap.String("key", m.Key.String()),
		)
	}
	for _, dep := range m.Invalidates {
		c.cache.Invalidate(dep)
	}
	return saved, nil
}
