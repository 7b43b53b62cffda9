package optimistic

import (
	"context"
	"errors"
	"testing"

	"github.com/KatTate/katalyst-franchise-planner/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutate_SuccessStoresServerValueAndInvalidates(t *testing.T) {
	c := cache.New(nil)
	client := NewClient(c, nil)
	key := cache.PlanKey("p1")
	c.Set(key, "before")
	c.Set(cache.OutputsKey("p1"), "outputs")
	c.Set(cache.OutputsKey("p2"), "other plan")

	var seenDuringCommit any
	got, err := Mutate(context.Background(), client, Mutation[string]{
		Key:   key,
		Value: "optimistic",
		Commit: func(context.Context) (string, error) {
			seenDuringCommit, _ = c.Get(key)
			return "server", nil
		},
		Invalidates: []cache.Key{cache.OutputsKey("p1")},
	})
	require.NoError(t, err)

	assert.Equal(t, "server", got)
	assert.Equal(t, "optimistic", seenDuringCommit, "the edit is visible before the server answers")
	v, _ := c.Get(key)
	assert.Equal(t, "server", v)
	assert.True(t, c.IsStale(cache.OutputsKey("p1")))
	assert.False(t, c.IsStale(cache.OutputsKey("p2")))
}

func TestMutate_FailureRestoresSnapshot(t *testing.T) {
	c := cache.New(nil)
	client := NewClient(c, nil)
	key := cache.PlanKey("p1")
	c.Set(key, "before")
	c.Invalidate(key)
	c.Set(cache.OutputsKey("p1"), "outputs")
	snapshot := c.Snapshot(key)
	boom := errors.New("422")

	_, err := Mutate(context.Background(), client, Mutation[string]{
		Key:         key,
		Value:       "optimistic",
		Commit:      func(context.Context) (string, error) { return "", boom },
		Invalidates: []cache.Key{cache.OutputsKey("p1")},
	})

	var syncErr *SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, key, syncErr.Key)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, snapshot, c.Snapshot(key), "the cache is exactly as before")
	assert.False(t, c.IsStale(cache.OutputsKey("p1")), "dependents untouched on failure")
}

func TestMutate_FailureOnAbsentKeyRemovesIt(t *testing.T) {
	c := cache.New(nil)
	client := NewClient(c, nil)
	key := cache.StartupCostsKey("p1")

	_, err := Mutate(context.Background(), client, Mutation[int]{
		Key:    key,
		Value:  5,
		Commit: func(context.Context) (int, error) { return 0, errors.New("offline") },
	})
	require.Error(t, err)

	_, ok := c.Get(key)
	assert.False(t, ok)
}

func TestMutate_SupersededMutationDoesNotWrite(t *testing.T) {
	c := cache.New(nil)
	client := NewClient(c, nil)
	key := cache.PlanKey("p1")
	c.Set(key, "v0")

	firstCommitted := make(chan struct{})
	releaseFirst := make(chan struct{})
	firstErr := make(chan error, 1)
	go func() {
		_, err := Mutate(context.Background(), client, Mutation[string]{
			Key:   key,
			Value: "v1",
			Commit: func(context.Context) (string, error) {
				close(firstCommitted)
				<-releaseFirst
				return "", errors.New("rejected")
			},
		})
		firstErr <- err
	}()

	<-firstCommitted
	got, err := Mutate(context.Background(), client, Mutation[string]{
		Key:    key,
		Value:  "v2",
		Commit: func(context.Context) (string, error) { return "v2-saved", nil },
	})
	require.NoError(t, err)
	assert.Equal(t, "v2-saved", got)

	close(releaseFirst)
	assert.Error(t, <-firstErr)

	v, _ := c.Get(key)
	assert.Equal(t, "v2-saved", v, "the older rollback must not clobber the newer write")
}

func TestMutate_CancelsInFlightFetch(t *testing.T) {
	c := cache.New(nil)
	client := NewClient(c, nil)
	key := cache.PlanKey("p1")

	started := make(chan struct{})
	fetchErr := make(chan error, 1)
	go func() {
		_, err := c.Fetch(context.Background(), key, func(ctx context.Context) (any, error) {
			close(started)
			<-ctx.Done()
			return "stale server copy", nil
		})
		fetchErr <- err
	}()
	<-started

	_, err := Mutate(context.Background(), client, Mutation[string]{
		Key:    key,
		Value:  "optimistic",
		Commit: func(context.Context) (string, error) { return "saved", nil },
	})
	require.NoError(t, err)
	assert.ErrorIs(t, <-fetchErr, context.Canceled)

	v, _ := c.Get(key)
	assert.Equal(t, "saved", v)
}

func TestMutate_RequiresCommit(t *testing.T) {
	client := NewClient(cache.New(nil), nil)
	_, err := Mutate(context.Background(), client, Mutation[string]{Key: cache.PlanKey("p1")})
	assert.Error(t, err)
}

// startBlocked runs a mutation whose commit waits for release and returns
// result or err.
func startBlocked(t *testing.T, client *Client, key cache.Key, value, result string, err error) (release chan struct{}, done chan error) {
	t.Helper()
	committing := make(chan struct{})
	release = make(chan struct{})
	done = make(chan error, 1)
	go func() {
		_, mutateErr := Mutate(context.Background(), client, Mutation[string]{
			Key:   key,
			Value: value,
			Commit: func(context.Context) (string, error) {
				close(committing)
				<-release
				return result, err
			},
		})
		done <- mutateErr
	}()
	<-committing
	return release, done
}

func TestMutate_OverlappingRejectionsRestoreConfirmedValue(t *testing.T) {
	c := cache.New(nil)
	client := NewClient(c, nil)
	key := cache.PlanKey("p1")
	c.Set(key, "s0")

	releaseA, doneA := startBlocked(t, client, key, "vA", "", errors.New("rejected A"))
	releaseB, doneB := startBlocked(t, client, key, "vB", "", errors.New("rejected B"))

	v, _ := c.Get(key)
	assert.Equal(t, "vB", v)

	close(releaseB)
	require.Error(t, <-doneB)
	close(releaseA)
	require.Error(t, <-doneA)

	v, _ = c.Get(key)
	assert.Equal(t, "s0", v, "no rejected value may remain")
}

func TestMutate_NewerRejectionFallsBackToOlderAcceptance(t *testing.T) {
	c := cache.New(nil)
	client := NewClient(c, nil)
	key := cache.PlanKey("p1")
	c.Set(key, "s0")

	releaseA, doneA := startBlocked(t, client, key, "vA", "vA-saved", nil)
	releaseB, doneB := startBlocked(t, client, key, "vB", "", errors.New("rejected B"))

	close(releaseA)
	require.NoError(t, <-doneA)
	v, _ := c.Get(key)
	assert.Equal(t, "vB", v, "the newer optimistic value stays until it settles")

	close(releaseB)
	require.Error(t, <-doneB)
	v, _ = c.Get(key)
	assert.Equal(t, "vA-saved", v)
}

func TestMutate_OlderAcceptanceAfterNewerRejection(t *testing.T) {
	c := cache.New(nil)
	client := NewClient(c, nil)
	key := cache.PlanKey("p1")
	c.Set(key, "s0")

	releaseA, doneA := startBlocked(t, client, key, "vA", "vA-saved", nil)
	releaseB, doneB := startBlocked(t, client, key, "vB", "", errors.New("rejected B"))

	close(releaseB)
	require.Error(t, <-doneB)
	v, _ := c.Get(key)
	assert.Equal(t, "s0", v)

	close(releaseA)
	require.NoError(t, <-doneA)
	v, _ = c.Get(key)
	assert.Equal(t, "vA-saved", v)
}

func TestMutate_ChainEndsWhenSettled(t *testing.T) {
	c := cache.New(nil)
	client := NewClient(c, nil)
	key := cache.PlanKey("p1")
	c.Set(key, "s0")

	_, err := Mutate(context.Background(), client, Mutation[string]{
		Key:    key,
		Value:  "v1",
		Commit: func(context.Context) (string, error) { return "v1-saved", nil },
	})
	require.NoError(t, err)

	_, err = Mutate(context.Background(), client, Mutation[string]{
		Key:    key,
		Value:  "v2",
		Commit: func(context.Context) (string, error) { return "", errors.New("rejected") },
	})
	require.Error(t, err)

	v, _ := c.Get(key)
	assert.Equal(t, "v1-saved", v)
	client.mu.Lock()
	defer client.mu.Unlock()
	assert.Empty(t, client.chain)
}
