package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryCacheDeduplicatesConcurrentFetches(t *testing.T) {
	c := newTestCache()
	release := make(chan struct{})
	var calls int32
	fn := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "value", nil
	}

	var wg sync.WaitGroup
	results := make([]any, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.Fetch(context.Background(), "k", fn)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	require.Eventually(t, func() bool { return c.Peek("k").Fetching }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, v := range results {
		assert.Equal(t, "value", v)
	}
}

func TestQueryCacheRefetchesAfterStaleTime(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewQueryCache(time.Minute, time.Hour, WithClock(func() time.Time { return now }))
	var calls int
	fn := func(ctx context.Context) (any, error) {
		calls++
		return calls, nil
	}

	v, err := c.Fetch(context.Background(), "k", fn)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	now = now.Add(30 * time.Second)
	v, _ = c.Fetch(context.Background(), "k", fn)
	assert.Equal(t, 1, v, "fresh entry is served from cache")

	now = now.Add(time.Minute)
	v, _ = c.Fetch(context.Background(), "k", fn)
	assert.Equal(t, 2, v)
}

func TestQueryCacheInvalidatePrefix(t *testing.T) {
	c := newTestCache()
	c.Set("incomes:converted:u:s:USD", 1)
	c.Set("incomes:converted:u:s2:USD", 2)

	c.InvalidatePrefix("incomes:converted:u:s:")

	assert.True(t, c.Peek("incomes:converted:u:s:USD").Invalidated)
	assert.False(t, c.IsFresh(c.Peek("incomes:converted:u:s:USD")))
	assert.False(t, c.Peek("incomes:converted:u:s2:USD").Invalidated)

	v, err := c.Fetch(context.Background(), "incomes:converted:u:s:USD", func(ctx context.Context) (any, error) { return 3, nil })
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestQueryCacheDropsSupersededFetchResult(t *testing.T) {
	c := newTestCache()
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		v, err := c.Fetch(context.Background(), "k", func(ctx context.Context) (any, error) {
			close(started)
			<-release
			return "late", nil
		})
		assert.NoError(t, err)
		assert.Equal(t, "late", v, "the caller still gets its own result")
	}()
	<-started

	c.Set("k", "newer")
	close(release)
	<-done

	assert.Equal(t, "newer", c.Peek("k").Value)
}

func TestQueryCacheStoresFetchErrors(t *testing.T) {
	c := newTestCache()
	boom := errors.New("boom")

	_, err := c.Fetch(context.Background(), "k", func(ctx context.Context) (any, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	s := c.Peek("k")
	assert.True(t, s.Found)
	assert.ErrorIs(t, s.Err, boom)
	assert.False(t, c.IsFresh(s), "failed entries are retried")
}

func TestQueryCacheCancelledCallerStillPopulatesCache(t *testing.T) {
	c := newTestCache()
	release := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() {
		_, err := c.Fetch(ctx, "k", func(ctx context.Context) (any, error) {
			<-release
			return "value", nil
		})
		errc <- err
	}()
	require.Eventually(t, func() bool { return c.Peek("k").Fetching }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)

	close(release)
	require.Eventually(t, func() bool { return c.Peek("k").Found }, time.Second, time.Millisecond)
	assert.Equal(t, "value", c.Peek("k").Value)
	assert.Eventually(t, func() bool { return !c.Peek("k").Fetching }, time.Second, time.Millisecond)
}

func TestQueryCachePrefetchDoesNotBlock(t *testing.T) {
	c := newTestCache()
	release := make(chan struct{})
	c.Prefetch(context.Background(), "k", func(ctx context.Context) (any, error) {
		<-release
		return 1, nil
	})
	assert.True(t, c.Peek("k").Fetching)
	assert.False(t, c.Peek("k").Found)

	close(release)
	require.Eventually(t, func() bool { return c.Peek("k").Found }, time.Second, time.Millisecond)
}

func TestQueryCacheRemoveAndSubscribe(t *testing.T) {
	c := newTestCache()
	var mu sync.Mutex
	var seen []string
	unsubscribe := c.Subscribe(func(key string) {
		mu.Lock()
		seen = append(seen, key)
		mu.Unlock()
	})

	c.Set("a:1", 1)
	c.Set("a:2", 2)
	c.Set("b:1", 3)
	c.RemovePrefix("a:")
	unsubscribe()
	c.Set("b:2", 4)

	assert.False(t, c.Peek("a:1").Found)
	assert.False(t, c.Peek("a:2").Found)
	assert.True(t, c.Peek("b:1").Found)

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"a:1", "a:2", "b:1", "a:1", "a:2"}, seen)
}

func (c *QueryCache) revisionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.revisions)
}

func TestQueryCacheForgetsRevisionsOfGoneKeys(t *testing.T) {
	c := NewQueryCache(time.Minute, 20*time.Millisecond)
	c.Set("expires", 1)
	c.Set("removed", 2)

	c.Remove("removed")
	assert.Equal(t, 1, c.revisionCount())

	require.Eventually(t, func() bool { return c.revisionCount() == 0 }, time.Second, 5*time.Millisecond)
	assert.False(t, c.Peek("expires").Found)
}

func TestQueryCacheForgetsRevisionOfDiscardedFetch(t *testing.T) {
	c := newTestCache()
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.Fetch(context.Background(), "k", func(ctx context.Context) (any, error) {
			close(started)
			<-release
			return "late", nil
		})
	}()
	<-started

	c.Remove("k")
	assert.Equal(t, 1, c.revisionCount(), "kept while the fetch runs")
	close(release)
	<-done

	assert.False(t, c.Peek("k").Found)
	assert.Zero(t, c.revisionCount())
}

func TestQueryCacheSetInvalidatingIsOneStep(t *testing.T) {
	c := newTestCache()
	c.Set("derived:a", 1)
	c.Set("other:b", 2)

	var derivedInvalidated bool
	unsubscribe := c.Subscribe(func(key string) {
		if key == "list" {
			derivedInvalidated = c.Peek("derived:a").Invalidated
		}
	})
	defer unsubscribe()

	c.SetInvalidating("list", []string{"x"}, "derived:")

	assert.True(t, derivedInvalidated, "derived entries are invalidated by the time the new value is visible")
	assert.Equal(t, []string{"x"}, c.Peek("list").Value)
	assert.False(t, c.Peek("other:b").Invalidated)
}
