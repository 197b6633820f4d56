package services

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/scenariobudget/src/logger"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultStaleTime = 2 * time.Minute
	DefaultGCTime    = 10 * time.Minute
	// DefaultBackgroundFetchTimeout bounds fetches that outlive their caller.
	DefaultBackgroundFetchTimeout = 30 * time.Second
)

// FetchFunc loads the value stored under a key.
type FetchFunc func(ctx context.Context) (any, error)

type cacheEntry struct {
	value       any
	err         error
	updatedAt   time.Time
	invalidated bool
	// removed is set before Remove deletes the entry so the eviction
	// callback can tell it apart from an expiry.
	removed int32
}

// Snapshot is what a key holds at one instant.
type Snapshot struct {
	Value     any
	Err       error
	UpdatedAt time.Time
	// Found is true once a fetch settled or a value was set.
	Found bool
	// Fetching is true while a fetch for the key is running.
	Fetching bool
	// Invalidated entries must not be served as current.
	Invalidated bool
	// Revision changes on every write to the key.
	Revision uint64
}

// QueryCache is a keyed store of fetched values with a stale time, a
// garbage-collection time, de-duplicated in-flight fetches, prefix
// invalidation and change notifications. Writes from a fetch that started
// before a newer write to the same key are dropped.
type QueryCache struct {
	store     *cache.Cache
	group     singleflight.Group
	staleTime time.Duration
	bgTimeout time.Duration
	now       func() time.Time

	mu        sync.Mutex
	waiting   map[string]int
	revisions map[string]uint64
	counter   uint64
	subs      map[int]func(key string)
	nextSub   int
}

type QueryCacheOption func(*QueryCache)

// WithClock overrides the time source used for staleness.
func WithClock(now func() time.Time) QueryCacheOption {
	return func(c *QueryCache) { c.now = now }
}

// WithBackgroundFetchTimeout bounds fetches that continue after their caller left.
func WithBackgroundFetchTimeout(d time.Duration) QueryCacheOption {
	return func(c *QueryCache) { c.bgTimeout = d }
}

func NewQueryCache(staleTime, gcTime time.Duration, opts ...QueryCacheOption) *QueryCache {
	if staleTime <= 0 {
		staleTime = DefaultStaleTime
	}
	if gcTime <= 0 {
		gcTime = DefaultGCTime
	}
	c := &QueryCache{
		store:     cache.New(gcTime, gcTime),
		staleTime: staleTime,
		bgTimeout: DefaultBackgroundFetchTimeout,
		now:       time.Now,
		waiting:   make(map[string]int),
		revisions: make(map[string]uint64),
		subs:      make(map[int]func(string)),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.store.OnEvicted(c.evicted)
	return c
}

// evicted forgets the revision of a key go-cache expired.
func (c *QueryCache) evicted(key string, v any) {
	if e, ok := v.(*cacheEntry); ok && atomic.LoadInt32(&e.removed) == 1 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.forgetLocked(key)
}

// forgetLocked drops the revision of a key that has neither an entry nor a
// running fetch. Revisions only grow, so a forgotten one is never reused.
func (c *QueryCache) forgetLocked(key string) {
	if c.waiting[key] > 0 {
		return
	}
	if _, ok := c.store.Get(key); ok {
		return
	}
	delete(c.revisions, key)
}

// Peek reports the current state of key without fetching.
func (c *QueryCache) Peek(key string) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked(key)
}

func (c *QueryCache) snapshotLocked(key string) Snapshot {
	s := Snapshot{Fetching: c.waiting[key] > 0, Revision: c.revisions[key]}
	if raw, ok := c.store.Get(key); ok {
		e := raw.(*cacheEntry)
		s.Value, s.Err, s.UpdatedAt, s.Invalidated, s.Found = e.value, e.err, e.updatedAt, e.invalidated, true
	}
	return s
}

// IsFresh reports whether s can be served without refetching.
func (c *QueryCache) IsFresh(s Snapshot) bool {
	return s.Found && s.Err == nil && !s.Invalidated && c.now().Sub(s.UpdatedAt) < c.staleTime
}

// Fetch returns the value under key, running fn when the entry is missing,
// stale, invalidated or failed. Concurrent calls for the same key share one
// run of fn. fn keeps running when ctx is cancelled so the result still
// lands in the cache.
func (c *QueryCache) Fetch(ctx context.Context, key string, fn FetchFunc) (any, error) {
	if s := c.Peek(key); c.IsFresh(s) {
		return s.Value, nil
	}

	ch := c.start(ctx, key, fn)
	select {
	case res := <-ch:
		c.done(key)
		return res.Val, res.Err
	case <-ctx.Done():
		go func() {
			<-ch
			c.done(key)
		}()
		return nil, ctx.Err()
	}
}

// Prefetch starts a background fetch of key unless it is fresh or already
// being fetched. It never blocks.
func (c *QueryCache) Prefetch(ctx context.Context, key string, fn FetchFunc) {
	c.mu.Lock()
	s := c.snapshotLocked(key)
	c.mu.Unlock()
	if c.IsFresh(s) || s.Fetching {
		return
	}

	ch := c.start(ctx, key, fn)
	go func() {
		<-ch
		c.done(key)
	}()
}

func (c *QueryCache) start(ctx context.Context, key string, fn FetchFunc) <-chan singleflight.Result {
	c.mu.Lock()
	c.waiting[key]++
	startRev := c.revisions[key]
	c.mu.Unlock()

	detached := context.WithoutCancel(ctx)
	return c.group.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(detached, c.bgTimeout)
		defer cancel()
		value, err := fn(fetchCtx)

		c.mu.Lock()
		if c.revisions[key] != startRev {
			c.mu.Unlock()
			logger.FromContext(ctx).Debug("Discarding superseded fetch result", "key", key)
			return value, err
		}
		c.writeLocked(key, &cacheEntry{value: value, err: err, updatedAt: c.now()})
		subs := c.subscribersLocked()
		c.mu.Unlock()

		c.notify(subs, key)
		return value, err
	})
}

func (c *QueryCache) done(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.waiting[key] <= 1 {
		delete(c.waiting, key)
		c.forgetLocked(key)
		return
	}
	c.waiting[key]--
}

// Set stores value under key as freshly fetched and returns the new revision.
// Any fetch of key already running will not overwrite it.
func (c *QueryCache) Set(key string, value any) uint64 {
	c.mu.Lock()
	rev := c.writeLocked(key, &cacheEntry{value: value, updatedAt: c.now()})
	subs := c.subscribersLocked()
	c.mu.Unlock()

	c.notify(subs, key)
	return rev
}

func (c *QueryCache) writeLocked(key string, e *cacheEntry) uint64 {
	c.counter++
	c.revisions[key] = c.counter
	c.store.Set(key, e, cache.DefaultExpiration)
	return c.counter
}

func (c *QueryCache) bumpLocked(key string) {
	c.counter++
	c.revisions[key] = c.counter
}

// Invalidate marks key as out of date so the next read refetches it.
func (c *QueryCache) Invalidate(key string) {
	c.invalidate(func(k string) bool { return k == key })
}

// InvalidatePrefix marks every key starting with prefix as out of date.
func (c *QueryCache) InvalidatePrefix(prefix string) {
	c.invalidate(func(k string) bool { return strings.HasPrefix(k, prefix) })
}

func (c *QueryCache) invalidate(match func(string) bool) {
	c.mu.Lock()
	touched := c.invalidateLocked(match)
	subs := c.subscribersLocked()
	c.mu.Unlock()

	for _, key := range touched {
		c.notify(subs, key)
	}
}

// SetInvalidating stores value under key and invalidates every key under
// prefixes in one step, so no reader sees the new value next to entries
// derived from the old one.
func (c *QueryCache) SetInvalidating(key string, value any, prefixes ...string) uint64 {
	c.mu.Lock()
	rev := c.writeLocked(key, &cacheEntry{value: value, updatedAt: c.now()})
	touched := c.invalidateLocked(func(k string) bool {
		for _, p := range prefixes {
			if strings.HasPrefix(k, p) {
				return true
			}
		}
		return false
	})
	subs := c.subscribersLocked()
	c.mu.Unlock()

	c.notify(subs, key)
	for _, k := range touched {
		c.notify(subs, k)
	}
	return rev
}

func (c *QueryCache) invalidateLocked(match func(string) bool) []string {
	var touched []string
	for key, item := range c.store.Items() {
		if !match(key) {
			continue
		}
		old := item.Object.(*cacheEntry)
		e := *old
		e.invalidated = true
		c.writeLocked(key, &e)
		touched = append(touched, key)
	}
	// fetches running for keys with no entry yet must not land either
	for key := range c.waiting {
		if match(key) {
			c.bumpLocked(key)
		}
	}
	return touched
}

// Remove drops key. Running fetches of key will not store their result.
func (c *QueryCache) Remove(key string) {
	c.remove(func(k string) bool { return k == key })
}

// RemovePrefix drops every key starting with prefix.
func (c *QueryCache) RemovePrefix(prefix string) {
	c.remove(func(k string) bool { return strings.HasPrefix(k, prefix) })
}

func (c *QueryCache) remove(match func(string) bool) {
	c.mu.Lock()
	var touched []string
	for key, item := range c.store.Items() {
		if !match(key) {
			continue
		}
		atomic.StoreInt32(&item.Object.(*cacheEntry).removed, 1)
		c.store.Delete(key)
		if c.waiting[key] == 0 {
			delete(c.revisions, key)
		}
		touched = append(touched, key)
	}
	for key := range c.waiting {
		if match(key) {
			c.bumpLocked(key)
		}
	}
	subs := c.subscribersLocked()
	c.mu.Unlock()

	for _, key := range touched {
		c.notify(subs, key)
	}
}

// Subscribe registers fn to be called with every key that changes. The
// returned function removes the subscription.
func (c *QueryCache) Subscribe(fn func(key string)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

func (c *QueryCache) subscribersLocked() []func(string) {
	subs := make([]func(string), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	return subs
}

func (c *QueryCache) notify(subs []func(string), key string) {
	for _, fn := range subs {
		fn(key)
	}
}
