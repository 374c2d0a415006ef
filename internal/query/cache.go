// Package query is a keyed, invalidatable cache of server state. Concurrent reads of a
// key share one fetch; mutations invalidate key prefixes so the next read refetches.
package query

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

type entry struct {
	key       Key
	value     any
	fetchedAt time.Time
	stale     bool
	err       error
}

// Stats cache counters
type Stats struct {
	Hits    int64
	Misses  int64
	Fetches int64
	Errors  int64
	// InFlight keys with a fetch running
	InFlight int
}

// Options cache settings
type Options struct {
	Size int
	// StaleTime how long a fetched value stays fresh; 0 means until invalidated
	StaleTime time.Duration
	Logger    zerolog.Logger
	Now       func() time.Time
}

// flight tracks a key while fetches for it run; gen is bumped on invalidation
type flight struct {
	key  Key
	gen  uint64
	refs int
}

// Cache query cache
type Cache struct {
	mu        sync.Mutex
	entries   *lru.Cache[string, *entry]
	flights   map[string]*flight
	group     singleflight.Group
	staleTime time.Duration
	now       func() time.Time
	log       zerolog.Logger
	stats     Stats
}

// New creates a cache
func New(opts Options) (*Cache, error) {
	size := opts.Size
	if size <= 0 {
		size = 256
	}
	entries, err := lru.New[string, *entry](size)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Cache{
		entries:   entries,
		flights:   make(map[string]*flight),
		staleTime: opts.StaleTime,
		now:       now,
		log:       opts.Logger.With().Str("component", "query").Logger(),
	}, nil
}

// Fetcher loads the value of a key from the server
type Fetcher[T any] func(ctx context.Context) (T, error)

// Fetch returns the cached value of k when fresh; otherwise it runs fetch once for all
// concurrent callers of the same invalidation cycle. A failed fetch returns the error and
// keeps the previous value, marked stale, for Peek.
func Fetch[T any](ctx context.Context, c *Cache, k Key, fetch Fetcher[T]) (T, error) {
	var zero T
	id := k.String()

	c.mu.Lock()
	if e, ok := c.entries.Get(id); ok && c.freshLocked(e) {
		if v, ok := e.value.(T); ok {
			c.stats.Hits++
			c.mu.Unlock()
			return v, nil
		}
	}
	c.stats.Misses++
	f := c.flights[id]
	if f == nil {
		f = &flight{key: k}
		c.flights[id] = f
	}
	f.refs++
	gen := f.gen
	c.mu.Unlock()

	ch := c.group.DoChan(id+"#"+strconv.FormatUint(gen, 10), func() (any, error) {
		c.mu.Lock()
		c.stats.Fetches++
		c.mu.Unlock()

		// detached so one caller giving up does not fail the others
		v, err := fetch(context.WithoutCancel(ctx))
		c.store(k, gen, v, err)
		return v, err
	})

	select {
	case <-ctx.Done():
		go func() {
			<-ch
			c.release(id)
		}()
		return zero, ctx.Err()
	case res := <-ch:
		c.release(id)
		if res.Err != nil {
			return zero, res.Err
		}
		v, ok := res.Val.(T)
		if !ok {
			return zero, fmt.Errorf("query %s: cached %T, want %T", id, res.Val, zero)
		}
		return v, nil
	}
}

// Peek returns the last known value of k, fresh or not
func Peek[T any](c *Cache, k Key) (value T, stale bool, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, found := c.entries.Peek(k.String())
	if !found || e.value == nil {
		return value, false, false
	}
	v, isT := e.value.(T)
	if !isT {
		return value, false, false
	}
	return v, !c.freshLocked(e), true
}

// Set stores v under k as freshly fetched
func Set[T any](c *Cache, k Key, v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := k.String()
	if f, ok := c.flights[id]; ok {
		f.gen++
	}
	c.entries.Add(id, &entry{key: k, value: v, fetchedAt: c.now()})
}

// Invalidate marks every key under the given prefixes stale. Fetches already in flight
// for those keys are answered but their results are not cached.
func (c *Cache) Invalidate(prefixes ...Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var n int
	for _, id := range c.entries.Keys() {
		if e, ok := c.entries.Peek(id); ok && matchesAny(e.key, prefixes) {
			e.stale = true
			n++
		}
	}
	for _, f := range c.flights {
		if matchesAny(f.key, prefixes) {
			f.gen++
		}
	}
	c.log.Debug().Int("keys", n).Msg("invalidated")
}

// Clear drops every entry
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, f := range c.flights {
		f.gen++
	}
	c.entries.Purge()
	c.log.Debug().Msg("cleared")
}

// Stats returns a snapshot of the counters
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats := c.stats
	stats.InFlight = len(c.flights)
	return stats
}

// Len number of cached keys
func (c *Cache) Len() int {
	return c.entries.Len()
}

func (c *Cache) store(k Key, gen uint64, v any, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := k.String()
	if err != nil {
		c.stats.Errors++
		if e, ok := c.entries.Peek(id); ok {
			e.stale = true
			e.err = err
		}
		c.log.Debug().Err(err).Str("key", id).Msg("fetch failed")
		return
	}
	if f, ok := c.flights[id]; !ok || f.gen != gen {
		c.log.Debug().Str("key", id).Msg("discarding result invalidated in flight")
		return
	}
	c.entries.Add(id, &entry{key: k, value: v, fetchedAt: c.now()})
}

// release drops one caller's hold on the flight of id
func (c *Cache) release(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.flights[id]
	if !ok {
		return
	}
	if f.refs--; f.refs <= 0 {
		delete(c.flights, id)
	}
}

func (c *Cache) freshLocked(e *entry) bool {
	if e.stale || e.err != nil {
		return false
	}
	if c.staleTime > 0 && c.now().Sub(e.fetchedAt) > c.staleTime {
		return false
	}
	return true
}

func matchesAny(k Key, prefixes []Key) bool {
	for _, p := range prefixes {
		if k.HasPrefix(p) {
			return true
		}
	}
	return false
}
