// Package cache is a keyed query cache with prefix invalidation.
//
// Keys are tuples such as ("board", "12", "expenses", "category=food").
// Invalidating a prefix marks every entry below it stale, so invalidating
// ("board", "12") also covers that board's expenses and budget summary.
// The boards list lives under its own ("boards") key and is not a prefix of
// any board detail.
package cache

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"
)

// Key identifies a cached query.
type Key []string

// Boards is the key of the boards list.
func Boards() Key { return Key{"boards"} }

// Board is the key of one board's detail; it prefixes all board sub-resources.
func Board(id int64) Key { return Key{"board", strconv.FormatInt(id, 10)} }

// BoardSub is the key of a board sub-resource, optionally narrowed by filters.
func BoardSub(id int64, sub string, filters ...string) Key {
	k := append(Board(id), sub)
	for _, f := range filters {
		if f != "" {
			k = append(k, f)
		}
	}
	return k
}

// Me is the key of the current user's profile.
func Me() Key { return Key{"me"} }

// String joins the key parts with slashes.
func (k Key) String() string { return strings.Join(k, "/") }

// HasPrefix reports whether p is a prefix of k.
func (k Key) HasPrefix(p Key) bool {
	if len(p) > len(k) {
		return false
	}
	for i := range p {
		if k[i] != p[i] {
			return false
		}
	}
	return true
}

// Equal reports whether two keys are identical.
func (k Key) Equal(o Key) bool { return len(k) == len(o) && k.HasPrefix(o) }

type entry struct {
	key       Key
	value     any
	fetchedAt time.Time
	stale     bool
}

// Stats counts cache lookups.
type Stats struct {
	Hits    int
	Misses  int
	Entries int
}

// Cache holds query results. It is safe for concurrent use.
type Cache struct {
	mu          sync.Mutex
	entries     map[string]*entry
	generations map[string]uint64
	subscribers []chan Key
	stats       Stats
	group       singleflight.Group
	now         func() time.Time

	hits   prometheus.Counter
	misses prometheus.Counter
}

// Option configures a Cache.
type Option func(*Cache)

// WithRegisterer registers hit and miss counters with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Cache) {
		reg.MustRegister(c.hits, c.misses)
	}
}

// New returns an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries:     make(map[string]*entry),
		generations: make(map[string]uint64),
		now:         time.Now,
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "travelboard",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Queries answered from fresh cache entries.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "travelboard",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Queries that had to be fetched.",
		}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached value for key and whether it is fresh, meaning
// younger than staleTime and not invalidated. A staleTime of zero treats
// every entry as stale. ok is false when nothing is cached.
func (c *Cache) Get(key Key, staleTime time.Duration) (value any, fresh, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, found := c.entries[key.String()]
	if !found {
		return nil, false, false
	}
	fresh = !e.stale && staleTime > 0 && c.now().Sub(e.fetchedAt) < staleTime
	return e.value, fresh, true
}

// Set stores value under key as a fresh entry. Fetches of key still in
// flight are superseded and will not overwrite it.
func (c *Cache) Set(key Key, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(key, value)
	c.generations[key.String()]++
}

func (c *Cache) set(key Key, value any) {
	c.entries[key.String()] = &entry{
		key:       append(Key(nil), key...),
		value:     value,
		fetchedAt: c.now(),
	}
}

// Invalidate marks every entry whose key starts with one of the prefixes as
// stale and notifies subscribers with the prefixes.
func (c *Cache) Invalidate(prefixes ...Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range prefixes {
		for _, e := range c.entries {
			if e.key.HasPrefix(p) {
				e.stale = true
			}
		}
		c.generations[p.String()]++
	}

	for _, p := range prefixes {
		for _, ch := range c.subscribers {
			select {
			case ch <- p:
			default:
				// Slow subscriber, drop.
			}
		}
	}
}

// Remove drops every entry under prefix without notifying anyone. Used
// after deletes, when the old value must not be served even as stale.
func (c *Cache) Remove(prefix Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if e.key.HasPrefix(prefix) {
			delete(c.entries, k)
		}
	}
	c.generations[prefix.String()]++
}

// Subscribe returns a channel receiving invalidated prefixes. The channel
// is buffered; notifications are dropped when it is full. Cancel ctx to
// unsubscribe and close the channel.
func (c *Cache) Subscribe(ctx context.Context) <-chan Key {
	ch := make(chan Key, 32)
	c.mu.Lock()
	c.subscribers = append(c.subscribers, ch)
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, s := range c.subscribers {
			if s == ch {
				c.subscribers = append(c.subscribers[:i], c.subscribers[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch
}

// Stats returns lookup counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Entries = len(c.entries)
	return s
}

// generation sums the invalidation counters of every prefix of key. Any
// invalidation touching key changes the sum.
func (c *Cache) generation(key Key) uint64 {
	var g uint64
	for i := 1; i <= len(key); i++ {
		g += c.generations[key[:i].String()]
	}
	return g
}

func (c *Cache) hit() {
	c.stats.Hits++
	c.hits.Inc()
}

func (c *Cache) miss() {
	c.stats.Misses++
	c.misses.Inc()
}

// Fetch returns the fresh cached value of key or calls fn to load it.
// Concurrent fetches of one key share a single fn call. When key is
// invalidated while fn runs, the result is returned but not cached, so a
// superseded response never overwrites newer state.
func Fetch[T any](ctx context.Context, c *Cache, key Key, staleTime time.Duration, fn func(context.Context) (T, error)) (T, error) {
	c.mu.Lock()
	if e, ok := c.entries[key.String()]; ok && !e.stale && staleTime > 0 && c.now().Sub(e.fetchedAt) < staleTime {
		if v, ok := e.value.(T); ok {
			c.hit()
			c.mu.Unlock()
			return v, nil
		}
	}
	c.miss()
	c.mu.Unlock()

	v, err, _ := c.group.Do(key.String(), func() (any, error) {
		c.mu.Lock()
		gen := c.generation(key)
		c.mu.Unlock()

		v, err := fn(ctx)
		if err != nil {
			return v, err
		}

		c.mu.Lock()
		if c.generation(key) == gen {
			c.set(key, v)
		}
		c.mu.Unlock()
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	out, _ := v.(T)
	return out, nil
}
