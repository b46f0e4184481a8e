// Package cache provides a single-flight TTL cache for consolidated
// analysis results, keyed by metrics fingerprint. Concurrent requests for
// the same fingerprint share one pipeline run instead of fanning out
// duplicate agent calls.
package cache

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/perfsight/perfsight/pkg/models"
)

// entry is one cached or in-flight result. done is closed when the run
// finishes; until then waiters block on it.
type entry struct {
	result   *models.ConsolidatedResult
	storedAt time.Time
	done     chan struct{}
	inFlight bool
}

// Cache is a TTL cache with single-flight semantics. Expiry is lazy: stale
// entries are replaced on the next lookup, never swept in the background.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]*entry
	now     func() time.Time
}

// New creates a Cache with the given TTL.
func New(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// GetOrRun returns the cached result for key if fresh, joins an in-flight
// run if one exists, or starts run itself. The check-and-start is atomic,
// so exactly one caller executes run per key per TTL window. The boolean
// reports whether the result was served from cache (a joined in-flight run
// counts as cached). The only error is context cancellation while waiting
// on another caller's run.
func (c *Cache) GetOrRun(ctx context.Context, key string, run func(context.Context) *models.ConsolidatedResult) (*models.ConsolidatedResult, bool, error) {
	for {
		c.mu.Lock()

		if e, ok := c.entries[key]; ok {
			if e.inFlight {
				done := e.done
				c.mu.Unlock()
				log.Printf("[cache] joining in-flight run for %.12s", key)
				select {
				case <-done:
				case <-ctx.Done():
					return nil, false, ctx.Err()
				}
				c.mu.Lock()
				result := e.result
				c.mu.Unlock()
				if result == nil {
					// The run died before producing a result; start over.
					continue
				}
				return result, true, nil
			}
			if c.now().Sub(e.storedAt) < c.ttl {
				result := e.result
				c.mu.Unlock()
				log.Printf("[cache] hit for %.12s", key)
				return result, true, nil
			}
			log.Printf("[cache] entry for %.12s expired, refreshing", key)
		}

		e := &entry{done: make(chan struct{}), inFlight: true}
		c.entries[key] = e
		c.mu.Unlock()

		// Settle the entry even if run panics: waiters must never block on
		// a done channel that will not close, and the dead entry must not
		// wedge the key for future callers.
		defer func() {
			c.mu.Lock()
			if e.result == nil {
				delete(c.entries, key)
			} else {
				e.storedAt = c.now()
				e.inFlight = false
			}
			close(e.done)
			c.mu.Unlock()
		}()

		result := run(ctx)

		c.mu.Lock()
		e.result = result
		c.mu.Unlock()

		return result, false, nil
	}
}

// Get returns the fresh cached result for key without triggering a run.
// In-flight entries read as misses.
func (c *Cache) Get(key string) (*models.ConsolidatedResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || e.inFlight || c.now().Sub(e.storedAt) >= c.ttl {
		return nil, false
	}
	return e.result, true
}

// Purge drops every entry that has expired. Callers with long-lived caches
// can run this periodically; correctness never depends on it.
func (c *Cache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if !e.inFlight && c.now().Sub(e.storedAt) >= c.ttl {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of entries, fresh or stale, including in-flight.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
