// Package decisioncache memoizes filter decisions per (phase, URL).
// Decisions are a pure function of the session's rule set, so an entry never
// goes stale while the process runs.
package decisioncache

import (
	"errors"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/haukened/rr-webgate/internal/webgate/domain"
	"github.com/haukened/rr-webgate/internal/webgate/services/filter"
)

// ErrInvalidSize is returned for a non-positive capacity. Callers that want
// no caching leave filter.Options.Cache nil.
var ErrInvalidSize = errors.New("decision cache size must be positive")

// key separates the phases: the two entry points reach different verdicts
// for the same URL.
type key struct {
	phase domain.RequestKind
	url   string
}

// Cache is an LRU of decisions with hit, miss and eviction counters.
type Cache struct {
	entries   *lru.Cache[key, domain.Decision]
	capacity  int
	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

func New(size int) (*Cache, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	c := &Cache{capacity: size}
	entries, err := lru.NewWithEvict(size, func(key, domain.Decision) { c.evictions.Add(1) })
	if err != nil {
		return nil, err
	}
	c.entries = entries
	return c, nil
}

func (c *Cache) Get(phase domain.RequestKind, url string) (domain.Decision, bool) {
	d, ok := c.entries.Get(key{phase, url})
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return d, ok
}

func (c *Cache) Put(d domain.Decision) {
	c.entries.Add(key{d.Phase, d.URL}, d)
}

func (c *Cache) Stats() filter.CacheStats {
	return filter.CacheStats{
		Capacity:  c.capacity,
		Size:      c.entries.Len(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

var _ filter.DecisionCache = (*Cache)(nil)
