// Package lru provides the blocklist decision cache on top of hashicorp/golang-lru.
package lru

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/haukened/rr-doh/internal/dns/domain"
	"github.com/haukened/rr-doh/internal/dns/repos/blocklist"
)

// decisionCache is an LRU-backed implementation of blocklist.DecisionCache.
type decisionCache struct {
	lru       *lru.Cache[string, domain.BlockDecision]
	capacity  int
	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// disabledCache is a no-op DecisionCache used when size <= 0.
type disabledCache struct {
	misses atomic.Uint64
}

// New creates a DecisionCache holding up to size decisions. If size <= 0, a
// disabled cache is returned that always misses.
func New(size int) (blocklist.DecisionCache, error) {
	if size <= 0 {
		return &disabledCache{}, nil
	}

	dc := &decisionCache{capacity: size}
	// NewWithEvict observes evictions, including Purge-induced ones.
	cache, err := lru.NewWithEvict(size, func(string, domain.BlockDecision) {
		dc.evictions.Add(1)
	})
	if err != nil {
		return nil, err
	}
	dc.lru = cache
	return dc, nil
}

func (c *decisionCache) Get(name string) (domain.BlockDecision, bool) {
	if val, ok := c.lru.Get(name); ok {
		c.hits.Add(1)
		return val, true
	}
	c.misses.Add(1)
	return domain.BlockDecision{}, false
}

func (c *decisionCache) Put(name string, d domain.BlockDecision) {
	c.lru.Add(name, d)
}

func (c *decisionCache) Len() int { return c.lru.Len() }

func (c *decisionCache) Purge() { c.lru.Purge() }

func (c *decisionCache) Stats() blocklist.CacheStats {
	return blocklist.CacheStats{
		Capacity:  c.capacity,
		Size:      c.lru.Len(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

func (d *disabledCache) Get(string) (domain.BlockDecision, bool) {
	d.misses.Add(1)
	return domain.BlockDecision{}, false
}

func (d *disabledCache) Put(string, domain.BlockDecision) {}

func (d *disabledCache) Len() int { return 0 }

func (d *disabledCache) Purge() {}

func (d *disabledCache) Stats() blocklist.CacheStats {
	return blocklist.CacheStats{Misses: d.misses.Load()}
}

var _ blocklist.DecisionCache = (*decisionCache)(nil)
var _ blocklist.DecisionCache = (*disabledCache)(nil)
