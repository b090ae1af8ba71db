package cache

import (
	"sync"

	"github.com/ritzau/route-viewer/pkg/model"
	"github.com/tidwall/tinylru"
)

// DefaultSize is the number of routes kept when no size is configured
const DefaultSize = 1024

// RouteKey identifies a cached route. Epoch ties the entry to one version of
// the graph; bumping the epoch makes every older entry unreachable.
type RouteKey struct {
	Metric model.Metric
	Start  string
	Goal   string
	Epoch  uint64
}

// Stats is a snapshot of cache counters
type Stats struct {
	Gets  int    `json:"gets"`
	Hits  int    `json:"hits"`
	Puts  int    `json:"puts"`
	Len   int    `json:"len"`
	Epoch uint64 `json:"epoch"`
}

// RouteCache is a bounded LRU of path results. Safe for concurrent use.
type RouteCache struct {
	size int

	mu    sync.Mutex
	lru   *tinylru.LRU
	epoch uint64
	gets  int
	hits  int
	puts  int
}

// NewRouteCache returns a cache holding up to size routes
func NewRouteCache(size int) *RouteCache {
	if size <= 0 {
		size = DefaultSize
	}
	return &RouteCache{size: size, lru: newLRU(size)}
}

func newLRU(size int) *tinylru.LRU {
	lru := &tinylru.LRU{}
	lru.Resize(size)
	return lru
}

func (c *RouteCache) current() *tinylru.LRU {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru
}

// Get returns a cached result. Results are shared; callers must not modify
// them.
func (c *RouteCache) Get(k RouteKey) (*model.PathResult, bool) {
	v, ok := c.current().Get(k)

	c.mu.Lock()
	c.gets++
	if ok {
		c.hits++
	}
	c.mu.Unlock()

	if !ok {
		return nil, false
	}
	return v.(*model.PathResult), true
}

// Put stores a result
func (c *RouteCache) Put(k RouteKey, r *model.PathResult) {
	c.current().Set(k, r)

	c.mu.Lock()
	c.puts++
	c.mu.Unlock()
}

// Epoch returns the current graph epoch
func (c *RouteCache) Epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// BumpEpoch invalidates all cached routes and drops them from memory
func (c *RouteCache) BumpEpoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.lru = newLRU(c.size)
	return c.epoch
}

// Stats returns a snapshot of the counters
func (c *RouteCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Gets:  c.gets,
		Hits:  c.hits,
		Puts:  c.puts,
		Len:   c.lru.Len(),
		Epoch: c.epoch,
	}
}
