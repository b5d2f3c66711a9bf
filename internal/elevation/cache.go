package elevation

import (
	"fmt"
	"sync"

	"github.com/yourusername/sunviewfinder/internal/geo"
)

// cacheKey rounds a coordinate to 5 decimal places (~1.1m at the
// equator), matching precision callers actually need while collapsing
// near-duplicate grid/ray samples onto the same cache entry.
func cacheKey(c geo.Coordinate) string {
	return fmt.Sprintf("%.5f,%.5f", c.Lat, c.Lng)
}

// pointCache is a process-lifetime, in-memory store of resolved
// elevations keyed by rounded coordinate. It is never backed by a
// database; entries live only as long as the process does.
type pointCache struct {
	mu      sync.RWMutex
	entries map[string]float64
}

func newPointCache() *pointCache {
	return &pointCache{entries: make(map[string]float64)}
}

func (c *pointCache) get(pt geo.Coordinate) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[cacheKey(pt)]
	return v, ok
}

func (c *pointCache) put(pt geo.Coordinate, elevationM float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(pt)] = elevationM
}

func (c *pointCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// clear empties the cache. Invalidation is otherwise never automatic:
// entries live for the process lifetime until clear is called.
func (c *pointCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]float64)
}
