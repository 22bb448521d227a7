package cache

import (
	"math"
	"strings"
	"sync"
	"time"
)

type entry struct {
	value     any
	expiresAt time.Time
}

type memoryCache struct {
	mutex   sync.Mutex
	entries map[string]*entry
	cfg     config

	hits          int64
	misses        int64
	sets          int64
	invalidations int64
}

var _ Cache = (*memoryCache)(nil)

// New returns an in-memory Cache. The zero-option cache uses time.Now as
// its clock and DefaultTTL for Set calls that pass a zero TTL.
func New(opts ...Option) Cache {
	return &memoryCache{
		entries: make(map[string]*entry),
		cfg:     applyOptions(opts),
	}
}

func (c *memoryCache) Get(key string) (any, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	// now >= expiresAt means expired; evict lazily.
	if !c.cfg.now().Before(e.expiresAt) {
		delete(c.entries, key)
		c.misses++
		return nil, false
	}
	c.hits++
	return e.value, true
}

func (c *memoryCache) Set(key string, val any, ttl time.Duration) error {
	if ttl < 0 {
		return ErrInvalidTTL
	}
	if ttl == 0 {
		ttl = c.cfg.defaultTTL
	}
	c.mutex.Lock()
	c.entries[key] = &entry{value: val, expiresAt: c.cfg.now().Add(ttl)}
	c.sets++
	c.mutex.Unlock()
	return nil
}

func (c *memoryCache) Invalidate(prefix string) int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	var removed int
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			removed++
		}
	}
	c.invalidations += int64(removed)
	return removed
}

func (c *memoryCache) InvalidateAll() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	removed := len(c.entries)
	c.entries = make(map[string]*entry)
	c.invalidations += int64(removed)
	return removed
}

func (c *memoryCache) Size() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.entries)
}

func (c *memoryCache) Stats() Stats {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	s := Stats{
		Hits:          c.hits,
		Misses:        c.misses,
		Sets:          c.sets,
		Invalidations: c.invalidations,
		TotalRequests: c.hits + c.misses,
		CurrentSize:   len(c.entries),
	}
	if s.TotalRequests > 0 {
		rate := float64(c.hits) / float64(s.TotalRequests) * 100
		s.HitRate = math.Round(rate*100) / 100
	}
	return s
}

func (c *memoryCache) ResetStats() {
	c.mutex.Lock()
	c.hits = 0
	c.misses = 0
	c.sets = 0
	c.invalidations = 0
	c.mutex.Unlock()
}
