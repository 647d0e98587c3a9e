package geometry

import (
	"math"
	"sync"

	"github.com/golang/groupcache/lru"
)

// DefaultAngleCacheSize is the number of distinct polygons an AngleVectorCache
// remembers when no size is configured.
const DefaultAngleCacheSize = 64

type angleKey struct {
	symmetryOrder uint
	phi0Bits      uint64
}

// AngleVectorCache memoises filled AngleVectors by (symmetry order, phi0).
// Vectors handed out are shared between callers and must not be modified.
type AngleVectorCache struct {
	mu    sync.Mutex
	cache *lru.Cache

	hits   uint64
	misses uint64
}

// NewAngleVectorCache creates a cache holding at most size polygons.
// A size <= 0 uses DefaultAngleCacheSize.
func NewAngleVectorCache(size int) *AngleVectorCache {
	if size <= 0 {
		size = DefaultAngleCacheSize
	}
	return &AngleVectorCache{cache: lru.New(size)}
}

// Get returns the AngleVector for the polygon, filling it on first use.
func (c *AngleVectorCache) Get(symmetryOrder uint, phi0 float64) (AngleVector, error) {
	key := angleKey{symmetryOrder: symmetryOrder, phi0Bits: math.Float64bits(phi0)}

	c.mu.Lock()
	if v, ok := c.cache.Get(key); ok {
		c.hits++
		c.mu.Unlock()
		return v.(AngleVector), nil
	}
	c.misses++
	c.mu.Unlock()

	// Filling is pure, so a racing fill for the same key produces an
	// identical vector and either may win.
	angles, err := NewAngleVector(symmetryOrder, phi0)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache.Add(key, angles)
	c.mu.Unlock()
	return angles, nil
}

// Len returns the number of polygons currently cached.
func (c *AngleVectorCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Len()
}

// Stats returns the hit and miss counts since creation or the last Clear.
func (c *AngleVectorCache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Clear drops every cached vector and resets the counters.
func (c *AngleVectorCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Clear()
	c.hits, c.misses = 0, 0
}
