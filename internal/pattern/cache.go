package pattern

import (
	"sync"
	"sync/atomic"
)

// Cache maps pattern strings to their compiled form.  Each distinct pattern is
// compiled at most once until the cache is cleared.
type Cache struct {
	mu       sync.RWMutex
	entries  map[string]Compiled
	compiles atomic.Uint64
}

// NewCache creates an empty pattern cache
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]Compiled),
	}
}

// Get returns the compiled form of pattern, compiling it on first use
func (c *Cache) Get(pattern string) Compiled {
	c.mu.RLock()
	compiled, ok := c.entries[pattern]
	c.mu.RUnlock()
	if ok {
		return compiled
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if compiled, ok = c.entries[pattern]; ok {
		return compiled
	}

	compiled = Compile(pattern)
	c.compiles.Add(1)
	c.entries[pattern] = compiled

	return compiled
}

// Precompile compiles every pattern not already cached and returns how many
// of them turned out Invalid
func (c *Cache) Precompile(patterns []string) (invalid int) {
	for _, p := range patterns {
		if !c.Get(p).Valid() {
			invalid++
		}
	}
	return invalid
}

// Lookup returns the cached result for pattern without compiling it
func (c *Cache) Lookup(pattern string) (Compiled, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	compiled, ok := c.entries[pattern]
	return compiled, ok
}

// Len returns the number of cached entries, Invalid ones included
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Compiles returns how many compilations the cache has performed
func (c *Cache) Compiles() uint64 {
	return c.compiles.Load()
}

// Clear discards all cached results
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.entries)
}
