package resolver

import (
	"sync"

	"resolverd/internal/config"
	"resolverd/internal/resolver/collector"
)

// Cache maps resolution keys to previously selected handlers. It must
// be safe for concurrent use; the engine performs only a single Get and
// a single Put per resolution, so same-key write races are benign.
type Cache interface {
	Get(key collector.Key) (Handler, bool)
	Put(key collector.Key, h Handler)
	Clear()

	// KnownExtensions returns the script engine extensions currently
	// available, passed through to candidate collection unchanged.
	KnownExtensions() []string
}

// MemoryCache is the in-process resolution cache. A configured size
// below config.MinCacheSize disables caching entirely; when full the
// cache stops accepting new entries until cleared.
type MemoryCache struct {
	mu         sync.RWMutex
	entries    map[collector.Key]Handler
	maxSize    int
	extensions []string
}

// NewMemoryCache creates a cache of the given size knowing the given
// script engine extensions.
func NewMemoryCache(size int, knownExtensions []string) *MemoryCache {
	exts := make([]string, len(knownExtensions))
	copy(exts, knownExtensions)
	c := &MemoryCache{
		maxSize:    size,
		extensions: exts,
	}
	if c.enabled() {
		c.entries = make(map[collector.Key]Handler)
	}
	return c
}

func (c *MemoryCache) enabled() bool {
	return c.maxSize >= config.MinCacheSize
}

// Get returns the cached handler for the key.
func (c *MemoryCache) Get(key collector.Key) (Handler, bool) {
	if !c.enabled() {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.entries[key]
	return h, ok
}

// Put stores a handler for the key. Two concurrent resolutions of the
// same key compute the same handler, so last write wins.
func (c *MemoryCache) Put(key collector.Key, h Handler) {
	if !c.enabled() || h == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.maxSize {
		return
	}
	c.entries[key] = h
}

// Clear drops all entries.
func (c *MemoryCache) Clear() {
	if !c.enabled() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[collector.Key]Handler)
}

// Len returns the number of cached entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// KnownExtensions returns the configured script engine extensions.
func (c *MemoryCache) KnownExtensions() []string {
	exts := make([]string, len(c.extensions))
	copy(exts, c.extensions)
	return exts
}
