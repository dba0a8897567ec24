package app

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// ContentCache remembers the xxhash of the last content extracted per file.
type ContentCache struct {
	mu     sync.RWMutex
	hashes map[string]uint64
}

func NewContentCache() *ContentCache {
	return &ContentCache{hashes: make(map[string]uint64)}
}

func HashContent(content []byte) uint64 {
	return xxhash.Sum64(content)
}

// Changed hashes content and reports whether it differs from what was last
// stored for path.
func (c *ContentCache) Changed(path string, content []byte) (uint64, bool) {
	hash := HashContent(content)
	c.mu.RLock()
	defer c.mu.RUnlock()
	prev, ok := c.hashes[path]
	return hash, !ok || prev != hash
}

func (c *ContentCache) Put(path string, hash uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hashes[path] = hash
}

func (c *ContentCache) Drop(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.hashes, path)
}

func (c *ContentCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.hashes)
}
