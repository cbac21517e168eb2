package hybrid

import (
	"sync"

	"github.com/walteh/gotmpls-hybrid/pkg/semtok"
)

type cacheEntry struct {
	version int32
	tokens  *semtok.SemanticTokens
}

// Cache holds the last result per document. Only the current version of a
// document is kept; storing a new version replaces the old one.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

// Get returns the stored result only when version matches.
func (c *Cache) Get(uri string, version int32) (*semtok.SemanticTokens, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[uri]
	if !ok || e.version != version {
		return nil, false
	}
	return e.tokens, true
}

func (c *Cache) Put(uri string, version int32, tokens *semtok.SemanticTokens) {
	c.mu.Lock()
	c.entries[uri] = cacheEntry{version: version, tokens: tokens}
	c.mu.Unlock()
}

func (c *Cache) Evict(uri string) {
	c.mu.Lock()
	delete(c.entries, uri)
	c.mu.Unlock()
}

func (c *Cache) Reset() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
