// Package treecache holds the latest syntax tree of each open document.
package treecache

import (
	"sync"

	"github.com/GigiaJ/Beguile/internal/syntax"
)

// Cache maps document URIs to their most recent tree. Each entry is
// replaced whole, so readers never observe a partially built tree.
type Cache struct {
	mu    sync.RWMutex
	trees map[string]*syntax.Tree
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{trees: make(map[string]*syntax.Tree)}
}

// Refresh parses text and stores the result under uri.
func (c *Cache) Refresh(uri, text string) *syntax.Tree {
	t := syntax.Parse(text)
	c.mu.Lock()
	c.trees[uri] = t
	c.mu.Unlock()
	return t
}

// Get returns the tree stored for uri. The tree is rebuilt when there is no
// entry or when the entry was built from different text.
func (c *Cache) Get(uri, text string) *syntax.Tree {
	c.mu.RLock()
	t, ok := c.trees[uri]
	c.mu.RUnlock()
	if ok && t.Text == text {
		return t
	}
	return c.Refresh(uri, text)
}

// Lookup returns the stored tree without refreshing it.
func (c *Cache) Lookup(uri string) (*syntax.Tree, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.trees[uri]
	return t, ok
}

// Evict drops the entry for uri.
func (c *Cache) Evict(uri string) {
	c.mu.Lock()
	delete(c.trees, uri)
	c.mu.Unlock()
}

// Len returns the number of cached documents.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.trees)
}
