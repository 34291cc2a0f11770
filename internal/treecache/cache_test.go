package treecache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_GetBuildsOnMiss(t *testing.T) {
	t.Parallel()
	c := New()
	tree := c.Get("file:///a.scm", "(a)")
	require.NotNil(t, tree)
	assert.Equal(t, "(a)", tree.Text)
	assert.Same(t, tree, c.Get("file:///a.scm", "(a)"))
}

func TestCache_StaleTextRefreshes(t *testing.T) {
	t.Parallel()
	c := New()
	old := c.Get("doc", "(a)")
	fresh := c.Get("doc", "(a b)")
	assert.NotSame(t, old, fresh)
	assert.Equal(t, "(a b)", fresh.Text)

	got, ok := c.Lookup("doc")
	require.True(t, ok)
	assert.Same(t, fresh, got)
}

func TestCache_RefreshOverwrites(t *testing.T) {
	t.Parallel()
	c := New()
	c.Refresh("doc", "x")
	second := c.Refresh("doc", "y")
	got, _ := c.Lookup("doc")
	assert.Same(t, second, got)
	assert.Equal(t, 1, c.Len())
}

func TestCache_Evict(t *testing.T) {
	t.Parallel()
	c := New()
	c.Refresh("doc", "x")
	c.Evict("doc")
	_, ok := c.Lookup("doc")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
	c.Evict("missing")
}

func TestCache_ConcurrentAccess(t *testing.T) {
	t.Parallel()
	c := New()
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			uri := fmt.Sprintf("doc%d", i%2)
			for j := range 50 {
				text := fmt.Sprintf("(f %d)", j)
				tree := c.Get(uri, text)
				assert.Equal(t, text, tree.Text)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 2, c.Len())
}
