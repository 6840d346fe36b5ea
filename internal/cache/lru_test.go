package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUCacheGetSet(t *testing.T) {
	c := NewLRUCache[int64](4, time.Hour)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("category:food", 7)
	got, ok := c.Get("category:food")
	require.True(t, ok)
	assert.EqualValues(t, 7, got)

	c.Set("category:food", 8)
	got, _ = c.Get("category:food")
	assert.EqualValues(t, 8, got)
	assert.Equal(t, 1, c.Size())
}

func TestLRUCacheEvictsOldest(t *testing.T) {
	c := NewLRUCache[int](2, time.Hour)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // refresh recency so b is the eviction candidate
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Size())
}

func TestLRUCacheExpiresEntries(t *testing.T) {
	c := NewLRUCache[int](4, time.Millisecond)

	c.Set("a", 1)
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Size())
}

func TestLRUCacheDelete(t *testing.T) {
	c := NewLRUCache[int](4, time.Hour)

	c.Set("a", 1)
	c.Delete("a")
	c.Delete("a") // idempotent

	_, ok := c.Get("a")
	assert.False(t, ok)
}
