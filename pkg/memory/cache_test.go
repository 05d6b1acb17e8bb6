package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkingCache_PutGetRemove(t *testing.T) {
	c := NewWorkingCache(10)

	rec := &Record{ID: "a", Content: "hello", Tags: []string{"x"}}
	c.Put(rec)

	got := c.Get("a")
	assert.Equal(t, "hello", got.Content)

	got.Content = "mutated"
	refetched := c.Get("a")
	assert.Equal(t, "hello", refetched.Content, "Get must return a clone, not the stored pointer")

	assert.Nil(t, c.Get("missing"))

	c.Remove("a")
	assert.Nil(t, c.Get("a"))
}

func TestWorkingCache_Len(t *testing.T) {
	c := NewWorkingCache(10)
	assert.Equal(t, 0, c.Len())

	c.Put(&Record{ID: "1"})
	c.Put(&Record{ID: "2"})
	assert.Equal(t, 2, c.Len())
}

func TestWorkingCache_DefaultCapacity(t *testing.T) {
	c := NewWorkingCache(0)
	assert.Equal(t, defaultCacheCapacity, c.capacity)
}

func TestWorkingCache_HydratePrunesToCapacity(t *testing.T) {
	c := NewWorkingCache(2)

	now := nowMillis()
	all := []*Record{
		{ID: "low", AccessCount: 1, LastAccessed: now - 1000000},
		{ID: "high", AccessCount: 100, LastAccessed: now},
		{ID: "mid", AccessCount: 10, LastAccessed: now},
	}
	c.Hydrate(all)

	assert.Equal(t, 2, c.Len())
	assert.NotNil(t, c.Get("high"))
	assert.NotNil(t, c.Get("mid"))
	assert.Nil(t, c.Get("low"))
}
