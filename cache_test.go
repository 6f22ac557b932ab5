package courselookup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQueryCacheLRU(t *testing.T) {
	c := NewQueryCache(2, 0, nil)
	c.Put(1, Results{Query: "a"})
	c.Put(2, Results{Query: "b"})

	got, ok := c.Get(1)
	assert.True(t, ok)
	assert.Equal(t, "a", got.Query)

	c.Put(3, Results{Query: "c"})
	_, ok = c.Get(2)
	assert.False(t, ok, "least recently used entry should be evicted")
	_, ok = c.Get(1)
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())

	c.Put(1, Results{Query: "a2"})
	got, _ = c.Get(1)
	assert.Equal(t, "a2", got.Query)
	assert.Equal(t, 2, c.Len())
}

func TestQueryCacheTTL(t *testing.T) {
	c := NewQueryCache(4, time.Millisecond, nil)
	c.Put(1, Results{Query: "a"})
	time.Sleep(5 * time.Millisecond)
	_, ok := c.Get(1)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestQueryCacheDisabled(t *testing.T) {
	c := NewQueryCache(0, 0, nil)
	c.Put(1, Results{})
	_, ok := c.Get(1)
	assert.False(t, ok)

	var nilCache *QueryCache
	nilCache.Put(1, Results{})
	_, ok = nilCache.Get(1)
	assert.False(t, ok)
	assert.Equal(t, 0, nilCache.Len())
}

func TestQueryKey(t *testing.T) {
	base := QueryKey(1, "comp", DefaultCaps())
	assert.Equal(t, base, QueryKey(1, "comp", DefaultCaps()))
	assert.NotEqual(t, base, QueryKey(2, "comp", DefaultCaps()))
	assert.NotEqual(t, base, QueryKey(1, "comp2", DefaultCaps()))
	assert.NotEqual(t, base, QueryKey(1, "comp", Caps{Courses: 4, Instructors: 3}))
	assert.NotEqual(t, base, QueryKey(1, "comp", DefaultCaps(), "subject = 'COMP'"))
}
