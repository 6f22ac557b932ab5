package trie

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *Trie[int], prefix string) []string {
	var keys []string
	t.WalkPrefix(prefix, func(key string, _ int) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

func TestInsertGet(t *testing.T) {
	tr := New[int]()
	tr.Insert("comp", 1)
	tr.Insert("comp248", 2)
	tr.Insert("compilers", 3)
	tr.Insert("co", 4)
	tr.Insert("math", 5)

	for key, want := range map[string]int{"comp": 1, "comp248": 2, "compilers": 3, "co": 4, "math": 5} {
		got, ok := tr.Get(key)
		require.True(t, ok, key)
		assert.Equal(t, want, got, key)
	}
	_, ok := tr.Get("com")
	assert.False(t, ok)
	_, ok = tr.Get("compx")
	assert.False(t, ok)
	assert.Equal(t, 5, tr.Len())

	tr.Insert("comp", 10)
	got, _ := tr.Get("comp")
	assert.Equal(t, 10, got)
	assert.Equal(t, 5, tr.Len())
}

func TestUpsert(t *testing.T) {
	tr := New[int]()
	inc := func(old int, _ bool) int { return old + 1 }
	tr.Upsert("a", inc)
	tr.Upsert("a", inc)
	got, ok := tr.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, got)
}

func TestWalkPrefix(t *testing.T) {
	tr := New[int]()
	for i, k := range []string{"comp", "comp248", "compilers", "co", "math", "jane", "janet"} {
		tr.Insert(k, i)
	}

	assert.Equal(t, []string{"co", "comp", "comp248", "compilers"}, collect(tr, "c"))
	assert.Equal(t, []string{"comp", "comp248", "compilers"}, collect(tr, "com"))
	assert.Equal(t, []string{"compilers"}, collect(tr, "compi"))
	assert.Equal(t, []string{"jane", "janet"}, collect(tr, "jan"))
	assert.Nil(t, collect(tr, "x"))
	assert.Nil(t, collect(tr, "compz"))
	assert.Len(t, collect(tr, ""), 7)
}

func TestWalkPrefixStops(t *testing.T) {
	tr := New[int]()
	for i, k := range []string{"a", "ab", "abc"} {
		tr.Insert(k, i)
	}
	var seen int
	tr.WalkPrefix("a", func(string, int) bool {
		seen++
		return false
	})
	assert.Equal(t, 1, seen)
}
