package courselookup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildIndex(t *testing.T, texts []string, opts ...Options) *Index {
	t.Helper()
	idx := NewIndex("test", opts...)
	for i, text := range texts {
		require.NoError(t, idx.Add(i, text))
	}
	idx.Seal()
	return idx
}

func TestIndexPrefixMatch(t *testing.T) {
	idx := buildIndex(t, []string{
		"COMP248 COMP Object-Oriented Programming I 248",
		"COMP352 COMP Data Structures and Algorithms 352",
		"MATH204 MATH Vectors and Matrices 204",
	})

	tests := []struct {
		name  string
		query string
		want  []int
	}{
		{"subject prefix", "co", []int{0, 1}},
		{"id prefix", "COMP2", []int{0}},
		{"title word", "struct", []int{1}},
		{"and across tokens", "comp data", []int{1}},
		{"and excludes", "comp vectors", nil},
		{"hyphen splits tokens", "oriented", []int{0}},
		{"case insensitive", "MaTr", []int{2}},
		{"no match", "zzz", nil},
		{"empty", "", nil},
		{"punctuation only", " -- ", nil},
		{"shared prefix", "and", []int{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, idx.Search(tt.query, 10))
		})
	}
}

func TestIndexLimit(t *testing.T) {
	idx := buildIndex(t, []string{"comp a", "comp b", "comp c", "comp d"})
	assert.Equal(t, []int{0, 1}, idx.Search("comp", 2))
	assert.Nil(t, idx.Search("comp", 0))
	assert.Nil(t, idx.Search("comp", -1))
}

func TestIndexSearchWhere(t *testing.T) {
	idx := buildIndex(t, []string{"comp a", "comp b", "comp c", "comp d"})
	odd := func(docID int) bool { return docID%2 == 1 }
	assert.Equal(t, []int{1, 3}, idx.SearchWhere("comp", 5, odd))
	assert.Equal(t, []int{1}, idx.SearchWhere("comp", 1, odd))
}

func TestIndexSealed(t *testing.T) {
	idx := NewIndex("sealed")
	require.NoError(t, idx.Add(0, "hello"))
	idx.Seal()
	assert.True(t, idx.Sealed())
	assert.ErrorIs(t, idx.Add(1, "world"), ErrIndexSealed)
	assert.Equal(t, []int{0}, idx.Search("he", 5))
}

func TestIndexNegativeDocID(t *testing.T) {
	idx := NewIndex("neg")
	assert.Error(t, idx.Add(-1, "hello"))
}

func TestPostingStoresAgree(t *testing.T) {
	var texts []string
	for _, c := range sampleCourses() {
		texts = append(texts, c.Text())
	}
	trieIdx := buildIndex(t, texts)
	prefixIdx := buildIndex(t, texts, WithForwardPrefixes())

	for _, q := range []string{"c", "co", "comp", "comp3", "o", "object prog", "in", "int th", "2", "math 2", "x", "benoit", "système"} {
		assert.Equal(t, trieIdx.Search(q, 100), prefixIdx.Search(q, 100), q)
	}
	assert.Greater(t, prefixIdx.Status()["terms"], trieIdx.Status()["terms"])
}

func TestIndexCustomAnalyzer(t *testing.T) {
	stop := NewForwardAnalyzer(ForwardAnalyzerWithStopWords("and", "the"))
	idx := buildIndex(t, []string{"Data Structures and Algorithms"}, WithAnalyzer(stop))
	assert.Nil(t, idx.Search("and", 5))
	assert.Equal(t, []int{0}, idx.Search("the data", 5))

	upper := AnalyzerFunc(func(text string) []string { return []string{text} })
	exact := buildIndex(t, []string{"Foo Bar"}, WithAnalyzer(upper))
	assert.Equal(t, []int{0}, exact.Search("Foo B", 5))
	assert.Nil(t, exact.Search("foo", 5))
}

func TestUniqueTokens(t *testing.T) {
	assert.Equal(t, []string{"comp248"}, uniqueTokens([]string{"comp", "comp248"}))
	assert.Equal(t, []string{"comp"}, uniqueTokens([]string{"comp", "comp"}))
	assert.Equal(t, []string{"data", "comp"}, uniqueTokens([]string{"data", "comp"}))
}
