package courselookup

import (
	"fmt"
	"strings"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
)

// Index is a forward-tokenized prefix index over documents identified by
// their position. Documents are added during a build; after Seal the index
// is read-only and safe for concurrent searches.
type Index struct {
	sync.RWMutex
	ID        string
	TotalDocs int
	analyzer  Analyzer
	postings  PostingStore
	sealed    bool
}

// Options configures an Index.
type Options func(*Index)

// WithAnalyzer replaces the default ForwardAnalyzer.
func WithAnalyzer(an Analyzer) Options {
	return func(index *Index) {
		if an != nil {
			index.analyzer = an
		}
	}
}

// WithForwardPrefixes materializes every prefix of every term. Matches are
// identical to the default trie store; queries are faster and memory use
// grows with term length.
func WithForwardPrefixes() Options {
	return func(index *Index) {
		index.postings = newPrefixStore()
	}
}

// WithPostingStore installs a custom PostingStore.
func WithPostingStore(store PostingStore) Options {
	return func(index *Index) {
		if store != nil {
			index.postings = store
		}
	}
}

// NewIndex returns an empty index.
func NewIndex(id string, opts ...Options) *Index {
	index := &Index{
		ID:       id,
		analyzer: defaultAnalyzer,
	}
	for _, opt := range opts {
		opt(index)
	}
	if index.postings == nil {
		index.postings = newTrieStore()
	}
	return index
}

// Add indexes text under the document position docID.
func (index *Index) Add(docID int, text string) error {
	if docID < 0 {
		return fmt.Errorf("courselookup: negative document id %d", docID)
	}
	terms := index.analyzer.Analyze(text)
	index.Lock()
	defer index.Unlock()
	if index.sealed {
		return ErrIndexSealed
	}
	for _, term := range terms {
		index.postings.Add(term, uint32(docID))
	}
	index.TotalDocs++
	return nil
}

// Seal compacts the postings and freezes the index.
func (index *Index) Seal() {
	index.Lock()
	defer index.Unlock()
	if index.sealed {
		return
	}
	index.postings.Seal()
	index.sealed = true
}

// Sealed reports whether Seal has been called.
func (index *Index) Sealed() bool {
	index.RLock()
	defer index.RUnlock()
	return index.sealed
}

// Search returns up to limit document positions, ascending, whose terms
// cover every query token as a prefix.
func (index *Index) Search(query string, limit int) []int {
	return index.SearchWhere(query, limit, nil)
}

// SearchWhere is Search with an extra predicate evaluated, in position
// order, before the limit is applied.
func (index *Index) SearchWhere(query string, limit int, keep func(docID int) bool) []int {
	if index == nil || limit <= 0 {
		return nil
	}
	matches := index.Match(query)
	if matches == nil || matches.IsEmpty() {
		return nil
	}
	out := make([]int, 0, min(limit, int(matches.GetCardinality())))
	it := matches.Iterator()
	for it.HasNext() && len(out) < limit {
		docID := int(it.Next())
		if keep != nil && !keep(docID) {
			continue
		}
		out = append(out, docID)
	}
	return out
}

// Match returns every document matching query, or nil when the query has
// no tokens.
func (index *Index) Match(query string) *roaring.Bitmap {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	tokens := uniqueTokens(index.analyzer.Analyze(query))
	if len(tokens) == 0 {
		return nil
	}
	index.RLock()
	defer index.RUnlock()
	var result *roaring.Bitmap
	for _, tok := range tokens {
		bm := index.postings.Match(tok)
		if result == nil {
			result = bm
		} else {
			result.And(bm)
		}
		if result.IsEmpty() {
			break
		}
	}
	return result
}

// Status reports index statistics.
func (index *Index) Status() map[string]any {
	index.RLock()
	defer index.RUnlock()
	return map[string]any{
		"id":         index.ID,
		"total_docs": index.TotalDocs,
		"terms":      index.postings.Len(),
		"sealed":     index.sealed,
	}
}

// uniqueTokens drops repeated query tokens and tokens that are a prefix of
// another token, since those add no constraint to an AND of prefixes.
func uniqueTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for i, tok := range tokens {
		redundant := false
		for j, other := range tokens {
			if i == j {
				continue
			}
			if strings.HasPrefix(other, tok) && (len(other) > len(tok) || j < i) {
				redundant = true
				break
			}
		}
		if !redundant {
			out = append(out, tok)
		}
	}
	return out
}
