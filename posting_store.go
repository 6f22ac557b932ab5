package courselookup

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/oarkflow/courselookup/trie"
	"github.com/oarkflow/courselookup/utils"
)

// PostingStore abstracts how term postings are stored and matched.
// Writes happen during a build; once sealed the store only serves reads and
// is safe for concurrent use.
type PostingStore interface {
	// Add records that docID contains term.
	Add(term string, docID uint32)
	// Match returns the documents holding a term that starts with prefix.
	// The returned bitmap is owned by the caller.
	Match(prefix string) *roaring.Bitmap
	// Seal compacts the store; no Add follows.
	Seal()
	// Len reports the number of distinct keys held.
	Len() int
}

// trieStore keeps one bitmap per full term in a radix trie; a prefix match
// unions the bitmaps of the matching subtree.
type trieStore struct {
	terms *trie.Trie[*roaring.Bitmap]
}

func newTrieStore() *trieStore {
	return &trieStore{terms: trie.New[*roaring.Bitmap]()}
}

func (s *trieStore) Add(term string, docID uint32) {
	s.terms.Upsert(term, func(bm *roaring.Bitmap, found bool) *roaring.Bitmap {
		if !found {
			bm = roaring.New()
		}
		bm.Add(docID)
		return bm
	})
}

func (s *trieStore) Match(prefix string) *roaring.Bitmap {
	var parts []*roaring.Bitmap
	s.terms.WalkPrefix(prefix, func(_ string, bm *roaring.Bitmap) bool {
		parts = append(parts, bm)
		return true
	})
	switch len(parts) {
	case 0:
		return roaring.New()
	case 1:
		return parts[0].Clone()
	default:
		return roaring.FastOr(parts...)
	}
}

func (s *trieStore) Seal() {
	s.terms.WalkPrefix("", func(_ string, bm *roaring.Bitmap) bool {
		bm.RunOptimize()
		return true
	})
}

func (s *trieStore) Len() int {
	return s.terms.Len()
}

// prefixStore materializes every prefix of every term, so a match is a
// single map lookup.
type prefixStore struct {
	data map[string]*roaring.Bitmap
}

func newPrefixStore() *prefixStore {
	return &prefixStore{data: make(map[string]*roaring.Bitmap)}
}

func (s *prefixStore) Add(term string, docID uint32) {
	for _, p := range utils.Prefixes(term) {
		bm, ok := s.data[p]
		if !ok {
			bm = roaring.New()
			s.data[p] = bm
		}
		bm.Add(docID)
	}
}

func (s *prefixStore) Match(prefix string) *roaring.Bitmap {
	bm, ok := s.data[prefix]
	if !ok {
		return roaring.New()
	}
	return bm.Clone()
}

func (s *prefixStore) Seal() {
	for _, bm := range s.data {
		bm.RunOptimize()
	}
}

func (s *prefixStore) Len() int {
	return len(s.data)
}
