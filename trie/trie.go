package trie

import (
	"bytes"
)

// Trie is a compressed radix trie keyed by byte strings.
// It is not safe for concurrent mutation; concurrent reads are fine once
// writes have stopped.
type Trie[V any] struct {
	root *node[V]
	size int
}

// node represents a node in the trie
type node[V any] struct {
	label  []byte // compressed path (can be more than one byte)
	value  V
	child  map[byte]*node[V]
	isLeaf bool
}

// New creates a new Trie
func New[V any]() *Trie[V] {
	return &Trie[V]{root: &node[V]{}}
}

// Len reports the number of keys stored.
func (t *Trie[V]) Len() int {
	return t.size
}

// Insert adds or replaces the value stored under key.
func (t *Trie[V]) Insert(key string, value V) {
	t.insert(t.root, []byte(key), value)
}

// Upsert stores fn(old, found) under key.
func (t *Trie[V]) Upsert(key string, fn func(old V, found bool) V) {
	old, found := t.Get(key)
	t.Insert(key, fn(old, found))
}

func (t *Trie[V]) insert(n *node[V], key []byte, value V) {
	if len(key) == 0 {
		if !n.isLeaf {
			t.size++
		}
		n.value = value
		n.isLeaf = true
		return
	}

	c := key[0]
	child := n.child[c]
	if child == nil {
		n.setChild(&node[V]{label: bytes.Clone(key), value: value, isLeaf: true})
		t.size++
		return
	}

	common := commonPrefix(key, child.label)
	if len(common) == len(child.label) {
		t.insert(child, key[len(common):], value)
		return
	}

	// Split the existing child at the end of the shared prefix.
	split := &node[V]{label: bytes.Clone(common)}
	child.label = child.label[len(common):]
	split.setChild(child)
	n.setChild(split)

	if len(common) == len(key) {
		split.value = value
		split.isLeaf = true
		t.size++
		return
	}
	split.setChild(&node[V]{label: bytes.Clone(key[len(common):]), value: value, isLeaf: true})
	t.size++
}

func (n *node[V]) setChild(child *node[V]) {
	if n.child == nil {
		n.child = make(map[byte]*node[V], 2)
	}
	n.child[child.label[0]] = child
}

// Get returns the value for a given key
func (t *Trie[V]) Get(key string) (V, bool) {
	k := []byte(key)
	n := t.root

	for len(k) > 0 {
		child := n.child[k[0]]
		if child == nil || !bytes.HasPrefix(k, child.label) {
			var zero V
			return zero, false
		}
		k = k[len(child.label):]
		n = child
	}

	if n.isLeaf {
		return n.value, true
	}
	var zero V
	return zero, false
}

// WalkPrefix calls fn for every key starting with prefix, in byte order.
// Returning false from fn stops the walk.
func (t *Trie[V]) WalkPrefix(prefix string, fn func(key string, value V) bool) {
	p := []byte(prefix)
	n := t.root
	path := make([]byte, 0, len(p)+16)

	for len(p) > 0 {
		child := n.child[p[0]]
		if child == nil {
			return
		}
		switch {
		case bytes.HasPrefix(p, child.label):
			p = p[len(child.label):]
		case bytes.HasPrefix(child.label, p):
			p = nil
		default:
			return
		}
		path = append(path, child.label...)
		n = child
	}
	walk(n, path, fn)
}

func walk[V any](n *node[V], path []byte, fn func(string, V) bool) bool {
	if n.isLeaf && !fn(string(path), n.value) {
		return false
	}
	for c := 0; c < 256; c++ {
		child, ok := n.child[byte(c)]
		if !ok {
			continue
		}
		next := make([]byte, len(path), len(path)+len(child.label))
		copy(next, path)
		if !walk(child, append(next, child.label...), fn) {
			return false
		}
	}
	return true
}

// Helper: find common prefix
func commonPrefix(a, b []byte) []byte {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return a[:i]
}
