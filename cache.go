package courselookup

import (
	"container/list"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

type cacheEntry struct {
	key    uint64
	data   Results
	expiry time.Time
}

// QueryCache is an LRU of query results keyed by QueryKey. Snapshots are
// immutable, so an entry stays valid for as long as its snapshot is served.
// Cached Results share their slices between callers and must not be
// modified.
type QueryCache struct {
	mu       sync.Mutex
	entries  map[uint64]*list.Element
	lru      *list.List
	capacity int
	ttl      time.Duration
	observer Observer
}

// NewQueryCache creates a cache holding at most capacity results. A zero
// ttl keeps entries until they are evicted. A capacity below one disables
// caching.
func NewQueryCache(capacity int, ttl time.Duration, observer Observer) *QueryCache {
	if observer == nil {
		observer = NoopObserver{}
	}
	return &QueryCache{
		entries:  make(map[uint64]*list.Element, max(capacity, 0)),
		lru:      list.New(),
		capacity: capacity,
		ttl:      ttl,
		observer: observer,
	}
}

// QueryKey hashes everything that determines a result: the snapshot
// fingerprint, the raw query, the caps and any condition strings.
func QueryKey(fingerprint uint64, query string, caps Caps, conditions ...string) uint64 {
	h := xxhash.New()
	var buf [20]byte
	_, _ = h.Write(strconv.AppendUint(buf[:0], fingerprint, 16))
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(query)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write(strconv.AppendInt(buf[:0], int64(caps.Courses), 10))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write(strconv.AppendInt(buf[:0], int64(caps.Instructors), 10))
	for _, c := range conditions {
		_, _ = h.Write([]byte{0})
		_, _ = h.WriteString(c)
	}
	return h.Sum64()
}

// Get retrieves a result and marks it most recently used.
func (c *QueryCache) Get(key uint64) (Results, bool) {
	if c == nil || c.capacity < 1 {
		return Results{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		c.observer.ObserveCache(false)
		return Results{}, false
	}
	entry := el.Value.(*cacheEntry)
	if !entry.expiry.IsZero() && time.Now().After(entry.expiry) {
		c.removeElement(el)
		c.observer.ObserveCache(false)
		return Results{}, false
	}
	c.lru.MoveToFront(el)
	c.observer.ObserveCache(true)
	return entry.data, true
}

// Put stores a result, evicting the least recently used entry when full.
func (c *QueryCache) Put(key uint64, value Results) {
	if c == nil || c.capacity < 1 {
		return
	}
	var expiry time.Time
	if c.ttl > 0 {
		expiry = time.Now().Add(c.ttl)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		entry := el.Value.(*cacheEntry)
		entry.data = value
		entry.expiry = expiry
		c.lru.MoveToFront(el)
		return
	}
	for c.lru.Len() >= c.capacity {
		c.removeElement(c.lru.Back())
	}
	c.entries[key] = c.lru.PushFront(&cacheEntry{key: key, data: value, expiry: expiry})
}

// Len reports the number of cached results.
func (c *QueryCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func (c *QueryCache) removeElement(el *list.Element) {
	entry := c.lru.Remove(el).(*cacheEntry)
	delete(c.entries, entry.key)
}
