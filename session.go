package courselookup

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithCaps overrides the default result caps.
func WithCaps(caps Caps) SessionOption {
	return func(s *Session) {
		s.caps = caps
	}
}

// WithCache serves repeated queries from cache.
func WithCache(cache *QueryCache) SessionOption {
	return func(s *Session) {
		s.cache = cache
	}
}

// WithSessionObserver reports executed queries to observer.
func WithSessionObserver(observer Observer) SessionOption {
	return func(s *Session) {
		if observer != nil {
			s.observer = observer
		}
	}
}

// WithSessionLogger sets the logger used for query events.
func WithSessionLogger(logger *Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Session holds the latest search results for one consumer. Every Update
// takes a new sequence number and a result is accepted only when its
// sequence number is greater than the last accepted one, so a slow query
// can never overwrite the results of a newer one.
type Session struct {
	store    *IndexStore
	caps     Caps
	cache    *QueryCache
	observer Observer
	logger   *Logger

	seq     atomic.Uint64
	current atomic.Pointer[Results]

	publishMu     sync.Mutex
	lastPublished uint64
	changes       chan Results
}

// NewSession returns a session querying the snapshot of store.
func NewSession(store *IndexStore, opts ...SessionOption) *Session {
	s := &Session{
		store:    store,
		caps:     DefaultCaps(),
		observer: NoopObserver{},
		logger:   NoopLogger(),
		changes:  make(chan Results, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Update runs query against the store's snapshot (building it if needed)
// and offers the result. It returns the computed result whether or not it
// was accepted.
func (s *Session) Update(ctx context.Context, query string, opts ...QueryOption) Results {
	seq := s.seq.Add(1)
	snap := s.store.Get(ctx)

	start := time.Now()
	var res Results
	if s.cache != nil && len(opts) == 0 {
		key := QueryKey(snap.Fingerprint, query, s.caps)
		if cached, ok := s.cache.Get(key); ok {
			res = cached
		} else {
			res = snap.Query(query, s.caps)
			s.cache.Put(key, res)
		}
	} else {
		res = snap.Query(query, s.caps, opts...)
	}
	took := time.Since(start)
	s.observer.ObserveQuery(query, len(res.Courses), len(res.Instructors), took)
	s.logger.LogQuery(ctx, query, len(res.Courses), len(res.Instructors), took)

	res.Seq = seq
	s.Offer(res)
	return res
}

// NextSeq reserves a sequence number for a result computed outside Update.
func (s *Session) NextSeq() uint64 {
	return s.seq.Add(1)
}

// Offer installs res when its sequence number is greater than that of the
// current result. It reports whether res was accepted.
func (s *Session) Offer(res Results) bool {
	next := &res
	for {
		cur := s.current.Load()
		if cur != nil && cur.Seq >= res.Seq {
			return false
		}
		if s.current.CompareAndSwap(cur, next) {
			s.publish()
			return true
		}
	}
}

// Current returns the latest accepted result. Before any result is
// accepted it returns empty lists.
func (s *Session) Current() Results {
	if cur := s.current.Load(); cur != nil {
		return *cur
	}
	return Results{Courses: []CourseRecord{}, Instructors: []string{}}
}

// Changes delivers accepted results. The channel holds one result; an
// unread result is replaced by a newer one.
func (s *Session) Changes() <-chan Results {
	return s.changes
}

func (s *Session) publish() {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()
	latest := s.current.Load()
	if latest == nil || latest.Seq <= s.lastPublished {
		return
	}
	select {
	case <-s.changes:
	default:
	}
	s.changes <- *latest
	s.lastPublished = latest.Seq
}
