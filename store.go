package courselookup

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/oarkflow/courselookup/utils"
)

// Loader supplies the course dataset.
type Loader interface {
	Load(ctx context.Context) ([]CourseRecord, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context) ([]CourseRecord, error)

// Load implements Loader.
func (fn LoaderFunc) Load(ctx context.Context) ([]CourseRecord, error) {
	return fn(ctx)
}

// StaticLoader serves a fixed slice of records.
func StaticLoader(records []CourseRecord) Loader {
	return LoaderFunc(func(context.Context) ([]CourseRecord, error) {
		return records, nil
	})
}

// Snapshot is the immutable state built from one dataset. Position i of
// CourseIndex resolves to Courses[i]; position i of InstructorIndex resolves
// to Instructors[i].
type Snapshot struct {
	Courses         []CourseRecord
	Instructors     []string
	CourseIndex     *Index
	InstructorIndex *Index
	// Fingerprint is equal for snapshots built from equal datasets.
	Fingerprint uint64
	// LoadError is set when the dataset could not be loaded and the
	// snapshot was built empty.
	LoadError     error
	BuiltAt       time.Time
	BuildDuration time.Duration
}

// Status reports snapshot statistics.
func (s *Snapshot) Status() map[string]any {
	status := map[string]any{
		"courses":        len(s.Courses),
		"instructors":    len(s.Instructors),
		"fingerprint":    s.Fingerprint,
		"built_at":       s.BuiltAt,
		"build_duration": s.BuildDuration.String(),
	}
	if s.CourseIndex != nil {
		status["course_index"] = s.CourseIndex.Status()
	}
	if s.InstructorIndex != nil {
		status["instructor_index"] = s.InstructorIndex.Status()
	}
	if s.LoadError != nil {
		status["load_error"] = s.LoadError.Error()
	}
	return status
}

// StoreOption configures an IndexStore.
type StoreOption func(*IndexStore)

// WithLogger sets the store's logger.
func WithLogger(logger *Logger) StoreOption {
	return func(s *IndexStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver sets the observer notified when the snapshot is built.
func WithObserver(observer Observer) StoreOption {
	return func(s *IndexStore) {
		if observer != nil {
			s.observer = observer
		}
	}
}

// WithIndexOptions applies opts to both indexes of the snapshot.
func WithIndexOptions(opts ...Options) StoreOption {
	return func(s *IndexStore) {
		s.indexOpts = append(s.indexOpts, opts...)
	}
}

// WithoutInstructorIndex skips building the instructor index. Queries then
// always return an empty instructor list.
func WithoutInstructorIndex() StoreOption {
	return func(s *IndexStore) {
		s.skipInstructors = true
	}
}

// IndexStore builds the search snapshot once, on first use, and serves it
// for the lifetime of the store.
type IndexStore struct {
	loader          Loader
	logger          *Logger
	observer        Observer
	indexOpts       []Options
	skipInstructors bool

	mu       sync.Mutex
	snapshot atomic.Pointer[Snapshot]
}

// NewIndexStore returns a store that loads its dataset through loader.
func NewIndexStore(loader Loader, opts ...StoreOption) *IndexStore {
	s := &IndexStore{
		loader:   loader,
		logger:   NoopLogger(),
		observer: NoopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the snapshot, building it on the first call. Concurrent
// first calls block until the single build completes. The build is not
// cancelled when ctx is; ctx only carries values to the loader and logger.
// Get never fails: a dataset that cannot be loaded yields an empty snapshot
// with LoadError set.
func (s *IndexStore) Get(ctx context.Context) *Snapshot {
	if snap := s.snapshot.Load(); snap != nil {
		return snap
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap := s.snapshot.Load(); snap != nil {
		return snap
	}
	snap := s.build(context.WithoutCancel(ctx))
	s.snapshot.Store(snap)
	return snap
}

// Preload builds the snapshot ahead of the first query.
func (s *IndexStore) Preload(ctx context.Context) {
	s.Get(ctx)
}

// Loaded reports whether the snapshot has been built, without blocking.
func (s *IndexStore) Loaded() bool {
	return s.snapshot.Load() != nil
}

func (s *IndexStore) build(ctx context.Context) *Snapshot {
	start := time.Now()
	var records []CourseRecord
	var loadErr error
	if s.loader == nil {
		loadErr = ErrNoDataset
	} else {
		records, loadErr = s.loader.Load(ctx)
	}
	if loadErr != nil {
		records = nil
	}

	snap, err := buildSnapshot(records, !s.skipInstructors, s.indexOpts...)
	if err != nil {
		loadErr = err
		snap, _ = buildSnapshot(nil, !s.skipInstructors, s.indexOpts...)
	}
	snap.LoadError = loadErr
	snap.BuiltAt = time.Now()
	snap.BuildDuration = time.Since(start)

	s.logger.LogBuild(ctx, len(snap.Courses), len(snap.Instructors), snap.BuildDuration, loadErr)
	s.observer.ObserveBuild(len(snap.Courses), len(snap.Instructors), snap.BuildDuration, loadErr)
	return snap
}

// BuildSnapshot indexes records synchronously. It is the building block of
// IndexStore and is exported for callers that manage their own lifecycle.
func BuildSnapshot(records []CourseRecord, opts ...Options) (*Snapshot, error) {
	snap, err := buildSnapshot(records, true, opts...)
	if err != nil {
		return nil, err
	}
	snap.BuiltAt = time.Now()
	return snap, nil
}

func buildSnapshot(records []CourseRecord, withInstructors bool, opts ...Options) (*Snapshot, error) {
	snap := &Snapshot{
		Courses:     records,
		Instructors: DedupeInstructors(records),
		CourseIndex: NewIndex("courses", opts...),
	}
	if withInstructors {
		snap.InstructorIndex = NewIndex("instructors", opts...)
	}

	var g errgroup.Group
	g.Go(func() error {
		for i, course := range snap.Courses {
			if err := snap.CourseIndex.Add(i, course.Text()); err != nil {
				return err
			}
		}
		snap.CourseIndex.Seal()
		return nil
	})
	if snap.InstructorIndex != nil {
		g.Go(func() error {
			for i, name := range snap.Instructors {
				if err := snap.InstructorIndex.Add(i, name); err != nil {
					return err
				}
			}
			snap.InstructorIndex.Seal()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	snap.Fingerprint = fingerprint(snap.Courses, snap.Instructors)
	return snap, nil
}

// DedupeInstructors collects instructor names across records. Names that
// normalize to the same key collapse to the first-seen display form, in
// first-seen order.
func DedupeInstructors(records []CourseRecord) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, course := range records {
		for _, name := range course.Instructors {
			key := utils.NormalizeName(name)
			if key == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, utils.CollapseSpaces(name))
		}
	}
	return out
}

func fingerprint(courses []CourseRecord, instructors []string) uint64 {
	h := xxhash.New()
	for _, course := range courses {
		_, _ = h.WriteString(course.Text())
		_, _ = h.Write([]byte{0})
	}
	_, _ = h.Write([]byte{1})
	for _, name := range instructors {
		_, _ = h.WriteString(name)
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}
