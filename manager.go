package courselookup

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/oarkflow/filters"
	"github.com/oarkflow/json"
)

// MaxCap bounds the per-category caps a client may request.
const MaxCap = 50

// Manager serves the search HTTP surface over an IndexStore.
type Manager struct {
	store    *IndexStore
	cache    *QueryCache
	caps     Caps
	monitor  *PerformanceMonitor
	observer Observer
	logger   *Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerCaps sets the caps used when a request names none.
func WithManagerCaps(caps Caps) ManagerOption {
	return func(m *Manager) {
		m.caps = caps
	}
}

// WithManagerCache serves repeated requests from cache.
func WithManagerCache(cache *QueryCache) ManagerOption {
	return func(m *Manager) {
		m.cache = cache
	}
}

// WithManagerObserver reports queries to observer in addition to the
// performance monitor.
func WithManagerObserver(observer Observer) ManagerOption {
	return func(m *Manager) {
		if observer != nil {
			m.observer = observer
		}
	}
}

// WithManagerMonitor replaces the built-in performance monitor. Share it
// with the IndexStore and QueryCache so build and cache events reach
// /search/status.
func WithManagerMonitor(monitor *PerformanceMonitor) ManagerOption {
	return func(m *Manager) {
		if monitor != nil {
			m.monitor = monitor
		}
	}
}

// WithManagerLogger sets the logger for request events.
func WithManagerLogger(logger *Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager returns a Manager serving store.
func NewManager(store *IndexStore, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:  store,
		caps:   DefaultCaps(),
		logger: NoopLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.monitor == nil {
		m.monitor = NewPerformanceMonitor()
	}
	if m.observer == nil {
		m.observer = m.monitor
	} else {
		m.observer = MultiObserver(m.monitor, m.observer)
	}
	return m
}

// Monitor returns the manager's performance monitor.
func (m *Manager) Monitor() *PerformanceMonitor {
	return m.monitor
}

// Filter is a field condition in a search request body.
type Filter struct {
	Field    string           `json:"field"`
	Operator filters.Operator `json:"operator"`
	Value    any              `json:"value"`
	Reverse  bool             `json:"reverse"`
	Lookup   *filters.Lookup  `json:"lookup"`
}

// Request is a parsed search request.
type Request struct {
	Query       string   `json:"q"`
	Courses     *int     `json:"courses"`
	Instructors *int     `json:"instructors"`
	Condition   string   `json:"condition"`
	Filters     []Filter `json:"filters"`
}

// Checksum identifies the request's result for a given snapshot.
func (r Request) Checksum(fingerprint uint64, caps Caps) (uint64, error) {
	conds := make([]string, 0, len(r.Filters)+1)
	for _, f := range r.Filters {
		b, err := json.Marshal(f)
		if err != nil {
			return 0, fmt.Errorf("marshaling filter condition: %w", err)
		}
		conds = append(conds, string(b))
	}
	sort.Strings(conds)
	if r.Condition != "" {
		conds = append(conds, "condition:"+r.Condition)
	}
	return QueryKey(fingerprint, r.Query, caps, conds...), nil
}

func (r Request) capsOr(def Caps) Caps {
	caps := def
	if r.Courses != nil {
		caps.Courses = min(*r.Courses, MaxCap)
	}
	if r.Instructors != nil {
		caps.Instructors = min(*r.Instructors, MaxCap)
	}
	return caps
}

func (r Request) queryOptions() []QueryOption {
	var opts []QueryOption
	if r.Condition != "" {
		opts = append(opts, WithCondition(r.Condition))
	}
	if len(r.Filters) > 0 {
		conds := make([]filters.Condition, 0, len(r.Filters))
		for _, f := range r.Filters {
			conds = append(conds, &filters.Filter{
				Field:    f.Field,
				Operator: f.Operator,
				Value:    f.Value,
				Reverse:  f.Reverse,
				Lookup:   f.Lookup,
			})
		}
		opts = append(opts, WithFilters(conds...))
	}
	return opts
}

var builtInFields = []string{"q", "courses", "instructors", "condition"}

func prepareQuery(r *http.Request) (Request, error) {
	var query Request
	if r.Method == http.MethodPost {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return query, err
		}
		if len(body) > 0 {
			if err := json.Unmarshal(body, &query); err != nil {
				return query, fmt.Errorf("error unmarshalling query: %v", err)
			}
		}
	}
	values := r.URL.Query()
	if q := values.Get("q"); q != "" {
		query.Query = q
	}
	for _, field := range []struct {
		name string
		dst  **int
	}{{"courses", &query.Courses}, {"instructors", &query.Instructors}} {
		raw := strings.TrimSpace(values.Get(field.name))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return query, fmt.Errorf("%s must be a non-negative integer", field.name)
		}
		*field.dst = &n
	}
	if c := strings.TrimSpace(values.Get("condition")); c != "" {
		query.Condition = c
	}
	if query.Condition != "" {
		if _, err := ParseCondition(query.Condition); err != nil {
			return query, err
		}
	}
	if len(query.Filters) == 0 && hasExtraParams(values) {
		extraFilters, err := filters.ParseQuery(r.URL.RawQuery, builtInFields...)
		if err != nil {
			return query, err
		}
		for _, v := range extraFilters {
			query.Filters = append(query.Filters, Filter{
				Field:    v.Field,
				Operator: v.Operator,
				Value:    v.Value,
				Reverse:  v.Reverse,
				Lookup:   v.Lookup,
			})
		}
	}
	return query, nil
}

func hasExtraParams(values map[string][]string) bool {
	for k := range values {
		if !slices.Contains(builtInFields, k) {
			return true
		}
	}
	return false
}

// RegisterRoutes installs the search endpoints on mux.
func (m *Manager) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/search", m.handleSearch)
	mux.HandleFunc("/search/status", m.handleStatus)
}

func (m *Manager) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Unsupported method")
		return
	}
	req, err := prepareQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Error preparing query: %v", err))
		return
	}
	res, err := m.Search(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Search answers req from the cache or the snapshot.
func (m *Manager) Search(ctx context.Context, req Request) (Results, error) {
	snap := m.store.Get(ctx)
	caps := req.capsOr(m.caps)

	start := time.Now()
	key, err := req.Checksum(snap.Fingerprint, caps)
	if err != nil {
		return Results{}, err
	}
	res, ok := m.cache.Get(key)
	if !ok {
		res, err = snap.Search(req.Query, caps, req.queryOptions()...)
		if err != nil {
			return Results{}, err
		}
		m.cache.Put(key, res)
	}
	took := time.Since(start)
	m.observer.ObserveQuery(req.Query, len(res.Courses), len(res.Instructors), took)
	m.logger.LogQuery(ctx, req.Query, len(res.Courses), len(res.Instructors), took)
	return res, nil
}

func (m *Manager) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Unsupported method")
		return
	}
	status := map[string]any{
		"loaded":  m.store.Loaded(),
		"metrics": m.monitor.Metrics(),
		"popular": m.monitor.PopularQueries(10),
	}
	if m.store.Loaded() {
		status["snapshot"] = m.store.Get(r.Context()).Status()
	}
	if m.cache != nil {
		status["cached_results"] = m.cache.Len()
	}
	writeJSON(w, http.StatusOK, status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
