package courselookup

import (
	"sort"
	"sync"
	"time"
)

// Observer receives operational events from the index store, the query
// path and the result cache. Implement it to integrate with a monitoring
// system; the metrics package provides a Prometheus implementation.
type Observer interface {
	// ObserveBuild is called once, after the snapshot is built. err is the
	// load error that left the snapshot empty, if any.
	ObserveBuild(courses, instructors int, took time.Duration, err error)

	// ObserveQuery is called after each executed query.
	ObserveQuery(query string, courses, instructors int, took time.Duration)

	// ObserveCache is called on every result cache lookup.
	ObserveCache(hit bool)
}

// NoopObserver discards all events.
type NoopObserver struct{}

func (NoopObserver) ObserveBuild(int, int, time.Duration, error)  {}
func (NoopObserver) ObserveQuery(string, int, int, time.Duration) {}
func (NoopObserver) ObserveCache(bool)                            {}

type multiObserver []Observer

// MultiObserver fans events out to every non-nil observer.
func MultiObserver(observers ...Observer) Observer {
	out := make(multiObserver, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

func (m multiObserver) ObserveBuild(courses, instructors int, took time.Duration, err error) {
	for _, o := range m {
		o.ObserveBuild(courses, instructors, took, err)
	}
}

func (m multiObserver) ObserveQuery(query string, courses, instructors int, took time.Duration) {
	for _, o := range m {
		o.ObserveQuery(query, courses, instructors, took)
	}
}

func (m multiObserver) ObserveCache(hit bool) {
	for _, o := range m {
		o.ObserveCache(hit)
	}
}

const (
	maxRecordedQueries = 1000
)

// QueryStats describes one executed query.
type QueryStats struct {
	Query     string        `json:"query"`
	Timestamp time.Time     `json:"timestamp"`
	Latency   time.Duration `json:"latency"`
	Results   int           `json:"results"`
}

// PerformanceMonitor keeps in-memory statistics about builds, queries and
// cache use. It backs the search status endpoint.
type PerformanceMonitor struct {
	mu          sync.RWMutex
	queryLog    []QueryStats
	buildTime   time.Duration
	buildErr    error
	cacheHits   int64
	cacheMisses int64
	startTime   time.Time
}

// NewPerformanceMonitor creates a new performance monitor
func NewPerformanceMonitor() *PerformanceMonitor {
	return &PerformanceMonitor{
		startTime: time.Now(),
	}
}

func (pm *PerformanceMonitor) ObserveBuild(_, _ int, took time.Duration, err error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.buildTime = took
	pm.buildErr = err
}

func (pm *PerformanceMonitor) ObserveQuery(query string, courses, instructors int, took time.Duration) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.queryLog = append(pm.queryLog, QueryStats{
		Query:     query,
		Timestamp: time.Now(),
		Latency:   took,
		Results:   courses + instructors,
	})
	if len(pm.queryLog) > maxRecordedQueries {
		pm.queryLog = pm.queryLog[len(pm.queryLog)-maxRecordedQueries:]
	}
}

func (pm *PerformanceMonitor) ObserveCache(hit bool) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if hit {
		pm.cacheHits++
	} else {
		pm.cacheMisses++
	}
}

// QueryStats returns a copy of the recent query log, oldest first.
func (pm *PerformanceMonitor) QueryStats() []QueryStats {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	stats := make([]QueryStats, len(pm.queryLog))
	copy(stats, pm.queryLog)
	return stats
}

// PopularQueries returns up to limit of the most frequent recent queries.
// Ties keep the order in which queries were first seen.
func (pm *PerformanceMonitor) PopularQueries(limit int) []string {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	counts := make(map[string]int)
	var order []string
	for _, stat := range pm.queryLog {
		if counts[stat.Query] == 0 {
			order = append(order, stat.Query)
		}
		counts[stat.Query]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if limit < len(order) {
		order = order[:max(limit, 0)]
	}
	return order
}

// Metrics returns a summary suitable for JSON encoding.
func (pm *PerformanceMonitor) Metrics() map[string]any {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	metrics := map[string]any{
		"uptime_seconds": time.Since(pm.startTime).Seconds(),
		"build_time_ms":  float64(pm.buildTime.Nanoseconds()) / 1e6,
		"cache_hits":     pm.cacheHits,
		"cache_misses":   pm.cacheMisses,
		"total_searches": len(pm.queryLog),
	}
	if pm.buildErr != nil {
		metrics["build_error"] = pm.buildErr.Error()
	}
	if total := pm.cacheHits + pm.cacheMisses; total > 0 {
		metrics["cache_hit_rate"] = float64(pm.cacheHits) / float64(total)
	}
	if len(pm.queryLog) > 0 {
		var total time.Duration
		minLatency, maxLatency := pm.queryLog[0].Latency, pm.queryLog[0].Latency
		for _, stat := range pm.queryLog {
			total += stat.Latency
			minLatency = min(minLatency, stat.Latency)
			maxLatency = max(maxLatency, stat.Latency)
		}
		metrics["avg_search_latency_ms"] = float64(total.Nanoseconds()) / float64(len(pm.queryLog)) / 1e6
		metrics["min_search_latency_ms"] = float64(minLatency.Nanoseconds()) / 1e6
		metrics["max_search_latency_ms"] = float64(maxLatency.Nanoseconds()) / 1e6
	}
	return metrics
}
