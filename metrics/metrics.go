// Package metrics exports search and proxy activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oarkflow/courselookup"
	"github.com/oarkflow/courselookup/proxy"
)

const namespace = "courselookup"

// Collector implements courselookup.Observer and proxy.Observer on its own
// registry.
type Collector struct {
	registry *prometheus.Registry

	buildDuration   prometheus.Gauge
	buildErrors     prometheus.Counter
	indexedDocs     *prometheus.GaugeVec
	searchLatency   prometheus.Histogram
	searchResults   *prometheus.HistogramVec
	cacheLookups    *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	upstreamTotal   *prometheus.CounterVec
}

var (
	_ courselookup.Observer = (*Collector)(nil)
	_ proxy.Observer        = (*Collector)(nil)
)

// New returns a Collector with its collectors registered, along with the
// Go runtime and process collectors.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		buildDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_build_seconds",
			Help:      "Duration of the last search index build",
		}),
		buildErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_build_errors_total",
			Help:      "Index builds that ended with an empty snapshot",
		}),
		indexedDocs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "indexed_documents",
			Help:      "Documents in the current snapshot",
		}, []string{"category"}),
		searchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_latency_seconds",
			Help:      "Latency of search queries",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 8),
		}),
		searchResults: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results",
			Help:      "Results returned per query",
			Buckets:   prometheus.LinearBuckets(0, 1, 11),
		}, []string{"category"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_cache_lookups_total",
			Help:      "Query cache lookups by outcome",
		}, []string{"result"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "proxy_upstream_latency_seconds",
			Help:      "Latency of proxied backend requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		upstreamTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proxy_requests_total",
			Help:      "Proxied requests by method and response status",
		}, []string{"method", "status", "outcome"}),
	}
	c.registry.MustRegister(
		c.buildDuration,
		c.buildErrors,
		c.indexedDocs,
		c.searchLatency,
		c.searchResults,
		c.cacheLookups,
		c.upstreamLatency,
		c.upstreamTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the registry holding the collectors.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) ObserveBuild(courses, instructors int, took time.Duration, err error) {
	c.buildDuration.Set(took.Seconds())
	if err != nil {
		c.buildErrors.Inc()
	}
	c.indexedDocs.WithLabelValues("courses").Set(float64(courses))
	c.indexedDocs.WithLabelValues("instructors").Set(float64(instructors))
}

func (c *Collector) ObserveQuery(_ string, courses, instructors int, took time.Duration) {
	c.searchLatency.Observe(took.Seconds())
	c.searchResults.WithLabelValues("courses").Observe(float64(courses))
	c.searchResults.WithLabelValues("instructors").Observe(float64(instructors))
}

func (c *Collector) ObserveCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheLookups.WithLabelValues(result).Inc()
}

func (c *Collector) ObserveUpstream(method string, status int, took time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "transport_error"
	} else if status >= http.StatusBadRequest {
		outcome = "error"
	}
	c.upstreamLatency.WithLabelValues(method).Observe(took.Seconds())
	c.upstreamTotal.WithLabelValues(method, strconv.Itoa(status), outcome).Inc()
}
