// Package metrics exposes loader and HTTP metrics through Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns a private registry so tests can create as many as they like.
// It implements jobs.Observer.
type Recorder struct {
	registry *prometheus.Registry

	datasetLoads        *prometheus.CounterVec
	datasetCache        *prometheus.CounterVec
	datasetLoadDuration prometheus.Histogram
	datasetRecords      *prometheus.GaugeVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewRecorder creates a Recorder with Go runtime and process collectors registered.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Recorder{
		registry: registry,
		datasetLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobinsights_dataset_loads_total",
			Help: "Dataset file parses by result.",
		}, []string{"result"}),
		datasetCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobinsights_dataset_cache_total",
			Help: "Dataset cache lookups by result (hit or miss).",
		}, []string{"result"}),
		datasetLoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "jobinsights_dataset_load_duration_seconds",
			Help:    "Time spent reading and parsing dataset files.",
			Buckets: prometheus.DefBuckets,
		}),
		datasetRecords: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "jobinsights_dataset_records",
			Help: "Record count of the most recent successful load per path.",
		}, []string{"path"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobinsights_http_requests_total",
			Help: "HTTP requests by method, route pattern and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "jobinsights_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	registry.MustRegister(
		r.datasetLoads,
		r.datasetCache,
		r.datasetLoadDuration,
		r.datasetRecords,
		r.httpRequests,
		r.httpDuration,
	)
	return r
}

// CacheHit records a cache lookup that found a dataset.
func (r *Recorder) CacheHit(string) {
	r.datasetCache.WithLabelValues("hit").Inc()
}

// CacheMiss records a cache lookup that had to parse the file.
func (r *Recorder) CacheMiss(string) {
	r.datasetCache.WithLabelValues("miss").Inc()
}

// DatasetLoaded records the outcome of one file parse.
func (r *Recorder) DatasetLoaded(path string, records int, elapsed time.Duration, err error) {
	r.datasetLoadDuration.Observe(elapsed.Seconds())
	if err != nil {
		r.datasetLoads.WithLabelValues("error").Inc()
		return
	}
	r.datasetLoads.WithLabelValues("ok").Inc()
	r.datasetRecords.WithLabelValues(path).Set(float64(records))
}

// ObserveRequest records one served HTTP request.
func (r *Recorder) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
