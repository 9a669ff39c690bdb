package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/sma-class-scheduler/pkg/jobs"
	"github.com/noah-isme/sma-class-scheduler/pkg/scheduling"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP layer,
// the busy-snapshot cache and the scheduling engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	slotResolutions   *prometheus.CounterVec
	sessionsGenerated *prometheus.CounterVec
	searchDuration    prometheus.Observer
	failOpen          *prometheus.CounterVec
	staleSearches     prometheus.Counter
	jobOutcomes       *prometheus.CounterVec

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	slotResolutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduling_slot_resolutions_total",
		Help: "Slot status resolutions by outcome",
	}, []string{"status"})

	sessionsGenerated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduling_sessions_generated_total",
		Help: "Generated session candidates by type",
	}, []string{"type"})

	searchDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scheduling_alternative_search_seconds",
		Help:    "Duration of alternative start date searches",
		Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 2, 5},
	})

	failOpen := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduling_fail_open_total",
		Help: "Upstream failures answered with empty data",
	}, []string{"source"})

	staleSearches := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduling_stale_searches_total",
		Help: "Alternative searches superseded before completion",
	})

	jobOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduling_jobs_total",
		Help: "Background job attempts by type and outcome",
	}, []string{"type", "outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		requestDuration, requestTotal,
		cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		slotResolutions, sessionsGenerated, searchDuration, failOpen, staleSearches,
		jobOutcomes, goroutines,
	)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:          registry,
		handler:           handler,
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		cacheLatency:      cacheLatency,
		cacheWrite:        cacheWrite,
		cacheHitRatio:     cacheHitRatio,
		cacheHits:         cacheHits,
		cacheMisses:       cacheMisses,
		slotResolutions:   slotResolutions,
		sessionsGenerated: sessionsGenerated,
		searchDuration:    searchDuration,
		failOpen:          failOpen,
		staleSearches:     staleSearches,
		jobOutcomes:       jobOutcomes,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordSlotGrid counts the outcome of every resolved pair.
func (m *MetricsService) RecordSlotGrid(grid scheduling.SlotGrid) {
	if m == nil {
		return
	}
	for _, verdict := range grid {
		m.slotResolutions.WithLabelValues(string(verdict.Status)).Inc()
	}
}

// RecordSessionPlan counts generated candidates by type.
func (m *MetricsService) RecordSessionPlan(plan scheduling.SessionPlan) {
	if m == nil {
		return
	}
	m.sessionsGenerated.WithLabelValues(string(scheduling.SessionNormal)).Add(float64(plan.Normal))
	m.sessionsGenerated.WithLabelValues(string(scheduling.SessionSkipped)).Add(float64(plan.Skipped))
	m.sessionsGenerated.WithLabelValues(string(scheduling.SessionExtended)).Add(float64(plan.Extended))
}

// ObserveAlternativeSearch records how long a search ran.
func (m *MetricsService) ObserveAlternativeSearch(duration time.Duration) {
	if m == nil {
		return
	}
	m.searchDuration.Observe(duration.Seconds())
}

// RecordFailOpen counts an upstream failure that degraded to empty data.
func (m *MetricsService) RecordFailOpen(source string) {
	if m == nil {
		return
	}
	m.failOpen.WithLabelValues(source).Inc()
}

// RecordStaleSearch counts a search discarded because a newer one started.
func (m *MetricsService) RecordStaleSearch() {
	if m == nil {
		return
	}
	m.staleSearches.Inc()
}

// RecordJob counts one background job attempt. It matches jobs.Observer.
func (m *MetricsService) RecordJob(jobType string, outcome jobs.Outcome) {
	if m == nil {
		return
	}
	m.jobOutcomes.WithLabelValues(jobType, string(outcome)).Inc()
}
