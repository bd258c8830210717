package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService owns the Prometheus registry for HTTP, database and
// clinic domain instrumentation. All methods are safe on a nil receiver.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	dbQueryDuration *prometheus.HistogramVec
	reportsCreated  prometheus.Counter
	versionsAdded   prometheus.Counter
	slotsReleased   prometheus.Counter
	slotRepairs     *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
}

// NewMetricsService registers the collectors.
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

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	reportsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reports_created_total",
		Help: "Medical reports created",
	})

	versionsAdded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "report_versions_appended_total",
		Help: "Report versions appended after creation",
	})

	slotsReleased := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "appointment_slots_released_total",
		Help: "Doctor slots released by appointment cancellation",
	})

	slotRepairs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "slot_registry_repairs_total",
		Help: "Slot registry rows fixed by reconciliation",
	}, []string{"kind"})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_lookups_total",
		Help: "Cache lookups by result",
	}, []string{"result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, dbQueryDuration, reportsCreated, versionsAdded, slotsReleased, slotRepairs, cacheLookups, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		dbQueryDuration: dbQueryDuration,
		reportsCreated:  reportsCreated,
		versionsAdded:   versionsAdded,
		slotsReleased:   slotsReleased,
		slotRepairs:     slotRepairs,
		cacheLookups:    cacheLookups,
	}
}

// Registry exposes the underlying registry for tests and custom collectors.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveDBQuery records database operation timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// ReportCreated counts a new report.
func (m *MetricsService) ReportCreated() {
	if m == nil {
		return
	}
	m.reportsCreated.Inc()
}

// ReportVersionAppended counts an appended version.
func (m *MetricsService) ReportVersionAppended() {
	if m == nil {
		return
	}
	m.versionsAdded.Inc()
}

// SlotsReleased counts released slot registry rows.
func (m *MetricsService) SlotsReleased(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.slotsReleased.Add(float64(n))
}

// SlotRepairs counts reconciliation repairs of the given kind (removed, restored).
func (m *MetricsService) SlotRepairs(kind string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.slotRepairs.WithLabelValues(kind).Add(float64(n))
}

// CacheLookup counts a cache hit or miss.
func (m *MetricsService) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}
