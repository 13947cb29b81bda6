package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds every metric KnowledgeVIS records.
type AppMetrics struct {
	// HTTP
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec

	// prediction backend
	BackendRequestsTotal   CounterVec
	BackendRequestDuration HistogramVec

	// caches
	CacheHitsTotal   CounterVec
	CacheMissesTotal CounterVec

	// view pipelines
	PipelineDuration HistogramVec
	PipelineTerms    HistogramVec
	OccludedLabels   HistogramVec

	// sessions and queries
	ActiveSessions       GaugeVec
	StaleResponsesTotal  CounterVec
	QueriesRejectedTotal CounterVec
	EventsPublishedTotal CounterVec
	ExportsTotal         CounterVec
}

var (
	DefaultHTTPDurationBuckets     = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5}
	DefaultBackendDurationBuckets  = []float64{.1, .25, .5, 1, 2, 5, 10, 30, 60, 120}
	DefaultPipelineDurationBuckets = []float64{.0001, .0005, .001, .0025, .005, .01, .025, .05, .1}
	DefaultCountBuckets            = []float64{0, 5, 10, 25, 50, 100, 250, 500, 1000, 5000}
)

// NewAppMetrics registers all metrics on collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")

	m.BackendRequestsTotal = collector.RegisterCounter("backend_requests_total", "Prediction backend requests", "model", "status")
	m.BackendRequestDuration = collector.RegisterHistogram("backend_request_duration_seconds", "Prediction backend latency", DefaultBackendDurationBuckets, "model")

	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")

	m.PipelineDuration = collector.RegisterHistogram("pipeline_duration_seconds", "Filter/sort/project pipeline duration", DefaultPipelineDurationBuckets, "view", "trigger")
	m.PipelineTerms = collector.RegisterHistogram("pipeline_terms", "Terms emitted by a pipeline run", DefaultCountBuckets, "view")
	m.OccludedLabels = collector.RegisterHistogram("occluded_labels", "Labels hidden by occlusion per scatter run", DefaultCountBuckets)

	m.ActiveSessions = collector.RegisterGauge("active_sessions", "Interactive sessions held in memory")
	m.StaleResponsesTotal = collector.RegisterCounter("stale_responses_total", "Backend responses discarded because a newer query superseded them")
	m.QueriesRejectedTotal = collector.RegisterCounter("queries_rejected_total", "Queries rejected before reaching the backend", "reason")
	m.EventsPublishedTotal = collector.RegisterCounter("events_published_total", "Session events published", "type", "status")
	m.ExportsTotal = collector.RegisterCounter("exports_total", "Dataset exports", "status")

	return m
}

func (m *AppMetrics) RecordHTTPRequest(method, path string, statusCode int, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

func (m *AppMetrics) RecordBackendRequest(model string, err error, d time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.BackendRequestsTotal.WithLabelValues(model, status).Inc()
	m.BackendRequestDuration.WithLabelValues(model).Observe(d.Seconds())
}

func (m *AppMetrics) RecordCacheAccess(cache string, hit bool) {
	if hit {
		m.CacheHitsTotal.WithLabelValues(cache).Inc()
		return
	}
	m.CacheMissesTotal.WithLabelValues(cache).Inc()
}

func (m *AppMetrics) RecordPipeline(view, trigger string, terms int, d time.Duration) {
	m.PipelineDuration.WithLabelValues(view, trigger).Observe(d.Seconds())
	m.PipelineTerms.WithLabelValues(view).Observe(float64(terms))
}

func (m *AppMetrics) RecordOcclusion(hidden int) {
	m.OccludedLabels.WithLabelValues().Observe(float64(hidden))
}

func (m *AppMetrics) RecordStaleResponse() {
	m.StaleResponsesTotal.WithLabelValues().Inc()
}

func (m *AppMetrics) RecordRejectedQuery(reason string) {
	m.QueriesRejectedTotal.WithLabelValues(reason).Inc()
}

func (m *AppMetrics) RecordEvent(eventType string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.EventsPublishedTotal.WithLabelValues(eventType, status).Inc()
}

func (m *AppMetrics) RecordExport(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ExportsTotal.WithLabelValues(status).Inc()
}

func (m *AppMetrics) SetActiveSessions(n int) {
	m.ActiveSessions.WithLabelValues().Set(float64(n))
}
