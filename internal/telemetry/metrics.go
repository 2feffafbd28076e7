package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the Prometheus metrics set for this service, trimmed from
// the teacher's pkg/observability.Metrics to this domain's concerns:
// ingest, indexing, reindex, and search instead of agent/LLM/RAG
// metrics. A nil *Metrics is safe to call every Record* method on.
type Metrics struct {
	registry *prometheus.Registry

	ingestTotal      *prometheus.CounterVec
	ingestDuration   *prometheus.HistogramVec
	ingestBytes      *prometheus.HistogramVec
	indexTotal       *prometheus.CounterVec
	indexDuration    *prometheus.HistogramVec
	indexErrors      *prometheus.CounterVec
	reindexTotal     *prometheus.CounterVec
	reindexDuration  *prometheus.HistogramVec
	searchTotal      *prometheus.CounterVec
	searchDuration   *prometheus.HistogramVec
	searchResults    *prometheus.HistogramVec
	jobQueueDepth    *prometheus.GaugeVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// NewMetrics builds and registers every collector under namespace.
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.ingestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "ingest", Name: "documents_total",
		Help: "Total number of documents accepted for ingestion.",
	}, []string{"namespace"})

	m.ingestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "ingest", Name: "duration_seconds",
		Help: "Duration of streaming ingest calls.", Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"namespace"})

	m.ingestBytes = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "ingest", Name: "document_bytes",
		Help: "Size of ingested documents in bytes.", Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
	}, []string{"namespace"})

	m.indexTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "index", Name: "documents_total",
		Help: "Total number of documents successfully indexed.",
	}, []string{"namespace"})

	m.indexDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "index", Name: "duration_seconds",
		Help: "Duration of a single IndexingTask attempt.", Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"namespace"})

	m.indexErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "index", Name: "errors_total",
		Help: "Total number of IndexingTask failures by kind.",
	}, []string{"namespace", "kind"})

	m.reindexTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "reindex", Name: "runs_total",
		Help: "Total number of namespace reindex operations.",
	}, []string{"namespace", "outcome"})

	m.reindexDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "reindex", Name: "duration_seconds",
		Help: "Duration of the alias-swap reindex protocol.", Buckets: prometheus.ExponentialBuckets(0.1, 2, 14),
	}, []string{"namespace"})

	m.searchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "search", Name: "queries_total",
		Help: "Total number of search queries executed.",
	}, []string{"namespace"})

	m.searchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "search", Name: "duration_seconds",
		Help: "Duration of search queries.", Buckets: prometheus.DefBuckets,
	}, []string{"namespace"})

	m.searchResults = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "search", Name: "results_count",
		Help: "Number of documents returned per search.", Buckets: prometheus.LinearBuckets(0, 10, 10),
	}, []string{"namespace"})

	m.jobQueueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "jobs", Name: "queue_depth",
		Help: "Approximate number of queued-or-running jobs.",
	}, []string{"status"})

	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "http", Name: "requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"method", "route", "status"})

	m.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
		Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	m.registry.MustRegister(
		m.ingestTotal, m.ingestDuration, m.ingestBytes,
		m.indexTotal, m.indexDuration, m.indexErrors,
		m.reindexTotal, m.reindexDuration,
		m.searchTotal, m.searchDuration, m.searchResults,
		m.jobQueueDepth,
		m.httpRequests, m.httpDuration,
	)
	return m
}

func (m *Metrics) RecordIngest(namespace string, duration time.Duration, size int) {
	if m == nil {
		return
	}
	m.ingestTotal.WithLabelValues(namespace).Inc()
	m.ingestDuration.WithLabelValues(namespace).Observe(duration.Seconds())
	m.ingestBytes.WithLabelValues(namespace).Observe(float64(size))
}

func (m *Metrics) RecordIndexSuccess(namespace string, duration time.Duration) {
	if m == nil {
		return
	}
	m.indexTotal.WithLabelValues(namespace).Inc()
	m.indexDuration.WithLabelValues(namespace).Observe(duration.Seconds())
}

func (m *Metrics) RecordIndexError(namespace, kind string) {
	if m == nil {
		return
	}
	m.indexErrors.WithLabelValues(namespace, kind).Inc()
}

func (m *Metrics) RecordReindex(namespace, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.reindexTotal.WithLabelValues(namespace, outcome).Inc()
	m.reindexDuration.WithLabelValues(namespace).Observe(duration.Seconds())
}

func (m *Metrics) RecordSearch(namespace string, duration time.Duration, resultCount int) {
	if m == nil {
		return
	}
	m.searchTotal.WithLabelValues(namespace).Inc()
	m.searchDuration.WithLabelValues(namespace).Observe(duration.Seconds())
	m.searchResults.WithLabelValues(namespace).Observe(float64(resultCount))
}

func (m *Metrics) SetJobQueueDepth(status string, depth int) {
	if m == nil {
		return
	}
	m.jobQueueDepth.WithLabelValues(status).Set(float64(depth))
}

func (m *Metrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, statusCodeLabel(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func statusCodeLabel(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}

// Handler exposes the Prometheus exposition endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
