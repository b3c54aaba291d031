package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RetrievalMetrics tracks ingest and search outcomes, including how often
// search had to take the degraded local-similarity path.
type RetrievalMetrics struct {
	registry *prometheus.Registry

	ingestTotal    *prometheus.CounterVec
	ingestDuration *prometheus.HistogramVec
	chunksIngested prometheus.Counter

	searchTotal    *prometheus.CounterVec
	searchDuration *prometheus.HistogramVec
	searchDegraded prometheus.Counter
}

func NewRetrievalMetrics(service string) *RetrievalMetrics {
	registry := prometheus.NewRegistry()

	ingestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsearch",
			Subsystem: "retrieval",
			Name:      "ingest_total",
			Help:      "Ingested documents by status.",
		},
		[]string{"service", "status"},
	)
	ingestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docsearch",
			Subsystem: "retrieval",
			Name:      "ingest_duration_seconds",
			Help:      "Document ingestion duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	chunksIngested := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "docsearch",
			Subsystem: "retrieval",
			Name:      "chunks_ingested_total",
			Help:      "Total chunks written to the store.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	searchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsearch",
			Subsystem: "retrieval",
			Name:      "search_total",
			Help:      "Search calls by status.",
		},
		[]string{"service", "status"},
	)
	searchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docsearch",
			Subsystem: "retrieval",
			Name:      "search_duration_seconds",
			Help:      "Search duration in seconds by status.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"service", "status"},
	)
	searchDegraded := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "docsearch",
			Subsystem: "retrieval",
			Name:      "search_degraded_total",
			Help:      "Searches answered by the local-similarity fallback path.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(ingestTotal, ingestDuration, chunksIngested, searchTotal, searchDuration, searchDegraded)

	return &RetrievalMetrics{
		registry:       registry,
		ingestTotal:    ingestTotal,
		ingestDuration: ingestDuration,
		chunksIngested: chunksIngested,
		searchTotal:    searchTotal,
		searchDuration: searchDuration,
		searchDegraded: searchDegraded,
	}
}

func (m *RetrievalMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *RetrievalMetrics) ObserveIngest(service string, duration time.Duration, chunks int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.ingestTotal.WithLabelValues(service, status).Inc()
	m.ingestDuration.WithLabelValues(service, status).Observe(duration.Seconds())
	if chunks > 0 {
		m.chunksIngested.Add(float64(chunks))
	}
}

func (m *RetrievalMetrics) ObserveSearch(service string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.searchTotal.WithLabelValues(service, status).Inc()
	m.searchDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

// MarkDegraded records one search answered by the fallback path.
func (m *RetrievalMetrics) MarkDegraded() {
	m.searchDegraded.Inc()
}
