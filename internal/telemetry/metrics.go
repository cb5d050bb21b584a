// Package telemetry records engine metrics for Prometheus and keeps a local
// log of asked questions for query analytics. Nothing is reported externally.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of one engine instance. It
// implements the recorder interfaces of the search, answer and index packages.
type Metrics struct {
	registry *prometheus.Registry

	QueriesTotal       *prometheus.CounterVec
	QueryDuration      *prometheus.HistogramVec
	Candidates         *prometheus.HistogramVec
	RetrievalFailures  *prometheus.CounterVec
	LexicalRebuilds    *prometheus.CounterVec
	LexicalDocuments   prometheus.Gauge
	HTTPRequestsTotal  *prometheus.CounterVec
	HTTPRequestLatency *prometheus.HistogramVec
}

// New creates the collectors and registers them, with the Go runtime and
// process collectors, on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "amanrag_queries_total",
				Help: "Answered queries by retrieval mode and outcome (completed, failed, cancelled, invalid).",
			},
			[]string{"mode", "outcome"},
		),
		QueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "amanrag_query_duration_seconds",
				Help:    "End-to-end query latency including generation, in seconds.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"mode"},
		),
		Candidates: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "amanrag_retrieval_candidates",
				Help:    "Candidates gathered per retrieval before fusion, by strategy.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
			},
			[]string{"strategy"},
		),
		RetrievalFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "amanrag_retrieval_failures_total",
				Help: "Search calls that failed and were skipped, by strategy.",
			},
			[]string{"strategy"},
		),
		LexicalRebuilds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "amanrag_lexical_rebuilds_total",
				Help: "Lexical index rebuilds by outcome.",
			},
			[]string{"outcome"},
		),
		LexicalDocuments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "amanrag_lexical_documents",
				Help: "Passages in the published lexical index snapshot.",
			},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "amanrag_http_requests_total",
				Help: "HTTP requests by method, route and status.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "amanrag_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.QueriesTotal,
		m.QueryDuration,
		m.Candidates,
		m.RetrievalFailures,
		m.LexicalRebuilds,
		m.LexicalDocuments,
		m.HTTPRequestsTotal,
		m.HTTPRequestLatency,
	)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the scrape handler for this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordQuery observes one finished query.
func (m *Metrics) RecordQuery(mode, outcome string, d time.Duration) {
	m.QueriesTotal.WithLabelValues(mode, outcome).Inc()
	m.QueryDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// RecordCandidates observes the candidate count of one strategy in one retrieval.
func (m *Metrics) RecordCandidates(strategy string, n int) {
	m.Candidates.WithLabelValues(strategy).Observe(float64(n))
}

// RecordRetrievalFailure counts a failed search call.
func (m *Metrics) RecordRetrievalFailure(strategy string) {
	m.RetrievalFailures.WithLabelValues(strategy).Inc()
}

// RecordRebuild counts a lexical rebuild; documents is the published size
// and is ignored for failed rebuilds.
func (m *Metrics) RecordRebuild(outcome string, documents int) {
	m.LexicalRebuilds.WithLabelValues(outcome).Inc()
	if outcome == "ok" {
		m.LexicalDocuments.Set(float64(documents))
	}
}

// RecordHTTP observes one HTTP request.
func (m *Metrics) RecordHTTP(method, route string, status int, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, statusClass(status)).Inc()
	m.HTTPRequestLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
