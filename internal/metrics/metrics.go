// Package metrics exposes Prometheus collectors for the ledger and HTTP layer.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fintrack"

// Metrics groups every collector on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	Actions            *prometheus.CounterVec
	ValidationFailures *prometheus.CounterVec
	PersistFailures    prometheus.Counter
	PublishFailures    prometheus.Counter
	Entries            prometheus.Gauge
	Savings            prometheus.Gauge
	CacheLookups       *prometheus.CounterVec
	HTTPRequests       *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
	RateLimited        prometheus.Counter
	ReportsWritten     *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "ledger_actions_total",
			Help: "Dispatched ledger actions by action and outcome.",
		}, []string{"action", "outcome"}),
		ValidationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "validation_failures_total",
			Help: "Rejected user input by action.",
		}, []string{"action"}),
		PersistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "persist_failures_total",
			Help: "Saves that failed and left the ledger memory-only.",
		}),
		PublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "publish_failures_total",
			Help: "Change events that could not be published.",
		}),
		Entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "ledger_entries",
			Help: "Number of entries currently in the ledger.",
		}),
		Savings: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "ledger_savings",
			Help: "Total income minus total expenses.",
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_lookups_total",
			Help: "Dashboard cache lookups by result.",
		}, []string{"result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "rate_limited_total",
			Help: "Requests rejected by the rate limiter.",
		}),
		ReportsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "reports_written_total",
			Help: "Report sync attempts by outcome.",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Actions, m.ValidationFailures, m.PersistFailures, m.PublishFailures,
		m.Entries, m.Savings, m.CacheLookups, m.HTTPRequests, m.HTTPDuration,
		m.RateLimited, m.ReportsWritten,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
