package observability

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/boddenberg/realty-pipeline-go/internal/domain"
)

// Metrics holds all Prometheus metrics for the pipeline service.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	operationDuration *prometheus.HistogramVec
	domainErrors      *prometheus.CounterVec
	providerErrors    *prometheus.CounterVec
	cacheHits         *prometheus.CounterVec
	cacheMisses       *prometheus.CounterVec
	eventsPublished   *prometheus.CounterVec
	requestsTotal     *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pipeline_operation_duration_seconds",
				Help:    "Duration of service operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		domainErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_domain_errors_total",
				Help: "Operations rejected, by error kind.",
			},
			[]string{"kind"},
		),
		providerErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_provider_errors_total",
				Help: "Backend failures, by backend.",
			},
			[]string{"backend"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		eventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_events_published_total",
				Help: "Domain events handed to the broker.",
			},
			[]string{"type", "outcome"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_http_requests_total",
				Help: "HTTP requests by status class.",
			},
			[]string{"class"},
		),
	}
}

func (m *Metrics) RecordOperation(operation string, d time.Duration) {
	m.operationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordError counts err under its taxonomy kind. Provider failures are
// also counted per backend.
func (m *Metrics) RecordError(err error) {
	if err == nil {
		return
	}
	kind := ErrorKind(err)
	m.domainErrors.WithLabelValues(kind).Inc()

	var perr *domain.ErrProvider
	if errors.As(err, &perr) {
		m.providerErrors.WithLabelValues(perr.Backend).Inc()
	}
}

func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrEventPublished counts a publish attempt; outcome is "ok" or "error".
func (m *Metrics) IncrEventPublished(eventType, outcome string) {
	m.eventsPublished.WithLabelValues(eventType, outcome).Inc()
}

// IncrRequest counts an HTTP response by status class ("2xx", "4xx", ...).
func (m *Metrics) IncrRequest(status int) {
	m.requestsTotal.WithLabelValues(statusClass(status)).Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	}
	return "2xx"
}

// ErrorKind names the taxonomy member of err, "internal" when none matches.
func ErrorKind(err error) string {
	var (
		nf   *domain.ErrNotFound
		val  *domain.ErrValidation
		auth *domain.ErrUnauthorized
		cm   *domain.ErrConcurrentModification
		prov *domain.ErrProvider
	)
	switch {
	case errors.As(err, &nf):
		return "not_found"
	case errors.As(err, &val):
		return "validation"
	case errors.As(err, &auth):
		return "unauthorized"
	case errors.As(err, &cm):
		return "concurrent_modification"
	case errors.As(err, &prov):
		return "provider"
	}
	return "internal"
}
