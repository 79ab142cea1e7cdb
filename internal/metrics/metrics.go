// Package metrics exposes Prometheus instrumentation for daybook.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the rest of the application reports to.
type Recorder interface {
	IncRequestsTotal(route string, status int)
	ObserveRequestDuration(route string, duration time.Duration)
	IncJournalAppends()
	IncJournalErrors(op string)
	SetJournalEntries(n int)
	ObserveCoachCache(hit bool)
}

// Provider is a Recorder backed by a private Prometheus registry.
type Provider struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	journalAppends  prometheus.Counter
	journalErrors   *prometheus.CounterVec
	journalEntries  prometheus.Gauge
	coachCache      *prometheus.CounterVec
}

// New returns a Provider when enabled and a no-op Recorder otherwise.
// The returned handler serves the registry; it is nil when disabled.
func New(enabled bool) (Recorder, http.Handler) {
	if !enabled {
		return Noop{}, nil
	}
	p := NewProvider()
	return p, p.Handler()
}

// NewProvider registers all collectors on a fresh registry.
func NewProvider() *Provider {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Provider{
		registry: reg,
		requestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "daybook_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"route", "status"}),

		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "daybook_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),

		journalAppends: f.NewCounter(prometheus.CounterOpts{
			Name: "daybook_journal_appends_total",
			Help: "Total number of journal entries appended",
		}),

		journalErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "daybook_journal_errors_total",
			Help: "Journal I/O failures by operation",
		}, []string{"op"}),

		journalEntries: f.NewGauge(prometheus.GaugeOpts{
			Name: "daybook_journal_entries",
			Help: "Number of entries in the journal at the last index sync",
		}),

		coachCache: f.NewCounterVec(prometheus.CounterOpts{
			Name: "daybook_coach_cache_lookups_total",
			Help: "Coach suggestion cache lookups by result",
		}, []string{"result"}),
	}
}

// Handler serves the metrics in the Prometheus exposition format.
func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *Provider) IncRequestsTotal(route string, status int) {
	p.requestsTotal.WithLabelValues(route, statusBucket(status)).Inc()
}

func (p *Provider) ObserveRequestDuration(route string, duration time.Duration) {
	p.requestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

func (p *Provider) IncJournalAppends() {
	p.journalAppends.Inc()
}

func (p *Provider) IncJournalErrors(op string) {
	p.journalErrors.WithLabelValues(op).Inc()
}

func (p *Provider) SetJournalEntries(n int) {
	p.journalEntries.Set(float64(n))
}

func (p *Provider) ObserveCoachCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	p.coachCache.WithLabelValues(result).Inc()
}

func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// Noop discards everything.
type Noop struct{}

func (Noop) IncRequestsTotal(string, int)                 {}
func (Noop) ObserveRequestDuration(string, time.Duration) {}
func (Noop) IncJournalAppends()                           {}
func (Noop) IncJournalErrors(string)                      {}
func (Noop) SetJournalEntries(int)                        {}
func (Noop) ObserveCoachCache(bool)                       {}
