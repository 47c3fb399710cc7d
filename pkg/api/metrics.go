package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/entrhq/actionapi/pkg/browser"
)

// Action outcomes recorded in actionapi_actions_total.
const (
	outcomeSuccess = "success" // action ran and succeeded
	outcomeFailure = "failure" // soft failure, screenshot returned
	outcomeError   = "error"   // rejected before reaching the page
)

// Metrics holds the server's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	activeSessions  prometheus.Gauge
	sessionsStarted prometheus.Counter
	startFailures   prometheus.Counter
	sessionsClosed  *prometheus.CounterVec
	actions         *prometheus.CounterVec
	actionDuration  *prometheus.HistogramVec
}

// NewMetrics creates the collectors, plus the Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "actionapi",
			Name:      "sessions_active",
			Help:      "Number of live browser sessions.",
		}),
		sessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "actionapi",
			Name:      "sessions_started_total",
			Help:      "Browser sessions started successfully.",
		}),
		startFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "actionapi",
			Name:      "session_start_failures_total",
			Help:      "Browser session starts that failed.",
		}),
		sessionsClosed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "actionapi",
			Name:      "sessions_closed_total",
			Help:      "Browser sessions closed, by reason.",
		}, []string{"reason"}),
		actions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "actionapi",
			Name:      "actions_total",
			Help:      "Actions executed, by kind and outcome.",
		}, []string{"action", "outcome"}),
		actionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "actionapi",
			Name:      "action_duration_seconds",
			Help:      "Time spent executing actions, including the screenshot.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"action"}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) observeAction(kind browser.ActionKind, outcome string, elapsed time.Duration) {
	m.actions.WithLabelValues(string(kind), outcome).Inc()
	if outcome != outcomeError {
		m.actionDuration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
	}
}

func (m *Metrics) setActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}
