// Package metrics exposes Prometheus instrumentation for the chat core.
package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeFallback = "fallback"
	OutcomeError    = "error"
	OutcomeInvalid  = "invalid"
)

// Metrics owns a private registry and the collectors registered on it.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prom.Registry

	requests  *prom.CounterVec
	latency   *prom.HistogramVec
	toolCalls *prom.CounterVec
	revisions prom.Counter
	sessions  prom.Gauge
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prom.NewRegistry(),
		requests: prom.NewCounterVec(prom.CounterOpts{
			Name: "companion_requests_total",
			Help: "Chat requests by mode, completion method and outcome.",
		}, []string{"mode", "method", "outcome"}),
		latency: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "companion_response_seconds",
			Help:    "Time to produce a complete response.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"mode"}),
		toolCalls: prom.NewCounterVec(prom.CounterOpts{
			Name: "companion_tool_calls_total",
			Help: "Tool invocations by tool and outcome.",
		}, []string{"tool", "outcome"}),
		revisions: prom.NewCounter(prom.CounterOpts{
			Name: "companion_stream_revisions_total",
			Help: "Streamed candidates that rewrote earlier text instead of extending it.",
		}),
		sessions: prom.NewGauge(prom.GaugeOpts{
			Name: "companion_sessions",
			Help: "Sessions currently held in memory.",
		}),
	}

	m.registry.MustRegister(m.requests, m.latency, m.toolCalls, m.revisions, m.sessions)
	return m
}

// ObserveRequest records one finished request.
func (m *Metrics) ObserveRequest(mode, method, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "none"
	}
	m.requests.WithLabelValues(mode, method, outcome).Inc()
	m.latency.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// ToolCall records one tool invocation.
func (m *Metrics) ToolCall(tool, outcome string) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, outcome).Inc()
}

// StreamRevisions adds n non-prefix stream revisions.
func (m *Metrics) StreamRevisions(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.revisions.Add(float64(n))
}

// SetSessions sets the tracked-session gauge.
func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.sessions.Set(float64(n))
}

// Registry returns the registry backing the handler.
func (m *Metrics) Registry() *prom.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "metrics disabled", http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
