package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for conversation activity. A nil
// *Metrics records nothing.
type Metrics struct {
	turns         *prometheus.CounterVec
	rounds        prometheus.Counter
	toolCalls     *prometheus.CounterVec
	modelFailures prometheus.Counter
	modelLatency  prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// uses the default registerer. Registration errors are returned so callers
// can pass a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "notepilot",
				Subsystem: "engine",
				Name:      "turns_total",
				Help:      "Conversation turns by terminal status.",
			},
			[]string{"mode", "status"},
		),
		rounds: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "notepilot",
				Subsystem: "engine",
				Name:      "model_requests_total",
				Help:      "Model requests issued, one per round.",
			},
		),
		toolCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "notepilot",
				Subsystem: "engine",
				Name:      "tool_calls_total",
				Help:      "Dispatched tool calls by tool and outcome.",
			},
			[]string{"tool", "outcome"},
		),
		modelFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "notepilot",
				Subsystem: "engine",
				Name:      "model_failures_total",
				Help:      "Model requests that returned an error.",
			},
		),
		modelLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "notepilot",
				Subsystem: "engine",
				Name:      "model_request_duration_seconds",
				Help:      "Time spent waiting for a model completion.",
				Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
		),
	}

	for _, c := range []prometheus.Collector{m.turns, m.rounds, m.toolCalls, m.modelFailures, m.modelLatency} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) turn(mode string, status Status) {
	if m == nil {
		return
	}
	m.turns.WithLabelValues(mode, status.String()).Inc()
}

func (m *Metrics) request(started time.Time, err error) {
	if m == nil {
		return
	}
	m.rounds.Inc()
	m.modelLatency.Observe(time.Since(started).Seconds())
	if err != nil {
		m.modelFailures.Inc()
	}
}

func (m *Metrics) toolCall(tool string, isError bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if isError {
		outcome = "error"
	}
	m.toolCalls.WithLabelValues(tool, outcome).Inc()
}
