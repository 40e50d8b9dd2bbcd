// Package metrics holds the Prometheus collectors of the web frontend.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lllypuk/userdesk/internal/store"
)

// StoreMetrics contains Prometheus metrics for the per-session stores.
// It implements store.Metrics.
type StoreMetrics struct {
	ActionsDispatched *prometheus.CounterVec
	ActionsDropped    *prometheus.CounterVec
	EffectDuration    *prometheus.HistogramVec
	EffectFailures    *prometheus.CounterVec
	SessionsActive    prometheus.Gauge
}

// NewStoreMetrics creates and registers store metrics with the given registerer.
func NewStoreMetrics(registerer prometheus.Registerer) *StoreMetrics {
	metrics := &StoreMetrics{
		ActionsDispatched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "userdesk_actions_dispatched_total",
				Help: "Total number of dispatched actions",
			},
			[]string{"action"},
		),
		ActionsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "userdesk_actions_dropped_total",
				Help: "Actions dropped because one of the same type was in flight",
			},
			[]string{"action"},
		),
		EffectDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "userdesk_effect_duration_seconds",
				Help:    "Duration of remote calls made by effects",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"action", "outcome"}, // outcome: success/validation/failed
		),
		EffectFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "userdesk_effect_failures_total",
				Help: "Remote call failures that produced no follow-up action",
			},
			[]string{"action"},
		),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "userdesk_sessions_active",
			Help: "Current number of browser sessions holding a store",
		}),
	}

	registerer.MustRegister(
		metrics.ActionsDispatched,
		metrics.ActionsDropped,
		metrics.EffectDuration,
		metrics.EffectFailures,
		metrics.SessionsActive,
	)

	return metrics
}

// ActionDispatched implements store.Metrics.
func (m *StoreMetrics) ActionDispatched(t store.ActionType) {
	m.ActionsDispatched.WithLabelValues(string(t)).Inc()
}

// ActionDropped implements store.Metrics.
func (m *StoreMetrics) ActionDropped(t store.ActionType) {
	m.ActionsDropped.WithLabelValues(string(t)).Inc()
}

// EffectCompleted implements store.Metrics.
func (m *StoreMetrics) EffectCompleted(t store.ActionType, outcome string, elapsed time.Duration) {
	m.EffectDuration.WithLabelValues(string(t), outcome).Observe(elapsed.Seconds())
	if outcome == store.OutcomeFailed {
		m.EffectFailures.WithLabelValues(string(t)).Inc()
	}
}

// SessionOpened increments the active sessions gauge.
func (m *StoreMetrics) SessionOpened() {
	m.SessionsActive.Inc()
}

// SessionClosed decrements the active sessions gauge.
func (m *StoreMetrics) SessionClosed() {
	m.SessionsActive.Dec()
}
