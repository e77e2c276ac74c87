// Package metrics provides Prometheus metrics for the health pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Scorer call outcomes.
const (
	OutcomeParsed      = "parsed"
	OutcomeTransport   = "transport"
	OutcomeUnparseable = "unparseable"
)

// Analysis run results.
const (
	RunSucceeded    = "succeeded"
	RunFailed       = "failed"
	RunInsufficient = "insufficient_data"
)

// Manager owns every collector of the pipeline. A nil *Manager is a no-op.
type Manager struct {
	namespace string
	subsystem string
	buckets   []float64
	registry  *prometheus.Registry

	scorerCalls       *prometheus.CounterVec
	scorerLatency     prometheus.Histogram
	analysisRuns      *prometheus.CounterVec
	analysisDuration  prometheus.Histogram
	messagesScored    prometheus.Counter
	messagesIngested  prometheus.Counter
	triggersFired     *prometheus.CounterVec
	triggersDropped   prometheus.Counter
	guildsInFlight    prometheus.Gauge
	persistenceErrors *prometheus.CounterVec
}

// NewManager creates a new metrics manager on its own registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "guildpulse",
		subsystem: "analysis",
		buckets:   prometheus.DefBuckets,
		registry:  prometheus.NewRegistry(),
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.scorerCalls = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scorer_calls_total",
		Help:      "Scorer invocations by outcome",
	}, []string{"outcome"})

	m.scorerLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scorer_latency_seconds",
		Help:      "Latency of a single model scoring call",
		Buckets:   m.buckets,
	})

	m.analysisRuns = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "runs_total",
		Help:      "Guild analysis runs by result",
	}, []string{"result"})

	m.analysisDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "run_duration_seconds",
		Help:      "Duration of a full guild analysis run",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	m.messagesScored = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "messages_scored_total",
		Help:      "Messages whose scores were written back",
	})

	m.messagesIngested = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "ingest",
		Name:      "messages_total",
		Help:      "Guild messages stored from the gateway",
	})

	m.triggersFired = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "scheduler",
		Name:      "triggers_total",
		Help:      "Analysis runs dispatched by source",
	}, []string{"source"})

	m.triggersDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "scheduler",
		Name:      "triggers_dropped_total",
		Help:      "Triggers ignored because the guild was already analyzing",
	})

	m.guildsInFlight = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "scheduler",
		Name:      "guilds_in_flight",
		Help:      "Guilds currently being analyzed",
	})

	m.persistenceErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "persistence_errors_total",
		Help:      "Failed writes by operation",
	}, []string{"operation"})
}

// Handler exposes the registry over HTTP.
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveScore records one scorer call.
func (m *Manager) ObserveScore(outcome string, latency time.Duration) {
	if m == nil {
		return
	}
	m.scorerCalls.WithLabelValues(outcome).Inc()
	m.scorerLatency.Observe(latency.Seconds())
}

// ObserveRun records a finished analysis run.
func (m *Manager) ObserveRun(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.analysisRuns.WithLabelValues(result).Inc()
	m.analysisDuration.Observe(duration.Seconds())
}

// IncMessagesScored counts a persisted score write.
func (m *Manager) IncMessagesScored() {
	if m == nil {
		return
	}
	m.messagesScored.Inc()
}

// IncMessagesIngested counts a stored gateway message.
func (m *Manager) IncMessagesIngested() {
	if m == nil {
		return
	}
	m.messagesIngested.Inc()
}

// IncTrigger counts a dispatched run.
func (m *Manager) IncTrigger(source string) {
	if m == nil {
		return
	}
	m.triggersFired.WithLabelValues(source).Inc()
}

// IncTriggerDropped counts a trigger that hit an in-flight run.
func (m *Manager) IncTriggerDropped() {
	if m == nil {
		return
	}
	m.triggersDropped.Inc()
}

// AddInFlight moves the in-flight gauge by delta.
func (m *Manager) AddInFlight(delta float64) {
	if m == nil {
		return
	}
	m.guildsInFlight.Add(delta)
}

// IncPersistenceError counts a failed write.
func (m *Manager) IncPersistenceError(operation string) {
	if m == nil {
		return
	}
	m.persistenceErrors.WithLabelValues(operation).Inc()
}
