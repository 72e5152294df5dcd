// Package metrics exposes wallboxctl counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/five82/wallboxctl/internal/logstore"
)

// Metrics owns a private registry so tests and multiple instances never
// collide on the global default registerer.
type Metrics struct {
	registry *prometheus.Registry

	// PollsTotal counts status polls by result (ok, error).
	PollsTotal *prometheus.CounterVec
	// ActionsTotal counts control actions by action and result
	// (ok, error, denied, throttled).
	ActionsTotal *prometheus.CounterVec
	// LogEntriesTotal counts log store records by level.
	LogEntriesTotal *prometheus.CounterVec
	// LogPersistFailures counts failed writes to the log backend.
	LogPersistFailures prometheus.Counter
	// Connected is 1 while the last poll succeeded.
	Connected prometheus.Gauge
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		PollsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallboxctl_status_polls_total",
				Help: "Total number of status polls",
			},
			[]string{"result"},
		),
		ActionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallboxctl_actions_total",
				Help: "Total number of control actions",
			},
			[]string{"action", "result"},
		),
		LogEntriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallboxctl_log_entries_total",
				Help: "Total number of log entries recorded",
			},
			[]string{"level"},
		),
		LogPersistFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "wallboxctl_log_persist_failures_total",
			Help: "Total number of failed log store writes",
		}),
		Connected: factory.NewGauge(prometheus.GaugeOpts{
			Name: "wallboxctl_connected",
			Help: "1 when the controller answered the last status poll",
		}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus HTTP handler for /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObservePoll records one status poll outcome.
func (m *Metrics) ObservePoll(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.PollsTotal.WithLabelValues("error").Inc()
		m.Connected.Set(0)
		return
	}
	m.PollsTotal.WithLabelValues("ok").Inc()
	m.Connected.Set(1)
}

// ObserveAction records one control action outcome.
func (m *Metrics) ObserveAction(action, result string) {
	if m == nil {
		return
	}
	if action == "" {
		action = "unknown"
	}
	m.ActionsTotal.WithLabelValues(action, result).Inc()
}

// EntryRecorded implements logstore.Observer.
func (m *Metrics) EntryRecorded(level logstore.Level) {
	if m == nil {
		return
	}
	m.LogEntriesTotal.WithLabelValues(string(level)).Inc()
}

// PersistFailed implements logstore.Observer.
func (m *Metrics) PersistFailed() {
	if m == nil {
		return
	}
	m.LogPersistFailures.Inc()
}

var _ logstore.Observer = (*Metrics)(nil)
