package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the password policy instruments. Every observe helper is nil-safe so
// components can run without metrics wired.
type Metrics struct {
	GateDecisions         *prometheus.CounterVec
	ExpiryEvaluations     *prometheus.CounterVec
	ExpiryCacheLookups    *prometheus.CounterVec
	HistoryEntriesCreated *prometheus.CounterVec
	HistoryEntriesEvicted *prometheus.CounterVec
	ReuseAttempts         *prometheus.CounterVec
	EventDispatchFailures *prometheus.CounterVec
	ReuseCheckLatency     prometheus.Histogram
}

// New creates the instruments and registers them on reg (prometheus.DefaultRegisterer when nil).
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	const subsystem = "password_policy"

	m := &Metrics{
		GateDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "gate_decisions_total",
			Help:      "Request gate decisions by outcome",
		}, []string{"account_type", "decision"}),
		ExpiryEvaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "expiry_evaluations_total",
			Help:      "Password expiry evaluations by result",
		}, []string{"account_type", "expired"}),
		ExpiryCacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "expiry_cache_lookups_total",
			Help:      "Expiry cache lookups by result",
		}, []string{"result"}),
		HistoryEntriesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "history_entries_created_total",
			Help:      "Password history entries archived",
		}, []string{"account_type"}),
		HistoryEntriesEvicted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "history_entries_evicted_total",
			Help:      "Password history entries removed by retention",
		}, []string{"account_type"}),
		ReuseAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "reuse_attempts_total",
			Help:      "Rejected password reuse attempts",
		}, []string{"account_type", "kind"}),
		EventDispatchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "event_dispatch_failures_total",
			Help:      "Event handlers that failed or panicked",
		}, []string{"event_type"}),
		ReuseCheckLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "reuse_check_duration_seconds",
			Help:      "Time spent verifying a candidate against history",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
	}

	reg.MustRegister(
		m.GateDecisions,
		m.ExpiryEvaluations,
		m.ExpiryCacheLookups,
		m.HistoryEntriesCreated,
		m.HistoryEntriesEvicted,
		m.ReuseAttempts,
		m.EventDispatchFailures,
		m.ReuseCheckLatency,
	)
	return m
}

func (m *Metrics) ObserveGate(accountType, decision string) {
	if m == nil {
		return
	}
	m.GateDecisions.WithLabelValues(accountType, decision).Inc()
}

func (m *Metrics) ObserveExpiry(accountType string, expired bool) {
	if m == nil {
		return
	}
	label := "false"
	if expired {
		label = "true"
	}
	m.ExpiryEvaluations.WithLabelValues(accountType, label).Inc()
}

// ObserveCache records "hit", "miss" or "error".
func (m *Metrics) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.ExpiryCacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveHistory(accountType string, created, evicted int) {
	if m == nil {
		return
	}
	m.HistoryEntriesCreated.WithLabelValues(accountType).Add(float64(created))
	m.HistoryEntriesEvicted.WithLabelValues(accountType).Add(float64(evicted))
}

// ObserveReuse records "exact" or "extension".
func (m *Metrics) ObserveReuse(accountType, kind string) {
	if m == nil {
		return
	}
	m.ReuseAttempts.WithLabelValues(accountType, kind).Inc()
}

func (m *Metrics) ObserveReuseLatency(seconds float64) {
	if m == nil {
		return
	}
	m.ReuseCheckLatency.Observe(seconds)
}

func (m *Metrics) ObserveDispatchFailure(eventType string) {
	if m == nil {
		return
	}
	m.EventDispatchFailures.WithLabelValues(eventType).Inc()
}
