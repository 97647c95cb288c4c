// Package metrics holds the prometheus instruments of the session engine.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	LobbiesCreated  *prometheus.CounterVec
	QueueWaiting    prometheus.Gauge
	Matches         *prometheus.CounterVec
	ActiveSessions  *prometheus.GaugeVec
	MatchesResolved *prometheus.CounterVec
	SyncFailures    *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LobbiesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quizbattle",
			Name:      "lobbies_created_total",
			Help:      "Lobbies created, by mode.",
		}, []string{"mode"}),
		QueueWaiting: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quizbattle",
			Name:      "matchmaking_waiting",
			Help:      "Players parked in the duel queue.",
		}),
		Matches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quizbattle",
			Name:      "matchmaking_pairings_total",
			Help:      "Duel pairings, by opponent kind.",
		}, []string{"opponent"}),
		ActiveSessions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "quizbattle",
			Name:      "active_sessions",
			Help:      "Running session actors, by mode.",
		}, []string{"mode"}),
		MatchesResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quizbattle",
			Name:      "matches_resolved_total",
			Help:      "Completed sessions handed to the resolver, by mode.",
		}, []string{"mode"}),
		SyncFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quizbattle",
			Name:      "sync_failures_total",
			Help:      "Background store writes that failed and were deferred.",
		}, []string{"op"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.LobbiesCreated,
			m.QueueWaiting,
			m.Matches,
			m.ActiveSessions,
			m.MatchesResolved,
			m.SyncFailures,
		)
	}
	return m
}

func (m *Metrics) LobbyCreated(mode string) {
	if m == nil {
		return
	}
	m.LobbiesCreated.WithLabelValues(mode).Inc()
}

func (m *Metrics) Waiting(n int) {
	if m == nil {
		return
	}
	m.QueueWaiting.Set(float64(n))
}

func (m *Metrics) Paired(opponent string) {
	if m == nil {
		return
	}
	m.Matches.WithLabelValues(opponent).Inc()
}

func (m *Metrics) SessionStarted(mode string) {
	if m == nil {
		return
	}
	m.ActiveSessions.WithLabelValues(mode).Inc()
}

func (m *Metrics) SessionEnded(mode string) {
	if m == nil {
		return
	}
	m.ActiveSessions.WithLabelValues(mode).Dec()
}

func (m *Metrics) Resolved(mode string) {
	if m == nil {
		return
	}
	m.MatchesResolved.WithLabelValues(mode).Inc()
}

func (m *Metrics) SyncFailed(op string) {
	if m == nil {
		return
	}
	m.SyncFailures.WithLabelValues(op).Inc()
}
