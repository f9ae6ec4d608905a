package arena

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the arena counters exposed on /metrics.
type Metrics struct {
	RoomsOpen          prometheus.Gauge
	MatchesStarted     prometheus.Counter
	BuzzAttempts       prometheus.Counter
	BuzzWins           prometheus.Counter
	SnapshotsBroadcast prometheus.Counter
}

// NewMetrics builds and registers the arena collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RoomsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "arena_rooms_open",
			Help: "Number of rooms currently open on this instance.",
		}),
		MatchesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arena_matches_started_total",
			Help: "Matches started.",
		}),
		BuzzAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arena_buzz_attempts_total",
			Help: "Buzz intents received by the arbiter.",
		}),
		BuzzWins: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arena_buzz_wins_total",
			Help: "Buzz intents that claimed the slot.",
		}),
		SnapshotsBroadcast: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arena_snapshots_broadcast_total",
			Help: "Full state snapshots pushed to rooms.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.RoomsOpen, m.MatchesStarted, m.BuzzAttempts, m.BuzzWins, m.SnapshotsBroadcast)
	}
	return m
}
