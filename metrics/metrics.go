package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ScoreUpdatesAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "competition",
		Name:      "score_updates_accepted_total",
		Help:      "Score updates accepted into session ledgers.",
	})
	ScoreUpdatesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "competition",
		Name:      "score_updates_rejected_total",
		Help:      "Score updates rejected, by reason.",
	}, []string{"reason"})
	AggregateRecomputes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "competition",
		Name:      "aggregate_recomputes_total",
		Help:      "Aggregated score recomputations.",
	})
	ConflictsFlagged = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "competition",
		Name:      "score_conflicts_flagged_total",
		Help:      "Score conflicts raised for review, by kind.",
	}, []string{"kind"})
	BroadcastDeltas = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "competition",
		Name:      "broadcast_deltas_total",
		Help:      "Delta events published to live topics.",
	})
	LiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "competition",
		Name:      "live_connections",
		Help:      "Currently connected real-time subscribers.",
	})
)
