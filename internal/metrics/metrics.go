// Package metrics exposes the prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "huddle_active_sessions",
		Help: "Number of live media sessions.",
	})
	ConnectedPeers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "huddle_connected_peers",
		Help: "Number of peers currently in a session.",
	})
	MatchesMade = promauto.NewCounter(prometheus.CounterOpts{
		Name: "huddle_matches_made_total",
		Help: "Total random chat pairings.",
	})
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "huddle_match_queue_depth",
		Help: "Users waiting in the random chat queue.",
	})
	SignalMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "huddle_signal_messages_total",
		Help: "Signal messages handled, by type.",
	}, []string{"type"})
)
