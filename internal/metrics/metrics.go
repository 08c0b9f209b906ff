// Package metrics holds the prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Score sources.
const (
	SourceDeterministic = "deterministic"
	SourceRemote        = "remote"
	SourceFallback      = "fallback"
)

// Swipe kinds.
const (
	SwipeFavorite = "favorite"
	SwipePass     = "pass"
	SwipeUndo     = "undo"
	SwipeRemove   = "remove_favorite"
	SwipeRestore  = "restore_pass"
)

var (
	ScoresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchmaker_scores_total",
			Help: "Total number of match scores produced, by source",
		},
		[]string{"source"},
	)

	RemoteFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchmaker_remote_failures_total",
			Help: "Total number of failed remote scoring calls, by reason",
		},
		[]string{"reason"},
	)

	RankDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matchmaker_rank_duration_seconds",
			Help:    "Duration of a full ranking run in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
	)

	SwipesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchmaker_swipes_total",
			Help: "Total number of swipe actions, by kind",
		},
		[]string{"kind"},
	)
)
