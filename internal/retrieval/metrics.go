package retrieval

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	retrievalDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "ragchat",
			Subsystem: "retrieval",
			Name:      "duration_seconds",
			Help:      "Duration of top-k retrieval in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// droppedHits counts hits discarded for scoring below the similarity floor.
	droppedHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ragchat",
			Subsystem: "retrieval",
			Name:      "dropped_hits_total",
			Help:      "Total number of search hits dropped below the minimum similarity",
		},
	)
)
