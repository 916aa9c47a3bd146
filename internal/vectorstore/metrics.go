package vectorstore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// writesTotal counts index writes.
	// Labels: result (success, error)
	writesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragchat",
			Subsystem: "vectorstore",
			Name:      "writes_total",
			Help:      "Total number of index writes",
		},
		[]string{"result"},
	)

	writeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "ragchat",
			Subsystem: "vectorstore",
			Name:      "write_duration_seconds",
			Help:      "Duration of index writes, embedding included",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		},
	)

	chunksIndexed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ragchat",
			Subsystem: "vectorstore",
			Name:      "chunks_indexed_total",
			Help:      "Total number of chunks written to indexes",
		},
	)

	searchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "ragchat",
			Subsystem: "vectorstore",
			Name:      "search_duration_seconds",
			Help:      "Duration of index searches, query embedding included",
			Buckets:   prometheus.DefBuckets,
		},
	)
)
