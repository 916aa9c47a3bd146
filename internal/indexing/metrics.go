package indexing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// buildsTotal counts index builds.
	// Labels: result (success, failed)
	buildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragchat",
			Subsystem: "indexing",
			Name:      "builds_total",
			Help:      "Total number of index builds by outcome",
		},
		[]string{"result"},
	)

	buildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "ragchat",
			Subsystem: "indexing",
			Name:      "build_duration_seconds",
			Help:      "Duration of index builds in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 14),
		},
	)

	documentsLoaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ragchat",
			Subsystem: "indexing",
			Name:      "documents_loaded_total",
			Help:      "Total number of documents loaded by index builds",
		},
	)

	// sharedBuilds counts train calls whose build result was shared.
	sharedBuilds = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ragchat",
			Subsystem: "indexing",
			Name:      "shared_builds_total",
			Help:      "Train requests that shared one build with a concurrent request for the same app",
		},
	)
)
