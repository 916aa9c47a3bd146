package chat

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// chatRequests counts chat calls.
	// Labels: result (success or the error kind)
	chatRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragchat",
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "Total number of chat requests by outcome",
		},
		[]string{"result"},
	)

	chatDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "ragchat",
			Subsystem: "chat",
			Name:      "duration_seconds",
			Help:      "Duration of chat requests in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		},
	)
)
