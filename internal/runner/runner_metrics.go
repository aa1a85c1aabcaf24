package runner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	trialsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parity_trials_total",
		Help: "Recorded trials by entry point and verdict",
	}, []string{"entry_point", "verdict"})

	discardsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parity_discards_total",
		Help: "Inputs rejected by a precondition",
	}, []string{"entry_point"})

	invocationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "parity_invocation_duration_seconds",
		Help:    "Operation invocation latency by side and outcome kind",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10us to ~2.6s
	}, []string{"side", "kind"})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parity_runs_total",
		Help: "Finished runs by entry point and result",
	}, []string{"entry_point", "result"})
)
