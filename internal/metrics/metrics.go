package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrdersTotal counts order submissions by terminal outcome.
	OrdersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "invorder_orders_total",
		Help: "Order submissions by terminal outcome.",
	}, []string{"outcome"})

	// VersionConflicts counts committer aborts caused by a stale plan.
	VersionConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "invorder_version_conflicts_total",
		Help: "Commit attempts aborted by an optimistic-concurrency conflict.",
	})

	// CommitAttempts observes how many plan/apply rounds an order needed.
	CommitAttempts = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "invorder_commit_attempts",
		Help:    "Plan/apply rounds per order submission.",
		Buckets: prometheus.LinearBuckets(1, 1, 6),
	})

	// CompensationFailures counts decrements that could not be reversed.
	CompensationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "invorder_compensation_failures_total",
		Help: "Applied decrements that could not be compensated.",
	})
)
