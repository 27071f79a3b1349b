package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recomputeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "review_rating_recompute_duration_seconds",
			Help:    "Time spent recomputing a subject rating, lock wait included.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	reviewsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviews_submitted_total",
			Help: "Submitted reviews by subject kind and resulting status.",
		},
		[]string{"subject_kind", "status"},
	)

	cacheFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "review_rating_cache_errors_total",
			Help: "Rating cache operations that failed and fell back to the database.",
		},
	)
)
