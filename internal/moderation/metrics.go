package moderation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	verdicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_moderation_verdicts_total",
			Help: "Moderation verdicts by resulting status",
		},
		[]string{"status"},
	)

	checkOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_moderation_checks_total",
			Help: "Moderation check outcomes",
		},
		[]string{"check", "outcome"},
	)
)
