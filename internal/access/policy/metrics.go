// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NYU Libraries

package policy

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for policy evaluation.
var (
	// evaluateDuration tracks the latency of Evaluate calls.
	evaluateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "uvaccess_evaluate_duration_seconds",
		Help:    "Histogram of permission evaluation latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// evaluationsTotal counts evaluations by policy, action, and effect.
	evaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uvaccess_evaluations_total",
		Help: "Total number of permission evaluations",
	}, []string{"policy", "action", "effect"})
)

// observeEvaluation records metrics for a completed evaluation.
func observeEvaluation(policy, action string, effect Effect, duration time.Duration) {
	evaluateDuration.Observe(duration.Seconds())
	evaluationsTotal.WithLabelValues(policy, action, effect.String()).Inc()
}
