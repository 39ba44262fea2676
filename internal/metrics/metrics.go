// Package metrics exposes process-local counters for resolution activity.
// Everything is nil-safe so library callers can skip metrics entirely.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Set is the engine's metric family.
type Set struct {
	attempts        *prometheus.CounterVec
	resolutions     *prometheus.CounterVec
	attemptDuration *prometheus.HistogramVec
}

// NewSet registers the metric family on reg. A nil reg gets a private
// registry, useful when the caller only wants the engine to run.
func NewSet(reg prometheus.Registerer) *Set {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	s := &Set{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "streamresolver_attempts_total",
			Help: "Backend attempts by backend and outcome.",
		}, []string{"backend", "outcome"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "streamresolver_resolutions_total",
			Help: "Channel resolutions by outcome.",
		}, []string{"outcome"}),
		attemptDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "streamresolver_attempt_duration_seconds",
			Help:    "Per-attempt wall time by backend.",
			Buckets: prometheus.DefBuckets,
		}, []string{"backend"}),
	}
	reg.MustRegister(s.attempts, s.resolutions, s.attemptDuration)
	return s
}

// Attempt records one backend attempt.
func (s *Set) Attempt(backend, outcome string, elapsed time.Duration) {
	if s == nil {
		return
	}
	s.attempts.WithLabelValues(backend, outcome).Inc()
	s.attemptDuration.WithLabelValues(backend).Observe(elapsed.Seconds())
}

// Resolution records one finished channel resolution.
func (s *Set) Resolution(resolved bool) {
	if s == nil {
		return
	}
	outcome := "failed"
	if resolved {
		outcome = "resolved"
	}
	s.resolutions.WithLabelValues(outcome).Inc()
}
