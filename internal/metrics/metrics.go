package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	checksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "boxwatch",
			Subsystem: "watchdog",
			Name:      "checks_total",
			Help:      "Number of connectivity checks by result.",
		}, []string{"result"},
	)
	consecutiveFailures = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "boxwatch",
			Subsystem: "watchdog",
			Name:      "consecutive_failures",
			Help:      "Failed checks since the last successful one.",
		},
	)
	restartsAttempted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "boxwatch",
			Subsystem: "watchdog",
			Name:      "restarts_attempted_total",
			Help:      "Number of router restart attempts.",
		},
	)
	restartsSucceeded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "boxwatch",
			Subsystem: "watchdog",
			Name:      "restarts_succeeded_total",
			Help:      "Number of restart commands the router accepted.",
		},
	)
	inCooldown = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "boxwatch",
			Subsystem: "watchdog",
			Name:      "in_cooldown",
			Help:      "1 while restarts are suppressed by the cooldown window.",
		},
	)
	cooldownRemaining = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "boxwatch",
			Subsystem: "watchdog",
			Name:      "cooldown_remaining_seconds",
			Help:      "Seconds until restarts are permitted again; 0 outside cooldown.",
		},
	)
	probeHostUp = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "boxwatch",
			Subsystem: "probe",
			Name:      "host_up",
			Help:      "Last ping result per probe host (1 = reachable).",
		}, []string{"host"},
	)
	cycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "boxwatch",
			Subsystem: "watchdog",
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of one check cycle including diagnostics.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{
		checksTotal, consecutiveFailures, restartsAttempted, restartsSucceeded,
		inCooldown, cooldownRemaining, probeHostUp, cycleDuration,
	}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			// If already registered, ignore (allows double Register with default registry)
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics for the DefaultGatherer.
// The caller is responsible for starting an HTTP server and wiring the route.
func Handler() http.Handler { return promhttp.Handler() }

// Below are lightweight helpers used by internal packages to record metrics.
// They no-op if Register hasn't been called.

func IncCheck(success bool) {
	if regOK.Load() {
		result := "failure"
		if success {
			result = "success"
		}
		checksTotal.WithLabelValues(result).Inc()
	}
}

func SetConsecutiveFailures(n int) {
	if regOK.Load() {
		consecutiveFailures.Set(float64(n))
	}
}

func IncRestartAttempt() {
	if regOK.Load() {
		restartsAttempted.Inc()
	}
}

func IncRestartSuccess() {
	if regOK.Load() {
		restartsSucceeded.Inc()
	}
}

func SetInCooldown(active bool, remainingSeconds float64) {
	if regOK.Load() {
		var v float64
		if active {
			v = 1
		} else {
			remainingSeconds = 0
		}
		inCooldown.Set(v)
		cooldownRemaining.Set(remainingSeconds)
	}
}

func SetProbeHostUp(host string, up bool) {
	if regOK.Load() {
		var v float64
		if up {
			v = 1
		}
		probeHostUp.WithLabelValues(host).Set(v)
	}
}

func ObserveCycleDuration(seconds float64) {
	if regOK.Load() {
		cycleDuration.Observe(seconds)
	}
}
