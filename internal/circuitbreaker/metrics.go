package circuitbreaker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BreakerEnabled indicates whether the circuit breaker allows execution.
	BreakerEnabled = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "flasharb_circuit_breaker_enabled",
		Help: "Whether circuit breaker allows execution (1=enabled, 0=disabled)",
	})

	// BreakerBalance tracks the last checked loan-asset balance.
	BreakerBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "flasharb_circuit_breaker_balance",
		Help: "Last checked loan-asset balance of the monitored account",
	})

	// BreakerDisableThreshold tracks the current threshold for disabling execution.
	BreakerDisableThreshold = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "flasharb_circuit_breaker_disable_threshold",
		Help: "Current balance threshold for disabling execution (dynamically calculated)",
	})

	// BreakerEnableThreshold tracks the current threshold for re-enabling execution.
	BreakerEnableThreshold = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "flasharb_circuit_breaker_enable_threshold",
		Help: "Current balance threshold for re-enabling execution (with hysteresis)",
	})

	// BreakerAvgLoanSize tracks the rolling average loan size.
	BreakerAvgLoanSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "flasharb_circuit_breaker_avg_loan_size",
		Help: "Rolling average loan size from recent executions (used for threshold calculation)",
	})

	// BreakerStateChanges tracks the number of times the breaker changed state.
	BreakerStateChanges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flasharb_circuit_breaker_state_changes_total",
		Help: "Total number of times circuit breaker changed state (enabled/disabled)",
	})

	// BreakerCheckDuration tracks the time taken to check the balance.
	BreakerCheckDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "flasharb_circuit_breaker_check_duration_seconds",
		Help:    "Time taken to check the monitored balance",
		Buckets: prometheus.DefBuckets,
	})
)
