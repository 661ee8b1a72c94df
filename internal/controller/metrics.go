package controller

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ControllerState exposes the current lifecycle phase
	// (0=idle, 1=scanning, 2=executing, 3=cooldown).
	ControllerState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "flasharb_controller_state",
		Help: "Current controller state (0=idle, 1=scanning, 2=executing, 3=cooldown)",
	})

	// ScanIterationsTotal counts control loop iterations.
	ScanIterationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flasharb_controller_scan_iterations_total",
		Help: "Total number of control loop scan iterations",
	})

	// ScanErrorsTotal counts failed scans.
	ScanErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flasharb_controller_scan_errors_total",
		Help: "Total number of failed scans",
	})

	// ExecutionsTriggeredTotal counts submissions initiated by the loop.
	ExecutionsTriggeredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flasharb_controller_executions_triggered_total",
		Help: "Total number of executions triggered by the control loop",
	})

	// ExecutionsVetoedTotal counts executions blocked by the balance gate.
	ExecutionsVetoedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flasharb_controller_executions_vetoed_total",
		Help: "Total number of executions vetoed by the circuit breaker",
	})

	// CooldownsTotal counts cooldown periods entered after executions.
	CooldownsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flasharb_controller_cooldowns_total",
		Help: "Total number of cooldown periods entered",
	})
)
