package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ExecutionsTotal tracks execution attempts by result.
	ExecutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flasharb_engine_executions_total",
		Help: "Total execution attempts by result",
	}, []string{"result"})

	// ExecutionFailuresTotal tracks rejections by reason code.
	ExecutionFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flasharb_engine_failures_total",
		Help: "Total rejected executions by reason code",
	}, []string{"reason"})

	// ExecutionProfitTotal accumulates realized profit in base units.
	ExecutionProfitTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flasharb_engine_profit_total",
		Help: "Cumulative realized profit in asset base units",
	})

	// ExecutionWorkUsed tracks work units consumed per successful attempt.
	ExecutionWorkUsed = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "flasharb_engine_work_used",
		Help:    "Work units consumed per successful execution",
		Buckets: prometheus.ExponentialBuckets(10, 4, 8),
	})

	// QuotesUnavailableTotal tracks venue quote calls that produced no answer.
	QuotesUnavailableTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flasharb_engine_quotes_unavailable_total",
		Help: "Total venue quote calls treated as unavailable",
	})

	// WithdrawalsTotal tracks owner withdrawals.
	WithdrawalsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flasharb_engine_withdrawals_total",
		Help: "Total completed owner withdrawals",
	})
)
