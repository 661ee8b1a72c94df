package storage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OutcomesStoredTotal tracks execution outcomes persisted.
	OutcomesStoredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flasharb_storage_outcomes_stored_total",
		Help: "Total number of execution outcomes stored",
	})

	// OutcomeStoreErrorsTotal tracks failed persistence attempts.
	OutcomeStoreErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flasharb_storage_outcome_store_errors_total",
		Help: "Total number of errors storing execution outcomes",
	})
)
