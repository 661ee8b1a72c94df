package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHitsTotal tracks feed cache hits.
	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flasharb_cache_hits_total",
		Help: "Total number of feed cache hits",
	})

	// CacheMissesTotal tracks feed cache misses.
	CacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flasharb_cache_misses_total",
		Help: "Total number of feed cache misses",
	})

	// CacheSetsTotal tracks feed cache writes.
	CacheSetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flasharb_cache_sets_total",
		Help: "Total number of feed cache writes",
	})
)
