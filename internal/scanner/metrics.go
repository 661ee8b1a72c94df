package scanner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScansTotal tracks completed scan invocations.
	ScansTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flasharb_scanner_scans_total",
		Help: "Total number of scans performed",
	})

	// ScanDurationSeconds tracks scan latency.
	ScanDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "flasharb_scanner_scan_duration_seconds",
		Help:    "Duration of full scans",
		Buckets: prometheus.DefBuckets,
	})

	// PairsFetchedTotal tracks feed entries received.
	PairsFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flasharb_scanner_pairs_fetched_total",
		Help: "Total pairs returned by the feed",
	})

	// PairsRejectedTotal tracks discarded candidates by filter.
	PairsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flasharb_scanner_pairs_rejected_total",
		Help: "Total candidates discarded, by filter",
	}, []string{"filter"})

	// OpportunitiesFoundTotal tracks accepted opportunities.
	OpportunitiesFoundTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flasharb_scanner_opportunities_total",
		Help: "Total opportunities retained after filtering",
	})

	// FeedErrorsTotal tracks feed request failures.
	FeedErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flasharb_scanner_feed_errors_total",
		Help: "Total feed request failures",
	})

	// FeedRequestDurationSeconds tracks feed request latency.
	FeedRequestDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "flasharb_scanner_feed_request_duration_seconds",
		Help:    "Duration of feed HTTP requests",
		Buckets: prometheus.DefBuckets,
	})
)
