package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// File status labels for FilesTotal.
const (
	StatusProcessed   = "processed"
	StatusSkipped     = "skipped"
	StatusSyntaxError = "syntax_error"
	StatusFailed      = "failed"
)

// Metrics definitions
var (
	FilesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pycount_files_total",
		Help: "Total number of source files handled, by outcome.",
	}, []string{"status"})

	ParseDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pycount_parse_seconds",
		Help:    "Time spent parsing and walking a source file.",
		Buckets: prometheus.DefBuckets,
	})

	OccurrencesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pycount_occurrences_total",
		Help: "Total number of identifier occurrences emitted.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pycount_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	StoreWriteDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pycount_store_write_seconds",
		Help:    "Latency for replacing one file's occurrences in the store.",
		Buckets: prometheus.DefBuckets,
	})
)
