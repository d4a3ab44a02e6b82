package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forexcal_runs_started_total",
		Help: "Total number of scrape runs started.",
	})

	RunsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forexcal_runs_completed_total",
		Help: "Total number of scrape runs completed, labelled by outcome.",
	}, []string{"status"})

	RowsParsed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forexcal_rows_parsed_total",
		Help: "Total number of raw calendar rows handed to the parser.",
	})

	EventsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forexcal_events_accepted_total",
		Help: "Total number of events that passed filtering.",
	})

	RowsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forexcal_rows_rejected_total",
		Help: "Total number of rows rejected, labelled by reason.",
	}, []string{"reason"})

	SinkPersists = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forexcal_sink_persists_total",
		Help: "Total number of sink persist attempts, labelled by sink and status.",
	}, []string{"sink", "status"})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "forexcal_run_duration_seconds",
		Help:    "End-to-end scrape run duration in seconds.",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	})
)
