// Package metrics provides Prometheus metrics for the sync service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsTotal tracks record synchronizations by module and outcome
	RecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sync",
			Subsystem: "engine",
			Name:      "records_total",
			Help:      "Total number of record synchronizations by module and status",
		},
		[]string{"module", "status"},
	)

	// RecordDuration tracks how long one record synchronization takes
	RecordDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sync",
			Subsystem: "engine",
			Name:      "record_duration_seconds",
			Help:      "Duration of record synchronizations in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"module"},
	)

	// MigrationsTotal tracks bulk migrations by module and outcome
	MigrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sync",
			Subsystem: "migration",
			Name:      "runs_total",
			Help:      "Total number of bulk migrations by module and status",
		},
		[]string{"module", "status"},
	)

	// BackgroundTasksTotal tracks background tasks by outcome
	BackgroundTasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sync",
			Subsystem: "worker",
			Name:      "tasks_total",
			Help:      "Total number of background tasks by status",
		},
		[]string{"status"},
	)

	// BackgroundTasksInFlight tracks tasks currently running
	BackgroundTasksInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sync",
			Subsystem: "worker",
			Name:      "tasks_in_flight",
			Help:      "Number of background tasks currently running",
		},
	)

	// HubSpotRequestsTotal tracks outbound CRM requests
	HubSpotRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sync",
			Subsystem: "hubspot",
			Name:      "requests_total",
			Help:      "Total number of outbound HubSpot requests",
		},
		[]string{"method", "status_code"},
	)
)

// Status values used as label values
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusDropped = "dropped"
)
