// internal/common/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	QueryOrchestrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_orchestrations_total",
			Help: "Total number of orchestrated queries by route",
		},
		[]string{"route"},
	)

	QueryCapabilityResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_capability_results_total",
			Help: "Capability results by tool and outcome",
		},
		[]string{"tool", "outcome"},
	)

	QueryOrchestrationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "query_orchestration_duration_seconds",
			Help:    "End-to-end orchestration duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	QueryFaults = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "query_faults_total",
			Help: "Orchestrations that ended in the error response",
		},
	)
)

func ObserveOrchestration(route string, started time.Time) {
	QueryOrchestrations.WithLabelValues(route).Inc()
	QueryOrchestrationDuration.WithLabelValues(route).Observe(time.Since(started).Seconds())
}

func ObserveCapability(tool, outcome string) {
	QueryCapabilityResults.WithLabelValues(tool, outcome).Inc()
}

// ObserveJob records a finished worker job. An empty errorCode means success.
func ObserveJob(taskType, errorCode string, started time.Time) {
	WorkerJobDuration.WithLabelValues(taskType).Observe(time.Since(started).Seconds())
	if errorCode == "" {
		WorkerJobsCompleted.WithLabelValues(taskType).Inc()
		return
	}
	WorkerJobsFailed.WithLabelValues(taskType, errorCode).Inc()
}
