// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"sync"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"query-orchestrator/internal/common/config"
	"query-orchestrator/internal/common/metrics"
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// JobRecorder receives per-job OpenTelemetry measurements.
type JobRecorder interface {
	RecordJobProcessed(ctx context.Context, status string)
	RecordJobDuration(ctx context.Context, duration time.Duration, status string)
}

type HandlerFunc func(client worker.JobClient, job entities.Job)

// WorkerManager opens instrumented job workers and closes them together.
type WorkerManager struct {
	client   zbc.Client
	config   *config.Config
	recorder JobRecorder
	logger   Logger

	mu      sync.Mutex
	workers map[string]worker.JobWorker
}

func NewWorkerManager(client zbc.Client, cfg *config.Config, recorder JobRecorder, log Logger) *WorkerManager {
	return &WorkerManager{
		client:   client,
		config:   cfg,
		recorder: recorder,
		logger:   log,
		workers:  make(map[string]worker.JobWorker),
	}
}

// Start opens a worker for taskType unless the workers config disables it.
func (m *WorkerManager) Start(taskType string, handler HandlerFunc) bool {
	if !config.IsWorkerEnabled(m.config, taskType) {
		m.logger.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return false
	}
	wcfg := config.GetWorkerConfig(m.config, taskType)

	jobWorker := m.client.NewJobWorker().
		JobType(taskType).
		Handler(Instrument(taskType, m.recorder, handler)).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Open()

	m.mu.Lock()
	m.workers[taskType] = jobWorker
	m.mu.Unlock()

	m.logger.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})
	return true
}

func (m *WorkerManager) TaskTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, 0, len(m.workers))
	for t := range m.workers {
		types = append(types, t)
	}
	return types
}

func (m *WorkerManager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for taskType, w := range m.workers {
		m.logger.Info("stopping worker", map[string]interface{}{"taskType": taskType})
		w.Close()
		w.AwaitClose()
	}
	m.workers = make(map[string]worker.JobWorker)
}

// Instrument wraps handler with the worker_jobs_* metrics. A job counts as
// failed when the handler fails it or throws a BPMN error.
func Instrument(taskType string, recorder JobRecorder, handler HandlerFunc) worker.JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		started := time.Now()
		metrics.WorkerJobsActive.WithLabelValues(taskType).Inc()
		defer metrics.WorkerJobsActive.WithLabelValues(taskType).Dec()

		tracked := &trackingClient{JobClient: client}
		handler(tracked, job)

		status := "completed"
		errorCode := ""
		switch {
		case tracked.threw:
			status, errorCode = "failed", "BPMN_ERROR"
		case tracked.failed:
			status, errorCode = "failed", "JOB_FAILED"
		}
		metrics.ObserveJob(taskType, errorCode, started)

		if recorder != nil {
			ctx := context.Background()
			recorder.RecordJobProcessed(ctx, status)
			recorder.RecordJobDuration(ctx, time.Since(started), status)
		}
	}
}

type trackingClient struct {
	worker.JobClient
	failed bool
	threw  bool
}

func (c *trackingClient) NewFailJobCommand() commands.FailJobCommandStep1 {
	c.failed = true
	return c.JobClient.NewFailJobCommand()
}

func (c *trackingClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	c.threw = true
	return c.JobClient.NewThrowErrorCommand()
}
