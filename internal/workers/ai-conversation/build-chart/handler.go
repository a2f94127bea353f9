// internal/workers/ai-conversation/build-chart/handler.go
package buildchart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	commonerrors "query-orchestrator/internal/common/errors"
	"query-orchestrator/internal/models"
)

const (
	TaskType = "build-chart"
)

var (
	ErrChartBuildFailed = errors.New("CHART_BUILD_FAILED")
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Handler struct {
	config  *Config
	builder ChartBuilder
	logger  Logger
}

func NewHandler(config *Config, builder ChartBuilder, log Logger) *Handler {
	return &Handler{
		config:  config,
		builder: builder,
		logger: log.With(map[string]interface{}{
			"taskType": TaskType,
		}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, commonerrors.NewValidationFailedError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	result := h.Visualize(ctx, input.ChartType, input.Title)
	if !result.Value.Success {
		h.failJob(client, job, commonerrors.NewChartBuildFailedError(string(input.ChartType), errors.New(result.Value.Error)))
		return
	}

	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(result.Value)
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("Failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}

// Visualize builds the chart for chartType from its sample series.
// It never returns an error; failures come back as success=false.
func (h *Handler) Visualize(ctx context.Context, chartType models.ChartType, title string) models.Result[Output] {
	data, defaultTitle, ok := SampleData(chartType)
	if !ok {
		return h.fallback(chartType, fmt.Errorf("%w: %q", ErrUnknownChartType, chartType))
	}
	if title == "" {
		title = defaultTitle
	}

	cfg, err := h.builder.Build(chartType, data, title)
	if err != nil {
		return h.fallback(chartType, err)
	}

	h.logger.Info("chart built", map[string]interface{}{
		"chartType": chartType,
		"points":    len(cfg.Values),
	})
	return models.OK(Output{Success: true, ChartConfig: cfg})
}

func (h *Handler) fallback(chartType models.ChartType, err error) models.Result[Output] {
	h.logger.Warn("chart build failed", map[string]interface{}{
		"chartType": chartType,
		"error":     err.Error(),
	})
	return models.Fallback(Output{Success: false, Error: err.Error()}, "chart_build_failed")
}

// failJob fails the job without retries; chart failures are deterministic.
func (h *Handler) failJob(client worker.JobClient, job entities.Job, stdErr *commonerrors.StandardError) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":    job.Key,
		"errorCode": string(stdErr.Code),
		"error":     stdErr.Message,
		"details":   stdErr.Details,
	})

	_, _ = client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(0).
		ErrorMessage(fmt.Sprintf("%s: %s", stdErr.Code, stdErr.Details)).
		Send(context.Background())
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	result := h.Visualize(ctx, input.ChartType, input.Title)
	if !result.Value.Success {
		return &result.Value, fmt.Errorf("%w: %s", ErrChartBuildFailed, result.Value.Error)
	}
	return &result.Value, nil
}
