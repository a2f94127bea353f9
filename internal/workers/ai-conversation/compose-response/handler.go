// internal/workers/ai-conversation/compose-response/handler.go
package composeresponse

import (
	"context"
	"encoding/json"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	commonerrors "query-orchestrator/internal/common/errors"
	"query-orchestrator/internal/common/validation"
)

const (
	TaskType = "orchestrate-query"
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Validator interface {
	ValidateJSON(taskType string, body []byte) *validation.ValidationResult
}

// Handler runs a whole orchestration as a single Zeebe job.
type Handler struct {
	config       *Config
	composer     *Composer
	validator    Validator
	errorHandler *commonerrors.ErrorHandler
	logger       Logger
}

func NewHandler(config *Config, composer *Composer, validator Validator, log Logger) *Handler {
	logger := log.With(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config:       config,
		composer:     composer,
		validator:    validator,
		errorHandler: commonerrors.NewErrorHandler(logger),
		logger:       logger,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.JobTimeout)
	defer cancel()

	output, err := h.execute(ctx, []byte(job.Variables))
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
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

func (h *Handler) execute(ctx context.Context, variables []byte) (*Output, error) {
	if result := h.validator.ValidateJSON(TaskType, variables); !result.Valid {
		return nil, commonerrors.NewValidationFailedError(result.Summary())
	}

	var input Input
	if err := json.Unmarshal(variables, &input); err != nil {
		return nil, commonerrors.NewValidationFailedError(err.Error())
	}

	return h.composer.Orchestrate(ctx, input.Query, input.Tenant), nil
}

// Execute validates raw job variables and orchestrates them.
func (h *Handler) Execute(ctx context.Context, variables []byte) (*Output, error) {
	return h.execute(ctx, variables)
}
