// internal/workers/ai-conversation/llm-synthesis/handler.go
package llmsynthesis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	commonerrors "query-orchestrator/internal/common/errors"
	"query-orchestrator/internal/common/genai"
)

const (
	TaskType = "llm-synthesis"
)

var (
	ErrLLMTimeout         = errors.New("LLM_TIMEOUT")
	ErrLLMSynthesisFailed = errors.New("LLM_SYNTHESIS_FAILED")
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Handler struct {
	config *Config
	model  genai.LanguageModel
	logger Logger
}

func NewHandler(config *Config, model genai.LanguageModel, log Logger) *Handler {
	return &Handler{
		config: config,
		model:  model,
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
		h.failJob(client, job, commonerrors.NewValidationFailedError(fmt.Sprintf("parse input: %v", err)), 0)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		retries := int32(0)
		if errors.Is(err, ErrLLMTimeout) || errors.Is(err, ErrLLMSynthesisFailed) {
			retries = 1
		}
		h.failJob(client, job, err, retries)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	completion, err := h.model.Generate(ctx, BuildMessages(input.Question, input.Documents))
	if err != nil {
		if errors.Is(err, genai.ErrLLMTimeout) || ctx.Err() != nil {
			return nil, ErrLLMTimeout
		}
		return nil, fmt.Errorf("%w: %w", ErrLLMSynthesisFailed, err)
	}

	answer := strings.TrimSpace(completion.Content)
	if answer == "" {
		answer = genai.NoAnswerText
	}

	h.logger.Info("LLM synthesis completed", map[string]interface{}{
		"documentCount": len(input.Documents),
		"source":        completion.Source,
	})

	return &Output{Answer: answer, Source: completion.Source}, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
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

	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("Failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}

// jobError maps a synthesis failure to its standard error code.
func jobError(err error) *commonerrors.StandardError {
	switch {
	case errors.Is(err, ErrLLMTimeout):
		return commonerrors.NewLLMTimeoutError()
	case errors.Is(err, genai.ErrLLMRateLimited):
		return commonerrors.NewLLMRateLimitedError(err.Error())
	case errors.Is(err, ErrLLMSynthesisFailed):
		return commonerrors.NewLLMGenerationFailedError(err)
	default:
		return commonerrors.AsStandardError(err)
	}
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error, retries int32) {
	stdErr := jobError(err)
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":    job.Key,
		"error":     err.Error(),
		"errorCode": string(stdErr.Code),
		"retries":   retries,
	})

	_, _ = client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(retries).
		ErrorMessage(err.Error()).
		Send(context.Background())
}

// Execute synthesizes a grounded answer without going through a job.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
