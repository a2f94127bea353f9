// internal/workers/ai-conversation/retrieve-documents/handler.go
package retrievedocuments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	commonerrors "query-orchestrator/internal/common/errors"
	"query-orchestrator/internal/models"
	llmsynthesis "query-orchestrator/internal/workers/ai-conversation/llm-synthesis"
)

const (
	TaskType = "retrieve-documents"
)

const (
	NoResultsAnswer = "I couldn't find any relevant information in the knowledge base to answer your question."
	ErrorAnswer     = "I'm sorry, I encountered an error while searching the knowledge base. Please try again later."
)

// Fallback reasons.
const (
	ReasonSearchFailed    = "search_failed"
	ReasonSynthesisFailed = "synthesis_failed"
	ReasonTimeout         = "timeout"
)

var (
	ErrSearchFailed = errors.New("SEARCH_FAILED")
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Searcher interface {
	Search(ctx context.Context, text, tenant string, limit int) ([]models.Document, error)
}

type Synthesizer interface {
	Execute(ctx context.Context, input *llmsynthesis.Input) (*llmsynthesis.Output, error)
}

type Handler struct {
	config      *Config
	store       Searcher
	synthesizer Synthesizer
	logger      Logger
}

func NewHandler(config *Config, store Searcher, synthesizer Synthesizer, log Logger) *Handler {
	return &Handler{
		config:      config,
		store:       store,
		synthesizer: synthesizer,
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

	result := h.Retrieve(ctx, input.Query, input.Tenant)
	if result.Reason == ReasonSearchFailed && job.Retries > 1 {
		// the store may come back; let the engine retry before settling on the apology
		stdErr := commonerrors.NewSearchFailedError(models.ResolveTenant(input.Tenant, h.config.DefaultTenant), ErrSearchFailed)
		h.failJob(client, job, stdErr, job.Retries-1)
		return
	}

	h.completeJob(client, job, &result.Value)
}

// Retrieve searches the store and answers from the matching documents.
// Every failure is turned into the apology fallback.
func (h *Handler) Retrieve(ctx context.Context, text, tenant string) models.Result[Output] {
	tenant = models.ResolveTenant(tenant, h.config.DefaultTenant)

	docs, err := h.store.Search(ctx, text, tenant, h.config.MaxResults)
	if err != nil {
		return h.fallback(ctx, ReasonSearchFailed, fmt.Errorf("%w: %v", ErrSearchFailed, err), tenant)
	}

	if len(docs) == 0 {
		h.logger.Info("no documents matched", map[string]interface{}{
			"tenant": tenant,
		})
		return models.OK(Output{
			Answer:     NoResultsAnswer,
			FileIDs:    []string{},
			References: []models.Document{},
		})
	}

	synthesized, err := h.synthesizer.Execute(ctx, &llmsynthesis.Input{Question: text, Documents: docs})
	if err != nil {
		return h.fallback(ctx, ReasonSynthesisFailed, err, tenant)
	}

	h.logger.Info("documents retrieved", map[string]interface{}{
		"tenant":        tenant,
		"documentCount": len(docs),
		"answerSource":  synthesized.Source,
	})

	return models.OK(Output{
		Answer:     synthesized.Answer,
		FileIDs:    models.DocumentIDs(docs),
		References: docs,
	})
}

func (h *Handler) fallback(ctx context.Context, reason string, err error, tenant string) models.Result[Output] {
	var stdErr *commonerrors.StandardError
	switch {
	case ctx.Err() != nil:
		reason = ReasonTimeout
		stdErr = commonerrors.NewSearchTimeoutError(tenant)
	case reason == ReasonSearchFailed:
		stdErr = commonerrors.NewSearchFailedError(tenant, err)
	default:
		stdErr = commonerrors.NewLLMGenerationFailedError(err)
	}
	h.logger.Warn("retrieval degraded", map[string]interface{}{
		"tenant":    tenant,
		"reason":    reason,
		"errorCode": string(stdErr.Code),
		"error":     err.Error(),
	})
	return models.Fallback(ErrorOutput(), reason)
}

// ErrorOutput is the apology returned whenever retrieval cannot complete.
func ErrorOutput() Output {
	return Output{
		Answer:     ErrorAnswer,
		FileIDs:    []string{},
		References: []models.Document{},
	}
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, stdErr *commonerrors.StandardError, retries int32) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    string(stdErr.Code),
		"errorMessage": stdErr.Message,
		"details":      stdErr.Details,
		"retries":      retries,
	})

	_, _ = client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(retries).
		ErrorMessage(fmt.Sprintf("%s: %s", stdErr.Code, stdErr.Message)).
		Send(context.Background())
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	result := h.Retrieve(ctx, input.Query, input.Tenant)
	return &result.Value, nil
}
