// internal/workers/ai-conversation/direct-reply/handler.go
package directreply

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"query-orchestrator/internal/models"
)

const (
	TaskType = "direct-reply"
)

const (
	GreetingReply = "Hello! How can I help you today?"
	WeatherReply  = "I don't have access to live weather data, but a local forecast service will have the latest conditions for you."
	JokeReply     = "Why did the neural network break up with the dataset? It felt it was being overfitted to the relationship."
	DefaultReply  = "Thanks for your message. I can answer questions from the knowledge base or create charts. What would you like to know?"
)

// first matching keyword wins
var replies = []struct {
	keyword string
	reply   string
}{
	{"hello", GreetingReply},
	{"weather", WeatherReply},
	{"joke", JokeReply},
}

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Handler struct {
	config *Config
	logger Logger
}

func NewHandler(config *Config, log Logger) *Handler {
	return &Handler{
		config: config,
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
		err = fmt.Errorf("parse input: %w", err)
		h.logger.Error("job failed", map[string]interface{}{
			"jobKey":    job.Key,
			"error":     err.Error(),
			"errorCode": "VALIDATION_FAILED",
		})
		_, _ = client.NewFailJobCommand().
			JobKey(job.Key).
			Retries(0).
			ErrorMessage(err.Error()).
			Send(context.Background())
		return
	}

	output := h.Reply(input.Query)

	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output.Value)
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("Failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}

// Reply picks a canned reply by keyword. It always succeeds.
func (h *Handler) Reply(query string) models.Result[Output] {
	return models.OK(Output{Answer: reply(query)})
}

func reply(query string) string {
	text := strings.ToLower(query)
	for _, r := range replies {
		if strings.Contains(text, r.keyword) {
			return r.reply
		}
	}
	return DefaultReply
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	out := h.Reply(input.Query).Value
	return &out, nil
}
