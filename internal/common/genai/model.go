// Package genai holds the language-model clients used for grounded answers.
package genai

import (
	"context"
	"errors"

	"query-orchestrator/internal/models"
)

var (
	ErrLLMTimeout          = errors.New("LLM_TIMEOUT")
	ErrLLMRateLimited      = errors.New("LLM_RATE_LIMITED")
	ErrLLMGenerationFailed = errors.New("LLM_GENERATION_FAILED")
)

const (
	SourceRemote = "remote"
	SourceLocal  = "local"
)

type Completion struct {
	Content string `json:"content"`
	Source  string `json:"source"`
}

type LanguageModel interface {
	Generate(ctx context.Context, messages []models.Message) (*Completion, error)
}

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

func lastUserMessage(messages []models.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == models.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}
