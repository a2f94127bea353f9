package genai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"query-orchestrator/internal/models"
)

type OpenAIModelConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// OpenAIModel talks to any OpenAI-compatible chat completions API.
type OpenAIModel struct {
	config *OpenAIModelConfig
	client *openai.Client
}

func NewOpenAIModel(config *OpenAIModelConfig, httpClient *http.Client) *OpenAIModel {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	if httpClient != nil {
		clientConfig.HTTPClient = httpClient
	}
	return &OpenAIModel{config: config, client: openai.NewClientWithConfig(clientConfig)}
}

func (m *OpenAIModel) Generate(ctx context.Context, messages []models.Message) (*Completion, error) {
	chat := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		chat = append(chat, openai.ChatCompletionMessage{Role: msg.Role, Content: msg.Content})
	}

	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       m.config.Model,
		Messages:    chat,
		MaxTokens:   m.config.MaxTokens,
		Temperature: float32(m.config.Temperature),
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ErrLLMTimeout
		}
		if isRateLimit(err) {
			return nil, fmt.Errorf("%w: %v", ErrLLMRateLimited, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrLLMGenerationFailed, err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, fmt.Errorf("%w: empty completion", ErrLLMGenerationFailed)
	}
	return &Completion{Content: resp.Choices[0].Message.Content, Source: SourceRemote}, nil
}

func isRateLimit(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.Code == "insufficient_quota"
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}
