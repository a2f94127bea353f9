package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	httpclient "query-orchestrator/internal/common/http"
	"query-orchestrator/internal/models"
)

type HTTPModelConfig struct {
	BaseURL     string
	APIKey      string
	MaxRetries  int
	MaxTokens   int
	Temperature float64
}

// HTTPModel calls the GenAI service's /api/ai/generate endpoint.
type HTTPModel struct {
	config *HTTPModelConfig
	client *httpclient.Client
}

func NewHTTPModel(config *HTTPModelConfig, client *httpclient.Client) *HTTPModel {
	return &HTTPModel{config: config, client: client}
}

func (m *HTTPModel) Generate(ctx context.Context, messages []models.Message) (*Completion, error) {
	requestBody := map[string]interface{}{
		"messages":    messages,
		"prompt":      lastUserMessage(messages),
		"max_tokens":  m.config.MaxTokens,
		"temperature": m.config.Temperature,
	}
	body, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLLMGenerationFailed, err)
	}

	var lastErr error
	for attempt := 0; attempt <= m.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ErrLLMTimeout
			}
		}

		text, err := m.call(ctx, body)
		if err == nil {
			return &Completion{Content: text, Source: SourceRemote}, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ErrLLMTimeout
		}
		// a rate limit will not clear within the backoff window
		if errors.Is(err, ErrLLMRateLimited) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w: %v", ErrLLMGenerationFailed, lastErr)
}

func (m *HTTPModel) call(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(m.config.BaseURL, "/")+"/api/ai/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if m.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.config.APIKey)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", fmt.Errorf("%w: status %d", ErrLLMRateLimited, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	var apiResponse struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return "", fmt.Errorf("decode error: %v", err)
	}
	if strings.TrimSpace(apiResponse.Text) == "" {
		return "", errors.New("empty completion")
	}
	return apiResponse.Text, nil
}
