package genai

import (
	"fmt"

	"golang.org/x/time/rate"

	"query-orchestrator/internal/common/config"
	httpclient "query-orchestrator/internal/common/http"
)

const userAgent = "query-orchestrator/1.0"

// NewFromConfig builds the configured provider behind a FallbackModel.
func NewFromConfig(cfg config.GenAIConfig, log Logger) (LanguageModel, error) {
	local := NewLocalGenerator()
	client := httpclient.NewClient(config.GetDuration(cfg.Timeout), userAgent)

	var primary LanguageModel
	switch cfg.Provider {
	case config.ProviderLocal:
		return local, nil
	case config.ProviderGenAI:
		primary = NewHTTPModel(&HTTPModelConfig{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			MaxRetries:  cfg.MaxRetries,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		}, client)
	case config.ProviderOpenAI:
		primary = NewOpenAIModel(&OpenAIModelConfig{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		}, client.HTTPClient())
	default:
		return nil, fmt.Errorf("unsupported genai provider %q", cfg.Provider)
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst)
	}

	log.Info("language model configured", map[string]interface{}{
		"provider":  cfg.Provider,
		"model":     cfg.Model,
		"rateLimit": cfg.RateLimit,
	})
	return NewFallbackModel(primary, local, limiter, log), nil
}
