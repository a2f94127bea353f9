package genai

import (
	"context"
	"errors"

	"golang.org/x/time/rate"

	commonerrors "query-orchestrator/internal/common/errors"
	"query-orchestrator/internal/models"
)

// FallbackModel sends requests to primary while the local token bucket and
// the remote quota allow it, and degrades to local otherwise.
type FallbackModel struct {
	primary LanguageModel
	local   LanguageModel
	limiter *rate.Limiter
	log     Logger
}

// NewFallbackModel builds a FallbackModel. A nil limiter means unlimited.
func NewFallbackModel(primary, local LanguageModel, limiter *rate.Limiter, log Logger) *FallbackModel {
	return &FallbackModel{primary: primary, local: local, limiter: limiter, log: log}
}

func (m *FallbackModel) Generate(ctx context.Context, messages []models.Message) (*Completion, error) {
	if m.limiter != nil && !m.limiter.Allow() {
		stdErr := commonerrors.NewLLMRateLimitedError("local token bucket exhausted")
		m.log.Warn("local rate limit exhausted, using local generator", map[string]interface{}{
			"errorCode": string(stdErr.Code),
		})
		return m.local.Generate(ctx, messages)
	}

	completion, err := m.primary.Generate(ctx, messages)
	if errors.Is(err, ErrLLMRateLimited) {
		stdErr := commonerrors.NewLLMRateLimitedError(err.Error())
		m.log.Warn("language model rate limited, using local generator", map[string]interface{}{
			"errorCode": string(stdErr.Code),
			"error":     stdErr.Details,
		})
		return m.local.Generate(ctx, messages)
	}
	return completion, err
}
