package genai

import (
	"context"
	"strings"

	"query-orchestrator/internal/models"
)

const NoAnswerText = "I don't have enough information to answer that question."

// LocalGenerator answers without a remote model by quoting the answers
// found in the prompt's context block.
type LocalGenerator struct {
	MaxAnswers int
}

func NewLocalGenerator() *LocalGenerator {
	return &LocalGenerator{MaxAnswers: 2}
}

func (g *LocalGenerator) Generate(ctx context.Context, messages []models.Message) (*Completion, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrLLMTimeout
	}

	answers := extractAnswers(lastUserMessage(messages))
	if len(answers) == 0 {
		return &Completion{Content: NoAnswerText, Source: SourceLocal}, nil
	}
	if g.MaxAnswers > 0 && len(answers) > g.MaxAnswers {
		answers = answers[:g.MaxAnswers]
	}
	return &Completion{Content: strings.Join(answers, " "), Source: SourceLocal}, nil
}

func extractAnswers(prompt string) []string {
	var answers []string
	for _, line := range strings.Split(prompt, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "A:") {
			continue
		}
		if a := strings.TrimSpace(strings.TrimPrefix(line, "A:")); a != "" {
			answers = append(answers, a)
		}
	}
	return answers
}
