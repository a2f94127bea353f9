package llmsynthesis

import (
	"fmt"
	"strings"

	"query-orchestrator/internal/models"
)

const systemPrompt = "You are a helpful assistant that answers questions based only on the provided context. " +
	"If the context does not contain enough information to answer the question, say that you do not have enough information. " +
	"Do not make up facts."

// BuildContext renders documents as "Q: ...\nA: ..." blocks separated by a blank line.
func BuildContext(docs []models.Document) string {
	blocks := make([]string, 0, len(docs))
	for _, d := range docs {
		blocks = append(blocks, fmt.Sprintf("Q: %s\nA: %s", d.Question, d.Answer))
	}
	return strings.Join(blocks, "\n\n")
}

// BuildMessages returns the grounding prompt for question over docs.
func BuildMessages(question string, docs []models.Document) []models.Message {
	return []models.Message{
		{Role: models.RoleSystem, Content: systemPrompt},
		{Role: models.RoleUser, Content: fmt.Sprintf("Context:\n%s\n\nQuestion: %s\n\nAnswer:", BuildContext(docs), question)},
	}
}
