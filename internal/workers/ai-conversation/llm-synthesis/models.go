// internal/workers/ai-conversation/llm-synthesis/models.go
package llmsynthesis

import "query-orchestrator/internal/models"

type Input struct {
	Question  string            `json:"question"`
	Documents []models.Document `json:"documents"`
}

type Output struct {
	Answer string `json:"answer"`
	Source string `json:"source"`
}
