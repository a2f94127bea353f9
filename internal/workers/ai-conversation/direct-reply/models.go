// internal/workers/ai-conversation/direct-reply/models.go
package directreply

import "query-orchestrator/internal/models"

type Input struct {
	Query string `json:"query"`
}

type Output = models.DirectOutput
