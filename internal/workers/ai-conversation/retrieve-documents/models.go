// internal/workers/ai-conversation/retrieve-documents/models.go
package retrievedocuments

import "query-orchestrator/internal/models"

type Input struct {
	Query  string `json:"query"`
	Tenant string `json:"tenant"`
}

type Output = models.RetrievalOutput
