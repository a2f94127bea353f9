// internal/workers/ai-conversation/retrieve-documents/config.go
package retrievedocuments

import (
	"time"

	"query-orchestrator/internal/models"
)

type Config struct {
	Timeout       time.Duration
	MaxResults    int
	DefaultTenant string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:       30 * time.Second,
		MaxResults:    5,
		DefaultTenant: models.DefaultTenant,
	}
}
