// internal/workers/ai-conversation/compose-response/config.go
package composeresponse

import (
	"time"

	"query-orchestrator/internal/models"
)

type Config struct {
	// CapabilityTimeout bounds each dispatched capability. Zero waits forever.
	CapabilityTimeout time.Duration
	JobTimeout        time.Duration
	DefaultTenant     string
}

func LoadConfig() *Config {
	return &Config{
		CapabilityTimeout: 30 * time.Second,
		JobTimeout:        60 * time.Second,
		DefaultTenant:     models.DefaultTenant,
	}
}
