// internal/workers/ai-conversation/route-query/config.go
package routequery

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: time.Second,
	}
}
