// internal/workers/ai-conversation/build-chart/config.go
package buildchart

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 5 * time.Second,
	}
}
