// internal/workers/ai-conversation/direct-reply/config.go
package directreply

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: time.Second,
	}
}
