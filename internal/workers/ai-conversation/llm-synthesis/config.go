// internal/workers/ai-conversation/llm-synthesis/config.go
package llmsynthesis

import (
	"time"

	"mfg-orchestrator/internal/common/config"
)

type Config struct {
	Timeout       time.Duration
	MaxTokens     int
	Temperature   float64
	AssistantName string
}

func LoadConfig(cfg *config.Config) *Config {
	c := &Config{
		Timeout:       30 * time.Second,
		MaxTokens:     1024,
		Temperature:   0.3,
		AssistantName: "Foreman",
	}
	if cfg == nil {
		return c
	}
	if cfg.APIs.GenAI.Timeout > 0 {
		c.Timeout = config.GetDuration(cfg.APIs.GenAI.Timeout)
	}
	if cfg.APIs.GenAI.MaxTokens > 0 {
		c.MaxTokens = cfg.APIs.GenAI.MaxTokens
	}
	if cfg.App.AssistantName != "" {
		c.AssistantName = cfg.App.AssistantName
	}
	return c
}
