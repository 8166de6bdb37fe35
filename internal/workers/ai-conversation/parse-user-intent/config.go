// internal/workers/ai-conversation/parse-user-intent/config.go
package parseuserintent

import (
	"time"

	"mfg-orchestrator/internal/common/config"
)

type Config struct {
	Timeout       time.Duration
	AssistantName string
	// UseIntentAPI posts to the GenAI service's /api/ai/parse-intent
	// endpoint instead of prompting a completion model.
	UseIntentAPI bool
}

func LoadConfig(cfg *config.Config) *Config {
	c := &Config{
		Timeout:       10 * time.Second,
		AssistantName: "Foreman",
	}
	if cfg == nil {
		return c
	}
	if cfg.Quoting.ClassifierTimeout > 0 {
		c.Timeout = config.GetDuration(cfg.Quoting.ClassifierTimeout)
	}
	if cfg.App.AssistantName != "" {
		c.AssistantName = cfg.App.AssistantName
	}
	c.UseIntentAPI = cfg.APIs.GenAI.Provider == "http"
	return c
}
