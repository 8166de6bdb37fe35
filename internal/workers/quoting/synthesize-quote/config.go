// internal/workers/quoting/synthesize-quote/config.go
package synthesizequote

import (
	"time"

	"mfg-orchestrator/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	if cfg == nil {
		return &Config{Timeout: 30 * time.Second}
	}
	return &Config{Timeout: config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout)}
}
