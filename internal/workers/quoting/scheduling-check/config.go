// internal/workers/quoting/scheduling-check/config.go
package schedulingcheck

import (
	"time"

	"mfg-orchestrator/internal/common/config"
)

type Config struct {
	Timeout            time.Duration
	DefaultMachineType string
	DefaultLaborHours  float64
	AllowFallback      bool
}

func LoadConfig(cfg *config.Config) *Config {
	c := &Config{
		Timeout:            10 * time.Second,
		DefaultMachineType: "cnc",
		DefaultLaborHours:  8,
		AllowFallback:      true,
	}
	if cfg == nil {
		return c
	}
	c.Timeout = config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout)
	c.DefaultMachineType = cfg.Quoting.DefaultMachineType
	c.DefaultLaborHours = cfg.Quoting.DefaultLaborHours
	c.AllowFallback = cfg.Quoting.AllowDemoFallback
	return c
}
