// internal/workers/quoting/costing-check/config.go
package costingcheck

import (
	"time"

	"mfg-orchestrator/internal/common/config"
)

type Config struct {
	Timeout           time.Duration
	DefaultItemID     int64
	DefaultQuantity   int
	DefaultLaborHours float64
	AllowFallback     bool
}

func LoadConfig(cfg *config.Config) *Config {
	c := &Config{
		Timeout:           10 * time.Second,
		DefaultItemID:     1,
		DefaultQuantity:   10,
		DefaultLaborHours: 8,
		AllowFallback:     true,
	}
	if cfg == nil {
		return c
	}
	c.Timeout = config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout)
	c.DefaultItemID = cfg.Quoting.DefaultItemID
	c.DefaultQuantity = cfg.Quoting.DefaultQuantity
	c.DefaultLaborHours = cfg.Quoting.DefaultLaborHours
	c.AllowFallback = cfg.Quoting.AllowDemoFallback
	return c
}
