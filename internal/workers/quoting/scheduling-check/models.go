// internal/workers/quoting/scheduling-check/models.go
package schedulingcheck

import (
	"time"

	"mfg-orchestrator/internal/models"
)

type Input struct {
	MachineType   string     `json:"machineType"`
	LaborHours    *float64   `json:"laborHours"`
	EarliestStart *time.Time `json:"earliestStart"`
}

type Output struct {
	Result       models.AnalysisResult  `json:"result"`
	Slot         *models.SlotCandidate  `json:"slot,omitempty"`
	Alternatives []models.SlotCandidate `json:"alternatives"`
	LeadTimeDays int                    `json:"leadTimeDays"`
}

// MachineID returns the chosen machine, or nil when no slot was found.
func (o *Output) MachineID() *int64 {
	if o == nil || o.Slot == nil {
		return nil
	}
	id := o.Slot.MachineID
	return &id
}
