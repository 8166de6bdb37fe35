// internal/workers/quoting/costing-check/models.go
package costingcheck

import "mfg-orchestrator/internal/models"

type Input struct {
	BOM          []models.BOMLine `json:"bom"`
	Quantity     *int             `json:"quantity"`
	LaborHours   *float64         `json:"laborHours"`
	MachineID    *int64           `json:"machineId"`
	LeadTimeDays int              `json:"leadTimeDays"`
}

type Output struct {
	Result  models.AnalysisResult `json:"result"`
	Options *models.QuoteOptions  `json:"options"`
}
