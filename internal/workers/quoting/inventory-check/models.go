// internal/workers/quoting/inventory-check/models.go
package inventorycheck

import "mfg-orchestrator/internal/models"

type Input struct {
	BOM      []models.BOMLine `json:"bom"`
	Quantity *int             `json:"quantity"`
}

type Output struct {
	Result          models.AnalysisResult `json:"result"`
	Items           []models.StockCheck   `json:"items"`
	AllAvailable    bool                  `json:"allAvailable"`
	MaxLeadTimeDays int                   `json:"maxLeadTimeDays"`
}
