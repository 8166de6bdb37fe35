// internal/workers/quoting/synthesize-quote/models.go
package synthesizequote

import (
	"time"

	"mfg-orchestrator/internal/models"
)

// Input is the quote accumulator after all analysis stages have reported.
type Input struct {
	CustomerName       string                `json:"customerName"`
	ProductDescription string                `json:"productDescription"`
	Quantity           *int                  `json:"quantity"`
	RequestedDate      *time.Time            `json:"requestedDate"`
	Inventory          models.AnalysisResult `json:"inventory"`
	Scheduling         models.AnalysisResult `json:"scheduling"`
	Costing            models.AnalysisResult `json:"costing"`
	Options            *models.QuoteOptions  `json:"options"`
}

type Output struct {
	Narrative string                 `json:"narrative"`
	Data      map[string]interface{} `json:"data"`
	Degraded  bool                   `json:"degraded"`
}
