// internal/workers/ai-conversation/llm-synthesis/models.go
package llmsynthesis

import "mfg-orchestrator/internal/models"

// Input carries the merged quoting analyses for one request.
type Input struct {
	CustomerName       string                `json:"customerName"`
	ProductDescription string                `json:"productDescription"`
	Quantity           int                   `json:"quantity"`
	RequestedDate      string                `json:"requestedDate"`
	Inventory          models.AnalysisResult `json:"inventory"`
	Scheduling         models.AnalysisResult `json:"scheduling"`
	Costing            models.AnalysisResult `json:"costing"`
}

type Output struct {
	Narrative string `json:"narrative"`
}
