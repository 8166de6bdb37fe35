// internal/workers/ai-conversation/parse-user-intent/models.go
package parseuserintent

import "mfg-orchestrator/internal/models"

type Input struct {
	Message  string `json:"message"`
	ThreadID string `json:"threadId"`
}

type Output struct {
	Intent     models.Intent         `json:"intent"`
	Context    models.RequestContext `json:"context"`
	Confidence float64               `json:"confidence"`
	Source     string                `json:"source"`
}

// modelResponse is the JSON shape the classifier is asked to produce. Dates
// arrive as free text and are parsed separately.
type modelResponse struct {
	Intent     string       `json:"intent"`
	Confidence *float64     `json:"confidence"`
	Context    modelContext `json:"context"`
}

type modelContext struct {
	CustomerName        *string  `json:"customerName"`
	CustomerEmail       *string  `json:"customerEmail"`
	CustomerPhone       *string  `json:"customerPhone"`
	ProductDescription  *string  `json:"productDescription"`
	Quantity            *int     `json:"quantity"`
	RequestedDate       *string  `json:"requestedDate"`
	JobNumber           *string  `json:"jobNumber"`
	PONumber            *string  `json:"poNumber"`
	ItemID              *int64   `json:"itemId"`
	ItemSKU             *string  `json:"itemSku"`
	ItemName            *string  `json:"itemName"`
	AdjustQuantity      *int     `json:"adjustQuantity"`
	MachineID           *int64   `json:"machineId"`
	MachineName         *string  `json:"machineName"`
	MachineType         *string  `json:"machineType"`
	HourlyRate          *float64 `json:"hourlyRate"`
	LaborHours          *float64 `json:"laborHours"`
	EstimateNumber      *string  `json:"estimateNumber"`
	RejectionReason     *string  `json:"rejectionReason"`
	QuoteSelection      *string  `json:"quoteSelection"`
	MaterialType        *string  `json:"materialType"`
	SearchQuery         *string  `json:"searchQuery"`
	JobStatus           *string  `json:"jobStatus"`
	Priority            *int     `json:"priority"`
	ClarificationNeeded *string  `json:"clarificationNeeded"`
}
