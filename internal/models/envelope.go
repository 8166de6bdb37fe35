// internal/models/envelope.go
package models

// AnalysisResult is the normalized output of one quoting analysis task.
type AnalysisResult struct {
	Available    bool                   `json:"available"`
	LeadTimeDays int                    `json:"leadTimeDays"`
	Summary      string                 `json:"summary"`
	Raw          map[string]interface{} `json:"raw,omitempty"`
	Error        string                 `json:"error,omitempty"`
	Degraded     bool                   `json:"degraded,omitempty"`
}

// ResponseKind is the closed set of envelope tags the transport renders.
type ResponseKind string

const (
	KindConfirmation    ResponseKind = "confirmation"
	KindClarification   ResponseKind = "clarification"
	KindError           ResponseKind = "error"
	KindText            ResponseKind = "text"
	KindQuoteOptions    ResponseKind = "quote_options"
	KindJobStatus       ResponseKind = "job_status"
	KindJobDetail       ResponseKind = "job_detail"
	KindJobList         ResponseKind = "job_list"
	KindScheduleView    ResponseKind = "schedule_view"
	KindInventoryList   ResponseKind = "inventory_list"
	KindInventoryDetail ResponseKind = "inventory_detail"
	KindCustomerList    ResponseKind = "customer_list"
	KindMachineList     ResponseKind = "machine_list"
	KindEstimateList    ResponseKind = "estimate_list"
	KindEstimateDetail  ResponseKind = "estimate_detail"
	KindAnalytics       ResponseKind = "analytics"
)

// ResponseEnvelope is the transport-agnostic result of one dispatch.
type ResponseEnvelope struct {
	Kind            ResponseKind           `json:"kind"`
	Text            string                 `json:"text"`
	Data            map[string]interface{} `json:"data,omitempty"`
	ThreadID        string                 `json:"threadId"`
	Intent          Intent                 `json:"intent,omitempty"`
	NewPendingQuote *PendingQuote          `json:"-"`
	Trace           []string               `json:"trace,omitempty"`
}

// ChatMessage is one entry of a thread's history.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Kind    string `json:"kind,omitempty"`
	At      int64  `json:"at"`
}
