// internal/models/context.go
package models

import "time"

// RequestContext holds the slot values extracted for one request.
// Absent values stay nil or empty; nothing here is defaulted.
type RequestContext struct {
	CustomerName        string     `json:"customerName,omitempty"`
	CustomerEmail       string     `json:"customerEmail,omitempty"`
	CustomerPhone       string     `json:"customerPhone,omitempty"`
	ProductDescription  string     `json:"productDescription,omitempty"`
	Quantity            *int       `json:"quantity,omitempty"`
	RequestedDate       *time.Time `json:"requestedDate,omitempty"`
	JobNumber           string     `json:"jobNumber,omitempty"`
	PONumber            string     `json:"poNumber,omitempty"`
	ItemID              *int64     `json:"itemId,omitempty"`
	ItemSKU             string     `json:"itemSku,omitempty"`
	ItemName            string     `json:"itemName,omitempty"`
	AdjustQuantity      *int       `json:"adjustQuantity,omitempty"`
	MachineID           *int64     `json:"machineId,omitempty"`
	MachineName         string     `json:"machineName,omitempty"`
	MachineType         string     `json:"machineType,omitempty"`
	HourlyRate          *float64   `json:"hourlyRate,omitempty"`
	LaborHours          *float64   `json:"laborHours,omitempty"`
	EstimateNumber      string     `json:"estimateNumber,omitempty"`
	RejectionReason     string     `json:"rejectionReason,omitempty"`
	QuoteSelection      string     `json:"quoteSelection,omitempty"`
	MaterialType        string     `json:"materialType,omitempty"`
	SearchQuery         string     `json:"searchQuery,omitempty"`
	JobStatus           string     `json:"jobStatus,omitempty"`
	Priority            *int       `json:"priority,omitempty"`
	ClarificationNeeded string     `json:"clarificationNeeded,omitempty"`
}

// Classification is the classifier output: one intent plus its context.
type Classification struct {
	Intent     Intent         `json:"intent"`
	Context    RequestContext `json:"context"`
	Confidence float64        `json:"confidence"`
	Source     string         `json:"source"` // "classifier" or "keyword"
}

// IntPtr and friends keep literal construction short in callers and tests.
func IntPtr(v int) *int { return &v }

func Int64Ptr(v int64) *int64 { return &v }

func Float64Ptr(v float64) *float64 { return &v }

func TimePtr(v time.Time) *time.Time { return &v }
