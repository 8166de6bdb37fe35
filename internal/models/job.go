// internal/models/job.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type JobStatus string

const (
	JobDraft         JobStatus = "draft"
	JobQuoted        JobStatus = "quoted"
	JobScheduled     JobStatus = "scheduled"
	JobFinancialHold JobStatus = "financial_hold"
	JobInProduction  JobStatus = "in_production"
	JobCompleted     JobStatus = "completed"
	JobCancelled     JobStatus = "cancelled"
)

// HoldReasonAwaitingPO is the hold placed on Dynamic Entry jobs.
const HoldReasonAwaitingPO = "Awaiting PO"

var jobTransitions = map[JobStatus][]JobStatus{
	JobDraft:         {JobQuoted, JobScheduled, JobCancelled},
	JobQuoted:        {JobScheduled, JobCancelled},
	JobScheduled:     {JobInProduction, JobFinancialHold, JobCancelled},
	JobFinancialHold: {JobScheduled, JobInProduction, JobCancelled},
	JobInProduction:  {JobCompleted, JobCancelled},
}

// CanTransition reports whether a job may move from one status to another.
func (s JobStatus) CanTransition(to JobStatus) bool {
	for _, next := range jobTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Active reports whether the job still needs attention.
func (s JobStatus) Active() bool {
	return s != JobCompleted && s != JobCancelled
}

type Job struct {
	ID                    int64            `json:"id"`
	JobNumber             string           `json:"jobNumber"`
	CustomerID            *int64           `json:"customerId,omitempty"`
	CustomerName          string           `json:"customerName"`
	CustomerEmail         string           `json:"customerEmail,omitempty"`
	Description           string           `json:"description"`
	Status                JobStatus        `json:"status"`
	Priority              int              `json:"priority"`
	PONumber              string           `json:"poNumber,omitempty"`
	FinancialHold         bool             `json:"financialHold"`
	FinancialHoldReason   string           `json:"financialHoldReason,omitempty"`
	QuotedStrategy        string           `json:"quotedStrategy,omitempty"`
	QuotedPrice           *decimal.Decimal `json:"quotedPrice,omitempty"`
	RequestedDeliveryDate *time.Time       `json:"requestedDeliveryDate,omitempty"`
	EstimatedDeliveryDate *time.Time       `json:"estimatedDeliveryDate,omitempty"`
	CreatedAt             time.Time        `json:"createdAt"`
	UpdatedAt             time.Time        `json:"updatedAt"`
}

// NewJob is the input for job creation.
type NewJob struct {
	CustomerName          string
	CustomerEmail         string
	Description           string
	Status                JobStatus
	Priority              int
	FinancialHold         bool
	FinancialHoldReason   string
	QuotedStrategy        string
	QuotedPrice           *decimal.Decimal
	RequestedDeliveryDate *time.Time
	EstimatedDeliveryDate *time.Time
}

// JobUpdate carries the optional fields UPDATE_JOB may change.
type JobUpdate struct {
	Description           *string
	Priority              *int
	RequestedDeliveryDate *time.Time
}

type Customer struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email,omitempty"`
	Phone            string    `json:"phone,omitempty"`
	Active           bool      `json:"active"`
	PaymentTermsDays int       `json:"paymentTermsDays"`
	CreatedAt        time.Time `json:"createdAt"`
}
