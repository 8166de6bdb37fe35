// internal/models/estimate.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type EstimateStatus string

const (
	EstimateDraft           EstimateStatus = "draft"
	EstimatePendingApproval EstimateStatus = "pending_approval"
	EstimateApproved        EstimateStatus = "approved"
	EstimateSent            EstimateStatus = "sent"
	EstimateAccepted        EstimateStatus = "accepted"
	EstimateRejected        EstimateStatus = "rejected"
	EstimateExpired         EstimateStatus = "expired"
)

var estimateTransitions = map[EstimateStatus][]EstimateStatus{
	EstimateDraft:           {EstimatePendingApproval, EstimateApproved, EstimateRejected},
	EstimatePendingApproval: {EstimateApproved, EstimateRejected},
	EstimateApproved:        {EstimateSent, EstimateRejected},
	EstimateSent:            {EstimateAccepted, EstimateRejected, EstimateExpired},
}

func (s EstimateStatus) CanTransition(to EstimateStatus) bool {
	for _, next := range estimateTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

type Estimate struct {
	ID               int64           `json:"id"`
	EstimateNumber   string          `json:"estimateNumber"`
	Version          int             `json:"version"`
	CustomerID       int64           `json:"customerId"`
	CustomerName     string          `json:"customerName"`
	CustomerEmail    string          `json:"customerEmail,omitempty"`
	Status           EstimateStatus  `json:"status"`
	CurrencyCode     string          `json:"currencyCode"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	ValidUntil       *time.Time      `json:"validUntil,omitempty"`
	DeliveryFeasible bool            `json:"deliveryFeasible"`
	RejectionReason  string          `json:"rejectionReason,omitempty"`
	SentAt           *time.Time      `json:"sentAt,omitempty"`
	AcceptedAt       *time.Time      `json:"acceptedAt,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
}
