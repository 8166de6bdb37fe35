// internal/models/quote.go
package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Strategy names one of the three cost/delivery trade-offs.
type Strategy string

const (
	StrategyFastest  Strategy = "fastest"
	StrategyCheapest Strategy = "cheapest"
	StrategyBalanced Strategy = "balanced"
)

// Strategies lists the strategies in presentation order.
func Strategies() []Strategy {
	return []Strategy{StrategyFastest, StrategyCheapest, StrategyBalanced}
}

// ParseStrategy matches a user selection case-insensitively.
func ParseStrategy(raw string) (Strategy, bool) {
	switch Strategy(strings.ToLower(strings.TrimSpace(raw))) {
	case StrategyFastest:
		return StrategyFastest, true
	case StrategyCheapest:
		return StrategyCheapest, true
	case StrategyBalanced:
		return StrategyBalanced, true
	}
	return "", false
}

// BOMLine is one bill-of-materials requirement.
type BOMLine struct {
	ItemID   int64 `json:"itemId"`
	Quantity int   `json:"quantity"`
}

// CostBreakdown is the output of one single-strategy calculation.
type CostBreakdown struct {
	MaterialCost decimal.Decimal `json:"materialCost"`
	LaborCost    decimal.Decimal `json:"laborCost"`
	OverheadCost decimal.Decimal `json:"overheadCost"`
	MarginAmount decimal.Decimal `json:"marginAmount"`
	TotalPrice   decimal.Decimal `json:"totalPrice"`
	LaborHours   decimal.Decimal `json:"laborHours"`
	LaborRate    decimal.Decimal `json:"laborRate"`
	MarginRate   decimal.Decimal `json:"marginRate"`
	Expedited    bool            `json:"expedited"`
	Materials    []MaterialLine  `json:"materials"`
}

// MaterialLine is the per-item part of a breakdown.
type MaterialLine struct {
	ItemID    int64           `json:"itemId"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	Quantity  int             `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unitCost"`
	TotalCost decimal.Decimal `json:"totalCost"`
}

// QuoteOption is one priced delivery option.
type QuoteOption struct {
	Strategy     Strategy        `json:"strategy"`
	TotalPrice   decimal.Decimal `json:"totalPrice"`
	MaterialCost decimal.Decimal `json:"materialCost"`
	LaborCost    decimal.Decimal `json:"laborCost"`
	OverheadCost decimal.Decimal `json:"overheadCost"`
	MarginAmount decimal.Decimal `json:"marginAmount"`
	DeliveryDate time.Time       `json:"deliveryDate"`
	LeadTimeDays int             `json:"leadTimeDays"`
	Details      string          `json:"details"`
	Highlights   []string        `json:"highlights"`
}

// QuoteOptions carries exactly one option per strategy.
type QuoteOptions struct {
	Fastest  QuoteOption `json:"fastest"`
	Cheapest QuoteOption `json:"cheapest"`
	Balanced QuoteOption `json:"balanced"`
}

// Get returns the option for a strategy.
func (o *QuoteOptions) Get(s Strategy) (QuoteOption, bool) {
	switch s {
	case StrategyFastest:
		return o.Fastest, true
	case StrategyCheapest:
		return o.Cheapest, true
	case StrategyBalanced:
		return o.Balanced, true
	}
	return QuoteOption{}, false
}

// All returns the three options in presentation order.
func (o *QuoteOptions) All() []QuoteOption {
	return []QuoteOption{o.Fastest, o.Cheapest, o.Balanced}
}

// PendingQuote is the last synthesized quote of a conversation thread.
type PendingQuote struct {
	ThreadID           string       `json:"threadId"`
	Options            QuoteOptions `json:"options"`
	CustomerName       string       `json:"customerName"`
	ProductDescription string       `json:"productDescription"`
	Quantity           int          `json:"quantity"`
	CreatedAt          time.Time    `json:"createdAt"`
}
