// internal/models/inventory.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Item struct {
	ID                 int64           `json:"id"`
	Name               string          `json:"name"`
	SKU                string          `json:"sku"`
	Category           string          `json:"category,omitempty"`
	QuantityOnHand     int             `json:"quantityOnHand"`
	ReorderPoint       int             `json:"reorderPoint"`
	CostPerUnit        decimal.Decimal `json:"costPerUnit"`
	VendorLeadTimeDays int             `json:"vendorLeadTimeDays"`
	VendorName         string          `json:"vendorName,omitempty"`
	UOM                string          `json:"uom"`
}

// LowStock reports whether the item has fallen under its reorder point.
func (i Item) LowStock() bool {
	return i.QuantityOnHand < i.ReorderPoint
}

// StockCheck is the availability of one item for a required quantity.
type StockCheck struct {
	ItemID             int64      `json:"itemId"`
	ItemName           string     `json:"itemName"`
	Available          bool       `json:"available"`
	QuantityOnHand     int        `json:"quantityOnHand"`
	QuantityRequired   int        `json:"quantityRequired"`
	Shortage           int        `json:"shortage"`
	RestockDate        *time.Time `json:"restockDate,omitempty"`
	VendorLeadTimeDays int        `json:"vendorLeadTimeDays"`
	Placeholder        bool       `json:"placeholder,omitempty"`
}

// ATPStatus is the available-to-promise classification of a line.
type ATPStatus string

const (
	ATPAvailable ATPStatus = "available"
	ATPPartial   ATPStatus = "partial"
	ATPBackorder ATPStatus = "backorder"
)

type ATPLine struct {
	ItemID       int64     `json:"itemId"`
	Status       ATPStatus `json:"status"`
	AvailableQty int       `json:"availableQty"`
	ShortageQty  int       `json:"shortageQty"`
	LeadTimeDays int       `json:"leadTimeDays"`
}

type ATPWarning struct {
	ItemID       int64  `json:"itemId"`
	ItemName     string `json:"itemName"`
	RequiredQty  int    `json:"requiredQty"`
	AvailableQty int    `json:"availableQty"`
	ShortageQty  int    `json:"shortageQty"`
	LeadTimeDays int    `json:"leadTimeDays"`
	Message      string `json:"message"`
}

// DeliveryEstimate is the ATP answer for a whole bill of materials.
type DeliveryEstimate struct {
	EarliestDate time.Time    `json:"earliestDate"`
	Feasible     bool         `json:"feasible"`
	Warnings     []ATPWarning `json:"warnings"`
}
