// internal/costing/calculator.go
package costing

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"mfg-orchestrator/internal/common/errors"
	"mfg-orchestrator/internal/common/logger"
	"mfg-orchestrator/internal/models"

	"github.com/shopspring/decimal"
)

var ErrItemNotFound = stderrors.New("ITEM_NOT_FOUND")

var (
	DefaultLaborRate = decimal.NewFromInt(75)
	OverheadRate     = decimal.RequireFromString("0.15")

	overtimeFactor         = decimal.RequireFromString("1.5")
	expeditedOverheadExtra = decimal.RequireFromString("1.25")
)

type ItemLookup interface {
	GetItem(ctx context.Context, id int64) (*models.Item, error)
}

type MachineLookup interface {
	GetMachine(ctx context.Context, id int64) (*models.Machine, error)
}

// strategyParams are the per-strategy knobs applied to one base calculation.
type strategyParams struct {
	laborFactor decimal.Decimal
	margin      decimal.Decimal
	expedited   bool
	leadDays    func(baseline int) int
	details     string
	highlights  func(days int) []string
}

var strategies = map[models.Strategy]strategyParams{
	models.StrategyFastest: {
		laborFactor: decimal.RequireFromString("0.85"),
		margin:      decimal.RequireFromString("0.15"),
		expedited:   true,
		leadDays: func(baseline int) int {
			if half := baseline / 2; half > 2 {
				return half
			}
			return 2
		},
		details: "Expedited production with overtime labor. Priority scheduling.",
		highlights: func(days int) []string {
			return []string{"Fastest delivery option", fmt.Sprintf("Ready in %d days", days), "Priority machine scheduling"}
		},
	},
	models.StrategyCheapest: {
		laborFactor: decimal.RequireFromString("1.1"),
		margin:      decimal.RequireFromString("0.15"),
		leadDays:    func(baseline int) int { return baseline + 3 },
		details:     "Standard production schedule with optimized efficiency.",
		highlights: func(days int) []string {
			return []string{"Most economical option", fmt.Sprintf("Delivery in %d days", days), "Standard scheduling"}
		},
	},
	models.StrategyBalanced: {
		laborFactor: decimal.NewFromInt(1),
		margin:      decimal.RequireFromString("0.20"),
		leadDays:    func(baseline int) int { return baseline },
		details:     "Optimal balance of cost and delivery time.",
		highlights: func(days int) []string {
			return []string{"Recommended option", fmt.Sprintf("Delivery in %d days", days), "Best value"}
		},
	},
}

// Calculator prices a bill of materials plus labor under the three strategies.
type Calculator struct {
	items    ItemLookup
	machines MachineLookup
	now      func() time.Time
	logger   logger.Logger
}

func NewCalculator(items ItemLookup, machines MachineLookup, log logger.Logger) *Calculator {
	return &Calculator{
		items:    items,
		machines: machines,
		now:      time.Now,
		logger:   log.With(map[string]interface{}{"component": "quote-calculator"}),
	}
}

// WithClock replaces the time source used for delivery dates.
func (c *Calculator) WithClock(now func() time.Time) *Calculator {
	c.now = now
	return c
}

// ComputeOptions prices all three strategies. Any item lookup failure fails
// the whole computation.
func (c *Calculator) ComputeOptions(ctx context.Context, bom []models.BOMLine, laborHours float64, machineID *int64, baselineLeadDays int) (*models.QuoteOptions, error) {
	if laborHours < 0 {
		return nil, fmt.Errorf("labor hours must not be negative, got %v", laborHours)
	}

	materials, materialCost, err := c.materials(ctx, bom)
	if err != nil {
		return nil, err
	}
	rate := c.laborRate(ctx, machineID)
	now := c.now()

	var out models.QuoteOptions
	for _, s := range models.Strategies() {
		p := strategies[s]
		b := price(materials, materialCost, decimal.NewFromFloat(laborHours), rate, p)
		days := p.leadDays(baselineLeadDays)

		opt := models.QuoteOption{
			Strategy:     s,
			TotalPrice:   b.TotalPrice,
			MaterialCost: b.MaterialCost,
			LaborCost:    b.LaborCost,
			OverheadCost: b.OverheadCost,
			MarginAmount: b.MarginAmount,
			DeliveryDate: now.AddDate(0, 0, days),
			LeadTimeDays: days,
			Details:      p.details,
			Highlights:   p.highlights(days),
		}
		switch s {
		case models.StrategyFastest:
			out.Fastest = opt
		case models.StrategyCheapest:
			out.Cheapest = opt
		case models.StrategyBalanced:
			out.Balanced = opt
		}
	}

	c.logger.Debug("quote options computed", map[string]interface{}{
		"bomLines":   len(bom),
		"laborHours": laborHours,
		"laborRate":  rate.String(),
		"leadDays":   baselineLeadDays,
		"balanced":   out.Balanced.TotalPrice.String(),
	})
	return &out, nil
}

// Compute returns the full breakdown for one strategy.
func (c *Calculator) Compute(ctx context.Context, bom []models.BOMLine, laborHours float64, machineID *int64, s models.Strategy) (*models.CostBreakdown, error) {
	p, ok := strategies[s]
	if !ok {
		return nil, errors.NewInvalidSelectionError(string(s))
	}
	materials, materialCost, err := c.materials(ctx, bom)
	if err != nil {
		return nil, err
	}
	b := price(materials, materialCost, decimal.NewFromFloat(laborHours), c.laborRate(ctx, machineID), p)
	return &b, nil
}

func (c *Calculator) materials(ctx context.Context, bom []models.BOMLine) ([]models.MaterialLine, decimal.Decimal, error) {
	lines := make([]models.MaterialLine, 0, len(bom))
	total := decimal.Zero

	for _, req := range bom {
		item, err := c.items.GetItem(ctx, req.ItemID)
		if err != nil || item == nil {
			cause := err
			if cause == nil {
				cause = ErrItemNotFound
			}
			return nil, decimal.Zero, errors.NewItemNotFoundError(req.ItemID, fmt.Errorf("%w: %v", ErrItemNotFound, cause))
		}
		qty := decimal.NewFromInt(int64(req.Quantity))
		lineTotal := item.CostPerUnit.Mul(qty)
		total = total.Add(lineTotal)
		lines = append(lines, models.MaterialLine{
			ItemID:    item.ID,
			Name:      item.Name,
			SKU:       item.SKU,
			Quantity:  req.Quantity,
			UnitCost:  item.CostPerUnit,
			TotalCost: lineTotal.Round(2),
		})
	}
	return lines, total, nil
}

func (c *Calculator) laborRate(ctx context.Context, machineID *int64) decimal.Decimal {
	if machineID == nil || c.machines == nil {
		return DefaultLaborRate
	}
	m, err := c.machines.GetMachine(ctx, *machineID)
	if err != nil || m == nil || !m.HourlyRate.IsPositive() {
		return DefaultLaborRate
	}
	return m.HourlyRate
}

// price applies one strategy. Components are rounded to cents first and the
// total is their sum, so total == material + labor + overhead + margin holds exactly.
func price(materials []models.MaterialLine, materialCost, hours, rate decimal.Decimal, p strategyParams) models.CostBreakdown {
	effectiveHours := hours.Mul(p.laborFactor)
	effectiveRate := rate
	if p.expedited {
		effectiveRate = rate.Mul(overtimeFactor)
	}

	material := materialCost.Round(2)
	labor := effectiveHours.Mul(effectiveRate).Round(2)

	overhead := material.Add(labor).Mul(OverheadRate)
	if p.expedited {
		overhead = overhead.Mul(expeditedOverheadExtra)
	}
	overhead = overhead.Round(2)

	margin := material.Add(labor).Add(overhead).Mul(p.margin).Round(2)

	return models.CostBreakdown{
		MaterialCost: material,
		LaborCost:    labor,
		OverheadCost: overhead,
		MarginAmount: margin,
		TotalPrice:   material.Add(labor).Add(overhead).Add(margin),
		LaborHours:   effectiveHours,
		LaborRate:    effectiveRate,
		MarginRate:   p.margin,
		Expedited:    p.expedited,
		Materials:    materials,
	}
}
