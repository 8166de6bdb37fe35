// internal/workers/quoting/inventory-check/handler_test.go
package inventorycheck

import (
	"context"
	"fmt"
	"testing"
	"time"

	"mfg-orchestrator/internal/common/errors"
	"mfg-orchestrator/internal/common/logger"
	"mfg-orchestrator/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStock struct {
	checks map[int64]models.StockCheck
	err    error
	block  bool
	seen   []models.BOMLine
}

func (f *fakeStock) CheckStock(ctx context.Context, itemID int64, required int) (*models.StockCheck, error) {
	f.seen = append(f.seen, models.BOMLine{ItemID: itemID, Quantity: required})
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.checks[itemID]
	if !ok {
		return nil, errors.NewItemNotFoundError(itemID, nil)
	}
	c.QuantityRequired = required
	return &c, nil
}

func stockFixture() *fakeStock {
	return &fakeStock{checks: map[int64]models.StockCheck{
		1: {ItemID: 1, ItemName: "Aluminum 6061 Sheet", Available: true, QuantityOnHand: 200, VendorLeadTimeDays: 5},
		2: {ItemID: 2, ItemName: "Brass Rod", Available: false, QuantityOnHand: 3, Shortage: 7, VendorLeadTimeDays: 12},
	}}
}

func TestHandler_Analyze(t *testing.T) {
	tests := []struct {
		name           string
		stock          *fakeStock
		allowFallback  bool
		input          *Input
		validateOutput func(t *testing.T, out *Output, stock *fakeStock)
	}{
		{
			name:          "default bom uses quantity",
			stock:         stockFixture(),
			allowFallback: true,
			input:         &Input{Quantity: models.IntPtr(25)},
			validateOutput: func(t *testing.T, out *Output, stock *fakeStock) {
				assert.Equal(t, []models.BOMLine{{ItemID: 1, Quantity: 25}}, stock.seen)
				assert.True(t, out.Result.Available)
				assert.Equal(t, 5, out.Result.LeadTimeDays)
				assert.Equal(t, "All materials in stock", out.Result.Summary)
				assert.False(t, out.Result.Degraded)
			},
		},
		{
			name:          "default bom without quantity",
			stock:         stockFixture(),
			allowFallback: true,
			input:         &Input{},
			validateOutput: func(t *testing.T, out *Output, stock *fakeStock) {
				assert.Equal(t, []models.BOMLine{{ItemID: 1, Quantity: 10}}, stock.seen)
			},
		},
		{
			name:          "shortage reports max lead",
			stock:         stockFixture(),
			allowFallback: true,
			input:         &Input{BOM: []models.BOMLine{{ItemID: 1, Quantity: 10}, {ItemID: 2, Quantity: 10}}},
			validateOutput: func(t *testing.T, out *Output, _ *fakeStock) {
				assert.False(t, out.Result.Available)
				assert.Equal(t, 12, out.MaxLeadTimeDays)
				assert.Equal(t, "Some materials require 12 days lead time", out.Result.Summary)
				assert.Len(t, out.Items, 2)
			},
		},
		{
			name:          "missing item becomes placeholder",
			stock:         stockFixture(),
			allowFallback: true,
			input:         &Input{BOM: []models.BOMLine{{ItemID: 99, Quantity: 4}}},
			validateOutput: func(t *testing.T, out *Output, _ *fakeStock) {
				require.Len(t, out.Items, 1)
				item := out.Items[0]
				assert.True(t, item.Placeholder)
				assert.True(t, item.Available)
				assert.Equal(t, 100, item.QuantityOnHand)
				assert.Equal(t, 5, item.VendorLeadTimeDays)
				assert.True(t, out.Result.Available)
				assert.True(t, out.Result.Degraded)
				assert.Contains(t, out.Result.Error, "99")
			},
		},
		{
			name:          "missing item without fallback is unavailable",
			stock:         stockFixture(),
			allowFallback: false,
			input:         &Input{BOM: []models.BOMLine{{ItemID: 99, Quantity: 4}}},
			validateOutput: func(t *testing.T, out *Output, _ *fakeStock) {
				assert.False(t, out.Result.Available)
				assert.Equal(t, 7, out.Result.LeadTimeDays)
			},
		},
		{
			name:          "lookup failure uses estimate",
			stock:         &fakeStock{err: fmt.Errorf("connection reset")},
			allowFallback: true,
			input:         &Input{},
			validateOutput: func(t *testing.T, out *Output, _ *fakeStock) {
				assert.True(t, out.Result.Available)
				assert.Equal(t, 7, out.Result.LeadTimeDays)
				assert.Equal(t, "Using estimated inventory data", out.Result.Summary)
				assert.True(t, out.Result.Degraded)
				assert.Contains(t, out.Result.Error, "connection reset")
			},
		},
		{
			name:          "lookup failure without fallback",
			stock:         &fakeStock{err: fmt.Errorf("connection reset")},
			allowFallback: false,
			input:         &Input{},
			validateOutput: func(t *testing.T, out *Output, _ *fakeStock) {
				assert.False(t, out.Result.Available)
				assert.Equal(t, 7, out.Result.LeadTimeDays)
				assert.True(t, out.Result.Degraded)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LoadConfig(nil)
			cfg.AllowFallback = tt.allowFallback
			h := NewHandler(cfg, tt.stock, logger.NewTestLogger(t))

			out := h.Analyze(context.Background(), tt.input)
			require.NotNil(t, out)
			tt.validateOutput(t, out, tt.stock)
		})
	}
}

func TestHandler_Analyze_Timeout(t *testing.T) {
	h := NewHandler(LoadConfig(nil), &fakeStock{block: true}, logger.NewTestLogger(t))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	out := h.Analyze(ctx, &Input{})
	assert.True(t, out.Result.Degraded)
	assert.Contains(t, out.Result.Error, string(errors.ErrCodeStageTimeout))
	assert.Equal(t, "Using estimated inventory data", out.Result.Summary)
}
