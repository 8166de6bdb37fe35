// internal/workers/quoting/costing-check/handler_test.go
package costingcheck

import (
	"context"
	"fmt"
	"testing"
	"time"

	"mfg-orchestrator/internal/common/errors"
	"mfg-orchestrator/internal/common/logger"
	"mfg-orchestrator/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

type fakeCalculator struct {
	options *models.QuoteOptions
	err     error

	bom       []models.BOMLine
	hours     float64
	machineID *int64
	lead      int
}

func (f *fakeCalculator) ComputeOptions(ctx context.Context, bom []models.BOMLine, laborHours float64, machineID *int64, baselineLeadDays int) (*models.QuoteOptions, error) {
	f.bom = bom
	f.hours = laborHours
	f.machineID = machineID
	f.lead = baselineLeadDays
	return f.options, f.err
}

func computedOptions() *models.QuoteOptions {
	opt := func(s models.Strategy, price string, days int) models.QuoteOption {
		return models.QuoteOption{
			Strategy:     s,
			TotalPrice:   decimal.RequireFromString(price),
			DeliveryDate: fixedNow.AddDate(0, 0, days),
			LeadTimeDays: days,
		}
	}
	return &models.QuoteOptions{
		Fastest:  opt(models.StrategyFastest, "1425.50", 2),
		Cheapest: opt(models.StrategyCheapest, "1190.00", 8),
		Balanced: opt(models.StrategyBalanced, "1290.25", 5),
	}
}

func newTestHandler(t *testing.T, calc Calculator, allowFallback bool) *Handler {
	cfg := LoadConfig(nil)
	cfg.AllowFallback = allowFallback
	return NewHandler(cfg, calc, logger.NewTestLogger(t)).WithClock(func() time.Time { return fixedNow })
}

// ==========================
// Analyze
// ==========================

func TestHandler_Analyze(t *testing.T) {
	tests := []struct {
		name           string
		calc           *fakeCalculator
		allowFallback  bool
		input          *Input
		wantErr        errors.ErrorCode
		validateOutput func(t *testing.T, out *Output, calc *fakeCalculator)
	}{
		{
			name:          "passes scheduling results through",
			calc:          &fakeCalculator{options: computedOptions()},
			allowFallback: true,
			input: &Input{
				BOM:          []models.BOMLine{{ItemID: 3, Quantity: 40}},
				LaborHours:   models.Float64Ptr(12),
				MachineID:    models.Int64Ptr(4),
				LeadTimeDays: 5,
			},
			validateOutput: func(t *testing.T, out *Output, calc *fakeCalculator) {
				assert.Equal(t, []models.BOMLine{{ItemID: 3, Quantity: 40}}, calc.bom)
				assert.Equal(t, 12.0, calc.hours)
				require.NotNil(t, calc.machineID)
				assert.Equal(t, int64(4), *calc.machineID)
				assert.Equal(t, 5, calc.lead)

				assert.False(t, out.Result.Degraded)
				assert.Equal(t, "Three pricing options calculated", out.Result.Summary)
				assert.Equal(t, 5, out.Result.LeadTimeDays)
				assert.Equal(t, "1290.25", out.Options.Balanced.TotalPrice.StringFixed(2))
				assert.Contains(t, out.Result.Raw, "fastest")
			},
		},
		{
			name:          "defaults when inputs absent",
			calc:          &fakeCalculator{options: computedOptions()},
			allowFallback: true,
			input:         &Input{Quantity: models.IntPtr(50)},
			validateOutput: func(t *testing.T, out *Output, calc *fakeCalculator) {
				assert.Equal(t, []models.BOMLine{{ItemID: 1, Quantity: 50}}, calc.bom)
				assert.Equal(t, 8.0, calc.hours)
				assert.Nil(t, calc.machineID)
				assert.Equal(t, 7, calc.lead)
			},
		},
		{
			name:          "failure yields demo options",
			calc:          &fakeCalculator{err: errors.NewItemNotFoundError(1, fmt.Errorf("missing"))},
			allowFallback: true,
			input:         &Input{},
			validateOutput: func(t *testing.T, out *Output, _ *fakeCalculator) {
				assert.True(t, out.Result.Degraded)
				assert.Equal(t, "Using estimated pricing", out.Result.Summary)
				assert.Equal(t, "2500.00", out.Options.Fastest.TotalPrice.StringFixed(2))
				assert.Equal(t, 3, out.Options.Fastest.LeadTimeDays)
				assert.Equal(t, "1800.00", out.Options.Cheapest.TotalPrice.StringFixed(2))
				assert.Equal(t, 10, out.Options.Cheapest.LeadTimeDays)
				assert.Equal(t, "2100.00", out.Options.Balanced.TotalPrice.StringFixed(2))
				assert.Equal(t, 7, out.Options.Balanced.LeadTimeDays)
				assert.Equal(t, fixedNow.AddDate(0, 0, 7), out.Options.Balanced.DeliveryDate)
				assert.Equal(t, []string{"Recommended", "Best value"}, out.Options.Balanced.Highlights)
			},
		},
		{
			name:          "failure without fallback",
			calc:          &fakeCalculator{err: fmt.Errorf("connection refused")},
			allowFallback: false,
			input:         &Input{},
			wantErr:       errors.ErrCodeStageFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, tt.calc, tt.allowFallback)
			out, err := h.Analyze(context.Background(), tt.input)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, errors.HasCode(err, tt.wantErr))
				assert.Nil(t, out)
				return
			}
			require.NoError(t, err)
			tt.validateOutput(t, out, tt.calc)
		})
	}
}

func TestDemoOptions_Ordering(t *testing.T) {
	demo := DemoOptions(fixedNow)
	assert.True(t, demo.Fastest.LeadTimeDays < demo.Balanced.LeadTimeDays)
	assert.True(t, demo.Balanced.LeadTimeDays < demo.Cheapest.LeadTimeDays)
	assert.True(t, demo.Cheapest.TotalPrice.LessThan(demo.Balanced.TotalPrice))
	assert.True(t, demo.Balanced.TotalPrice.LessThan(demo.Fastest.TotalPrice))
}
