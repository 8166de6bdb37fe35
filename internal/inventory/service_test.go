// internal/inventory/service_test.go
package inventory

import (
	"context"
	"strings"
	"testing"
	"time"

	"mfg-orchestrator/internal/common/errors"
	"mfg-orchestrator/internal/common/logger"
	"mfg-orchestrator/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	items map[int64]models.Item
}

func (f *fakeRepo) GetItem(_ context.Context, id int64) (*models.Item, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, errors.NewItemNotFoundError(id, nil)
	}
	return &item, nil
}

func (f *fakeRepo) GetItemBySKU(_ context.Context, sku string) (*models.Item, error) {
	for _, item := range f.items {
		if item.SKU == sku {
			item := item
			return &item, nil
		}
	}
	return nil, errors.NewItemNotFoundError(0, nil)
}

func (f *fakeRepo) FindItemsByName(_ context.Context, name string) ([]models.Item, error) {
	var out []models.Item
	for _, item := range f.items {
		if strings.Contains(strings.ToLower(item.Name), strings.ToLower(name)) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListItems(context.Context) ([]models.Item, error) {
	var out []models.Item
	for _, item := range f.items {
		out = append(out, item)
	}
	return out, nil
}

func (f *fakeRepo) LowStockItems(context.Context) ([]models.Item, error) {
	var out []models.Item
	for _, item := range f.items {
		if item.LowStock() {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeRepo) SetQuantity(_ context.Context, id int64, quantity int) (*models.Item, error) {
	item := f.items[id]
	item.QuantityOnHand = quantity
	f.items[id] = item
	return &item, nil
}

var now = time.Date(2025, 6, 10, 15, 30, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *fakeRepo) {
	repo := &fakeRepo{items: map[int64]models.Item{
		1: {ID: 1, Name: "Aluminum 6061 Bar", SKU: "AL-6061", QuantityOnHand: 50, ReorderPoint: 20, VendorLeadTimeDays: 5},
		2: {ID: 2, Name: "Steel Plate", SKU: "ST-PL", QuantityOnHand: 4, ReorderPoint: 10, VendorLeadTimeDays: 9},
		3: {ID: 3, Name: "Titanium Rod", SKU: "TI-RD", QuantityOnHand: 0, ReorderPoint: 5, VendorLeadTimeDays: 21},
	}}
	return NewService(repo, logger.NewTestLogger(t)).WithClock(func() time.Time { return now }), repo
}

// ==========================
// Stock checks
// ==========================

func TestCheckStock(t *testing.T) {
	svc, _ := newTestService(t)

	tests := []struct {
		name           string
		itemID         int64
		required       int
		validateOutput func(t *testing.T, c *models.StockCheck, err error)
	}{
		{
			name:     "enough stock",
			itemID:   1,
			required: 50,
			validateOutput: func(t *testing.T, c *models.StockCheck, err error) {
				require.NoError(t, err)
				assert.True(t, c.Available)
				assert.Zero(t, c.Shortage)
				assert.Nil(t, c.RestockDate)
			},
		},
		{
			name:     "shortage gets restock date",
			itemID:   2,
			required: 10,
			validateOutput: func(t *testing.T, c *models.StockCheck, err error) {
				require.NoError(t, err)
				assert.False(t, c.Available)
				assert.Equal(t, 6, c.Shortage)
				require.NotNil(t, c.RestockDate)
				assert.Equal(t, now.AddDate(0, 0, 9), *c.RestockDate)
			},
		},
		{
			name:     "missing item",
			itemID:   99,
			required: 1,
			validateOutput: func(t *testing.T, c *models.StockCheck, err error) {
				assert.Nil(t, c)
				assert.True(t, errors.HasCode(err, errors.ErrCodeItemNotFound))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := svc.CheckStock(context.Background(), tt.itemID, tt.required)
			tt.validateOutput(t, c, err)
		})
	}
}

func TestCheckBOM_StopsAtFirstFailure(t *testing.T) {
	svc, _ := newTestService(t)

	checks, err := svc.CheckBOM(context.Background(), []models.BOMLine{{ItemID: 1, Quantity: 1}, {ItemID: 3, Quantity: 2}})
	require.NoError(t, err)
	assert.Len(t, checks, 2)

	_, err = svc.CheckBOM(context.Background(), []models.BOMLine{{ItemID: 1, Quantity: 1}, {ItemID: 42, Quantity: 2}})
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	item, err := svc.Resolve(ctx, models.RequestContext{ItemID: models.Int64Ptr(2)})
	require.NoError(t, err)
	assert.Equal(t, "Steel Plate", item.Name)

	item, err = svc.Resolve(ctx, models.RequestContext{ItemSKU: "TI-RD"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), item.ID)

	item, err = svc.Resolve(ctx, models.RequestContext{MaterialType: "aluminum"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), item.ID)

	_, err = svc.Resolve(ctx, models.RequestContext{ItemName: "unobtainium"})
	assert.True(t, errors.HasCode(err, errors.ErrCodeItemNotFound))

	_, err = svc.Resolve(ctx, models.RequestContext{})
	assert.True(t, errors.HasCode(err, errors.ErrCodeMissingField))
}

func TestAdjust(t *testing.T) {
	svc, repo := newTestService(t)

	item, err := svc.Adjust(context.Background(), 1, 25)
	require.NoError(t, err)
	assert.Equal(t, 75, item.QuantityOnHand)

	_, err = svc.Adjust(context.Background(), 2, -5)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInsufficientStock))
	assert.Equal(t, 4, repo.items[2].QuantityOnHand)
}

// ==========================
// Available to promise
// ==========================

func TestLineATP(t *testing.T) {
	tests := []struct {
		name     string
		item     models.Item
		required int
		want     models.ATPLine
	}{
		{"available", models.Item{ID: 1, QuantityOnHand: 10, VendorLeadTimeDays: 5}, 10,
			models.ATPLine{ItemID: 1, Status: models.ATPAvailable, AvailableQty: 10}},
		{"partial", models.Item{ID: 2, QuantityOnHand: 4, VendorLeadTimeDays: 9}, 10,
			models.ATPLine{ItemID: 2, Status: models.ATPPartial, AvailableQty: 4, ShortageQty: 6, LeadTimeDays: 9}},
		{"backorder", models.Item{ID: 3, QuantityOnHand: 0, VendorLeadTimeDays: 21}, 3,
			models.ATPLine{ItemID: 3, Status: models.ATPBackorder, ShortageQty: 3, LeadTimeDays: 21}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LineATP(tt.item, tt.required))
		})
	}
}

func TestEarliestDelivery(t *testing.T) {
	svc, _ := newTestService(t)
	today := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	t.Run("all in stock adds processing days only", func(t *testing.T) {
		est, err := svc.EarliestDelivery(context.Background(), []models.BOMLine{{ItemID: 1, Quantity: 5}}, nil)
		require.NoError(t, err)
		assert.Equal(t, today.AddDate(0, 0, 2), est.EarliestDate)
		assert.True(t, est.Feasible)
		assert.Empty(t, est.Warnings)
	})

	t.Run("longest shortage lead wins", func(t *testing.T) {
		requested := today.AddDate(0, 0, 14)
		est, err := svc.EarliestDelivery(context.Background(), []models.BOMLine{
			{ItemID: 1, Quantity: 5},
			{ItemID: 2, Quantity: 10},
			{ItemID: 3, Quantity: 3},
		}, &requested)
		require.NoError(t, err)

		assert.Equal(t, today.AddDate(0, 0, 23), est.EarliestDate)
		assert.False(t, est.Feasible)
		require.Len(t, est.Warnings, 2)
		assert.Equal(t, "6 units of Steel Plate backordered (+9 days)", est.Warnings[0].Message)
		assert.Equal(t, "Titanium Rod not in stock. Lead time: 21 days", est.Warnings[1].Message)
	})

	t.Run("requested date equal to earliest is feasible", func(t *testing.T) {
		requested := today.AddDate(0, 0, 11).Add(7 * time.Hour)
		est, err := svc.EarliestDelivery(context.Background(), []models.BOMLine{{ItemID: 2, Quantity: 10}}, &requested)
		require.NoError(t, err)
		assert.True(t, est.Feasible)
	})
}
