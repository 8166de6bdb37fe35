// internal/inventory/service.go
package inventory

import (
	"context"
	"strings"
	"time"

	"mfg-orchestrator/internal/common/errors"
	"mfg-orchestrator/internal/common/logger"
	"mfg-orchestrator/internal/models"
)

type Repository interface {
	GetItem(ctx context.Context, id int64) (*models.Item, error) // ITEM_NOT_FOUND when absent
	GetItemBySKU(ctx context.Context, sku string) (*models.Item, error)
	FindItemsByName(ctx context.Context, name string) ([]models.Item, error)
	ListItems(ctx context.Context) ([]models.Item, error)
	LowStockItems(ctx context.Context) ([]models.Item, error)
	SetQuantity(ctx context.Context, id int64, quantity int) (*models.Item, error)
}

// Service answers stock questions for single items and whole bills of materials.
type Service struct {
	repo   Repository
	now    func() time.Time
	logger logger.Logger
}

func NewService(repo Repository, log logger.Logger) *Service {
	return &Service{
		repo:   repo,
		now:    time.Now,
		logger: log.With(map[string]interface{}{"component": "inventory"}),
	}
}

// WithClock replaces the time source used for restock and delivery dates.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CheckStock reports availability of one item for a required quantity.
func (s *Service) CheckStock(ctx context.Context, itemID int64, required int) (*models.StockCheck, error) {
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	check := StockFor(*item, required, s.now())
	return &check, nil
}

// CheckBOM checks every line and stops at the first lookup failure.
func (s *Service) CheckBOM(ctx context.Context, bom []models.BOMLine) ([]models.StockCheck, error) {
	out := make([]models.StockCheck, 0, len(bom))
	for _, line := range bom {
		check, err := s.CheckStock(ctx, line.ItemID, line.Quantity)
		if err != nil {
			return nil, err
		}
		out = append(out, *check)
	}
	return out, nil
}

// StockFor computes a stock check without touching the repository.
func StockFor(item models.Item, required int, now time.Time) models.StockCheck {
	shortage := required - item.QuantityOnHand
	if shortage < 0 {
		shortage = 0
	}
	check := models.StockCheck{
		ItemID:             item.ID,
		ItemName:           item.Name,
		Available:          item.QuantityOnHand >= required,
		QuantityOnHand:     item.QuantityOnHand,
		QuantityRequired:   required,
		Shortage:           shortage,
		VendorLeadTimeDays: item.VendorLeadTimeDays,
	}
	if shortage > 0 {
		restock := now.AddDate(0, 0, item.VendorLeadTimeDays)
		check.RestockDate = &restock
	}
	return check
}

// Resolve finds the item a request refers to: id first, then SKU, then a
// partial name match.
func (s *Service) Resolve(ctx context.Context, rc models.RequestContext) (*models.Item, error) {
	switch {
	case rc.ItemID != nil:
		return s.repo.GetItem(ctx, *rc.ItemID)
	case rc.ItemSKU != "":
		return s.repo.GetItemBySKU(ctx, rc.ItemSKU)
	}

	name := rc.ItemName
	if name == "" {
		name = rc.MaterialType
	}
	if strings.TrimSpace(name) == "" {
		return nil, errors.NewMissingFieldError("item")
	}
	items, err := s.repo.FindItemsByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errors.NewItemNotFoundError(0, nil).WithMetadata("name", name)
	}
	return &items[0], nil
}

func (s *Service) List(ctx context.Context) ([]models.Item, error) {
	return s.repo.ListItems(ctx)
}

func (s *Service) LowStock(ctx context.Context) ([]models.Item, error) {
	return s.repo.LowStockItems(ctx)
}

// Adjust applies a signed delta to quantity on hand. Stock never goes negative.
func (s *Service) Adjust(ctx context.Context, itemID int64, delta int) (*models.Item, error) {
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.QuantityOnHand+delta < 0 {
		return nil, errors.NewInsufficientStockError(item.Name, item.QuantityOnHand, delta)
	}

	updated, err := s.repo.SetQuantity(ctx, itemID, item.QuantityOnHand+delta)
	if err != nil {
		return nil, err
	}
	s.logger.Info("stock adjusted", map[string]interface{}{
		"itemId":   itemID,
		"delta":    delta,
		"quantity": updated.QuantityOnHand,
	})
	return updated, nil
}
