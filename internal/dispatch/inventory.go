// internal/dispatch/inventory.go
package dispatch

import (
	"context"
	"fmt"
	"strings"

	"mfg-orchestrator/internal/common/errors"
	"mfg-orchestrator/internal/models"
)

const whichItemText = "Which item do you mean? A SKU or item name works."

func (d *Dispatcher) listInventory(ctx context.Context, req *request) (*models.ResponseEnvelope, error) {
	items, err := d.deps.Inventory.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return envelope(models.KindInventoryList, "No inventory items found.", map[string]interface{}{"items": []models.Item{}}), nil
	}

	lines := make([]string, 0, len(items))
	for _, item := range items {
		status := "✅"
		if item.LowStock() {
			status = "⚠️ Low"
		}
		lines = append(lines, fmt.Sprintf("- **%s** (%s): %d units @ $%s/ea %s",
			item.Name, item.SKU, item.QuantityOnHand, item.CostPerUnit.StringFixed(2), status))
	}
	text := fmt.Sprintf("Found %d inventory items.\n\n%s", len(items), strings.Join(lines, "\n"))
	return envelope(models.KindInventoryList, text, map[string]interface{}{"items": items}), nil
}

// inventoryQuery reports stock for one item and, when a quantity is given,
// whether and when it can be delivered.
func (d *Dispatcher) inventoryQuery(ctx context.Context, req *request) (*models.ResponseEnvelope, error) {
	item, clarify, err := d.resolveItem(ctx, req)
	if clarify != nil || err != nil {
		return clarify, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s** (%s): %d %s on hand, reorder point %d.",
		item.Name, item.SKU, item.QuantityOnHand, item.UOM, item.ReorderPoint)
	data := map[string]interface{}{"item": item}

	if req.rc.Quantity != nil && *req.rc.Quantity > 0 {
		qty := *req.rc.Quantity
		check, err := d.deps.Inventory.CheckStock(ctx, item.ID, qty)
		if err != nil {
			return nil, err
		}
		data["stock"] = check
		if check.Available {
			fmt.Fprintf(&b, "\n\n%d requested: in stock.", qty)
		} else {
			fmt.Fprintf(&b, "\n\n%d requested: short by %d.", qty, check.Shortage)
			if check.RestockDate != nil {
				fmt.Fprintf(&b, " Restock expected %s (%d day vendor lead time).",
					check.RestockDate.Format("2006-01-02"), check.VendorLeadTimeDays)
			}
		}

		delivery, err := d.deps.Inventory.EarliestDelivery(ctx, []models.BOMLine{{ItemID: item.ID, Quantity: qty}}, req.rc.RequestedDate)
		if err != nil {
			req.log.Warn("delivery estimate failed", map[string]interface{}{"itemId": item.ID, "error": err.Error()})
		} else {
			data["delivery"] = delivery
			fmt.Fprintf(&b, "\nEarliest delivery: %s.", delivery.EarliestDate.Format("2006-01-02"))
			if req.rc.RequestedDate != nil && !delivery.Feasible {
				fmt.Fprintf(&b, " That is after the requested %s.", req.rc.RequestedDate.Format("2006-01-02"))
			}
		}
	}

	return envelope(models.KindInventoryDetail, b.String(), data), nil
}

func (d *Dispatcher) adjustInventory(ctx context.Context, req *request) (*models.ResponseEnvelope, error) {
	if req.rc.AdjustQuantity == nil || *req.rc.AdjustQuantity == 0 {
		return envelope(models.KindClarification, "How many units should I add or remove?", nil), nil
	}
	item, clarify, err := d.resolveItem(ctx, req)
	if clarify != nil || err != nil {
		return clarify, err
	}

	delta := *req.rc.AdjustQuantity
	updated, err := d.deps.Inventory.Adjust(ctx, item.ID, delta)
	if err != nil {
		return nil, err
	}

	verb, n := "Added", delta
	if delta < 0 {
		verb, n = "Removed", -delta
	}
	text := fmt.Sprintf("%s %d units of %s. On hand: %d.", verb, n, updated.Name, updated.QuantityOnHand)
	if updated.LowStock() {
		text += fmt.Sprintf(" This is below the reorder point of %d.", updated.ReorderPoint)
	}
	return envelope(models.KindConfirmation, text, map[string]interface{}{
		"item":  updated,
		"delta": delta,
	}), nil
}

func (d *Dispatcher) reorderInventory(ctx context.Context, req *request) (*models.ResponseEnvelope, error) {
	items, err := d.deps.Inventory.LowStock(ctx)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return envelope(models.KindInventoryList, "All items are at or above their reorder points.", map[string]interface{}{"items": []models.Item{}}), nil
	}

	lines := make([]string, 0, len(items))
	for _, item := range items {
		vendor := item.VendorName
		if vendor == "" {
			vendor = "vendor"
		}
		lines = append(lines, fmt.Sprintf("- **%s** (%s): %d on hand, reorder point %d. Order from %s, %d day lead time.",
			item.Name, item.SKU, item.QuantityOnHand, item.ReorderPoint, vendor, item.VendorLeadTimeDays))
	}
	text := fmt.Sprintf("%d item(s) need reordering:\n\n%s", len(items), strings.Join(lines, "\n"))
	return envelope(models.KindInventoryList, text, map[string]interface{}{"items": items}), nil
}

// resolveItem returns a clarification instead of an error when the request
// names no item.
func (d *Dispatcher) resolveItem(ctx context.Context, req *request) (*models.Item, *models.ResponseEnvelope, error) {
	item, err := d.deps.Inventory.Resolve(ctx, req.rc)
	if errors.HasCode(err, errors.ErrCodeMissingField) {
		return nil, envelope(models.KindClarification, whichItemText, nil), nil
	}
	if err != nil {
		return nil, nil, err
	}
	return item, nil, nil
}
