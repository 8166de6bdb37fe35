// internal/inventory/atp.go
package inventory

import (
	"context"
	"fmt"
	"time"

	"mfg-orchestrator/internal/models"
)

// ProcessingDays is added to the longest vendor lead time of any short line.
const ProcessingDays = 2

// LineATP classifies one requirement against stock on hand.
func LineATP(item models.Item, required int) models.ATPLine {
	line := models.ATPLine{ItemID: item.ID}
	switch {
	case item.QuantityOnHand >= required:
		line.Status = models.ATPAvailable
		line.AvailableQty = item.QuantityOnHand
	case item.QuantityOnHand > 0:
		line.Status = models.ATPPartial
		line.AvailableQty = item.QuantityOnHand
		line.ShortageQty = required - item.QuantityOnHand
		line.LeadTimeDays = item.VendorLeadTimeDays
	default:
		line.Status = models.ATPBackorder
		line.ShortageQty = required
		line.LeadTimeDays = item.VendorLeadTimeDays
	}
	return line
}

func warningText(line models.ATPLine, itemName string) string {
	switch line.Status {
	case models.ATPPartial:
		return fmt.Sprintf("%d units of %s backordered (+%d days)", line.ShortageQty, itemName, line.LeadTimeDays)
	case models.ATPBackorder:
		return fmt.Sprintf("%s not in stock. Lead time: %d days", itemName, line.LeadTimeDays)
	}
	return ""
}

// EarliestDelivery computes the available-to-promise date for a bill of
// materials and whether it meets the requested date.
func (s *Service) EarliestDelivery(ctx context.Context, bom []models.BOMLine, requested *time.Time) (*models.DeliveryEstimate, error) {
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	maxLead := 0
	warnings := []models.ATPWarning{}
	for _, req := range bom {
		if req.ItemID == 0 {
			continue
		}
		item, err := s.repo.GetItem(ctx, req.ItemID)
		if err != nil {
			return nil, err
		}

		line := LineATP(*item, req.Quantity)
		if line.Status == models.ATPAvailable {
			continue
		}
		if line.LeadTimeDays > maxLead {
			maxLead = line.LeadTimeDays
		}
		warnings = append(warnings, models.ATPWarning{
			ItemID:       item.ID,
			ItemName:     item.Name,
			RequiredQty:  req.Quantity,
			AvailableQty: line.AvailableQty,
			ShortageQty:  line.ShortageQty,
			LeadTimeDays: line.LeadTimeDays,
			Message:      warningText(line, item.Name),
		})
	}

	earliest := today.AddDate(0, 0, maxLead+ProcessingDays)
	feasible := true
	if requested != nil {
		r := requested.UTC()
		requestedDay := time.Date(r.Year(), r.Month(), r.Day(), 0, 0, 0, 0, time.UTC)
		feasible = !earliest.After(requestedDay)
	}

	return &models.DeliveryEstimate{
		EarliestDate: earliest,
		Feasible:     feasible,
		Warnings:     warnings,
	}, nil
}
