// internal/workers/quoting/inventory-check/handler.go
package inventorycheck

import (
	"context"
	"encoding/json"
	"fmt"

	"mfg-orchestrator/internal/common/errors"
	"mfg-orchestrator/internal/common/logger"
	"mfg-orchestrator/internal/common/metrics"
	"mfg-orchestrator/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "inventory-check"

	defaultLeadTimeDays   = 7
	placeholderOnHand     = 100
	placeholderVendorLead = 5
	estimatedSummary      = "Using estimated inventory data"
	allInStockSummary     = "All materials in stock"
	unavailableSummary    = "Inventory data unavailable"
)

// StockChecker is the slice of the inventory service this task needs.
type StockChecker interface {
	CheckStock(ctx context.Context, itemID int64, required int) (*models.StockCheck, error)
}

type Handler struct {
	config *Config
	stock  StockChecker
	logger logger.Logger
}

func NewHandler(config *Config, stock StockChecker, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		stock:  stock,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, errors.NewMissingFieldError("bom"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.completeJob(client, job, h.Analyze(ctx, &input))
}

// Analyze checks every BOM line. It never fails: a missing item becomes an
// in-stock placeholder and any other lookup failure yields estimated data.
func (h *Handler) Analyze(ctx context.Context, input *Input) *Output {
	bom := input.BOM
	if len(bom) == 0 {
		qty := h.config.DefaultQuantity
		if input.Quantity != nil && *input.Quantity > 0 {
			qty = *input.Quantity
		}
		bom = []models.BOMLine{{ItemID: h.config.DefaultItemID, Quantity: qty}}
	}

	items := make([]models.StockCheck, 0, len(bom))
	var missing []int64
	for _, line := range bom {
		check, err := h.stock.CheckStock(ctx, line.ItemID, line.Quantity)
		if err != nil {
			if errors.HasCode(err, errors.ErrCodeItemNotFound) {
				missing = append(missing, line.ItemID)
				items = append(items, placeholder(line, h.config.AllowFallback))
				continue
			}
			if ctx.Err() != nil {
				err = errors.NewStageTimeoutError(TaskType)
			}
			return h.fallback(err)
		}
		items = append(items, *check)
	}

	allAvailable := true
	maxLead := 0
	for _, it := range items {
		if !it.Available {
			allAvailable = false
		}
		if it.VendorLeadTimeDays > maxLead {
			maxLead = it.VendorLeadTimeDays
		}
	}
	if len(items) == 0 {
		maxLead = defaultLeadTimeDays
	}

	summary := allInStockSummary
	if !allAvailable {
		summary = fmt.Sprintf("Some materials require %d days lead time", maxLead)
	}

	out := &Output{
		Result: models.AnalysisResult{
			Available:    allAvailable,
			LeadTimeDays: maxLead,
			Summary:      summary,
			Raw: map[string]interface{}{
				"all_available":      allAvailable,
				"items_checked":      items,
				"max_lead_time_days": maxLead,
			},
		},
		Items:           items,
		AllAvailable:    allAvailable,
		MaxLeadTimeDays: maxLead,
	}

	if len(missing) > 0 {
		out.Result.Degraded = true
		out.Result.Error = fmt.Sprintf("items not found: %v", missing)
		metrics.QuoteStageFallbacks.WithLabelValues(TaskType).Inc()
		h.logger.Warn("inventory placeholder used", map[string]interface{}{"itemIds": missing})
	}
	return out
}

func placeholder(line models.BOMLine, allowFallback bool) models.StockCheck {
	if !allowFallback {
		return models.StockCheck{
			ItemID:             line.ItemID,
			Available:          false,
			QuantityRequired:   line.Quantity,
			Shortage:           line.Quantity,
			VendorLeadTimeDays: defaultLeadTimeDays,
			Placeholder:        true,
		}
	}
	return models.StockCheck{
		ItemID:             line.ItemID,
		Available:          true,
		QuantityOnHand:     placeholderOnHand,
		QuantityRequired:   line.Quantity,
		Shortage:           0,
		VendorLeadTimeDays: placeholderVendorLead,
		Placeholder:        true,
	}
}

func (h *Handler) fallback(err error) *Output {
	h.logger.Warn("inventory check degraded", map[string]interface{}{"error": err.Error()})
	metrics.QuoteStageFallbacks.WithLabelValues(TaskType).Inc()

	result := models.AnalysisResult{
		Available:    true,
		LeadTimeDays: defaultLeadTimeDays,
		Summary:      estimatedSummary,
		Error:        err.Error(),
		Degraded:     true,
	}
	if !h.config.AllowFallback {
		result.Available = false
		result.Summary = unavailableSummary
	}
	result.Raw = map[string]interface{}{
		"all_available":      result.Available,
		"max_lead_time_days": defaultLeadTimeDays,
		"error":              result.Error,
	}
	return &Output{
		Result:          result,
		Items:           []models.StockCheck{},
		AllAvailable:    result.Available,
		MaxLeadTimeDays: defaultLeadTimeDays,
	}
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

// failJob retries retryable codes and otherwise throws the code as a BPMN
// error so the process can route around the stage.
func (h *Handler) failJob(client worker.JobClient, job entities.Job, err *errors.StandardError) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(err.Code)).Inc()
	errors.NewErrorHandler(h.logger).HandleJobError(context.Background(), client, job, err)
}
