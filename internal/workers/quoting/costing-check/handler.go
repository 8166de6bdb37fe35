// internal/workers/quoting/costing-check/handler.go
package costingcheck

import (
	"context"
	"encoding/json"
	"time"

	"mfg-orchestrator/internal/common/errors"
	"mfg-orchestrator/internal/common/logger"
	"mfg-orchestrator/internal/common/metrics"
	"mfg-orchestrator/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/shopspring/decimal"
)

const (
	TaskType = "costing-check"

	defaultLeadTimeDays = 7
	computedSummary     = "Three pricing options calculated"
	estimatedSummary    = "Using estimated pricing"
)

// Calculator is the quote engine surface this task needs.
type Calculator interface {
	ComputeOptions(ctx context.Context, bom []models.BOMLine, laborHours float64, machineID *int64, baselineLeadDays int) (*models.QuoteOptions, error)
}

type Handler struct {
	config     *Config
	calculator Calculator
	now        func() time.Time
	logger     logger.Logger
}

func NewHandler(config *Config, calculator Calculator, log logger.Logger) *Handler {
	return &Handler{
		config:     config,
		calculator: calculator,
		now:        func() time.Time { return time.Now().UTC() },
		logger:     log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
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

	output, err := h.Analyze(ctx, &input)
	if err != nil {
		h.failJob(client, job, errors.AsStandard(err))
		return
	}
	h.completeJob(client, job, output)
}

// Analyze prices the three strategies. A calculator failure yields the fixed
// demo options unless fallback is disabled, in which case the error is returned.
func (h *Handler) Analyze(ctx context.Context, input *Input) (*Output, error) {
	bom := input.BOM
	if len(bom) == 0 {
		qty := h.config.DefaultQuantity
		if input.Quantity != nil && *input.Quantity > 0 {
			qty = *input.Quantity
		}
		bom = []models.BOMLine{{ItemID: h.config.DefaultItemID, Quantity: qty}}
	}
	hours := h.config.DefaultLaborHours
	if input.LaborHours != nil && *input.LaborHours >= 0 {
		hours = *input.LaborHours
	}
	lead := input.LeadTimeDays
	if lead <= 0 {
		lead = defaultLeadTimeDays
	}

	options, err := h.calculator.ComputeOptions(ctx, bom, hours, input.MachineID, lead)
	if err != nil {
		if ctx.Err() != nil {
			err = errors.NewStageTimeoutError(TaskType)
		}
		h.logger.Warn("costing check degraded", map[string]interface{}{
			"bomLines": len(bom),
			"error":    err.Error(),
		})
		metrics.QuoteStageFallbacks.WithLabelValues(TaskType).Inc()
		if !h.config.AllowFallback {
			return nil, errors.NewStageFailedError(TaskType, err)
		}
		demo := DemoOptions(h.now())
		return &Output{
			Result: models.AnalysisResult{
				Available:    true,
				LeadTimeDays: demo.Balanced.LeadTimeDays,
				Summary:      estimatedSummary,
				Error:        err.Error(),
				Degraded:     true,
				Raw:          optionsRaw(demo),
			},
			Options: demo,
		}, nil
	}

	return &Output{
		Result: models.AnalysisResult{
			Available:    true,
			LeadTimeDays: options.Balanced.LeadTimeDays,
			Summary:      computedSummary,
			Raw:          optionsRaw(options),
		},
		Options: options,
	}, nil
}

// DemoOptions are the fixed estimates used when pricing cannot be computed.
func DemoOptions(now time.Time) *models.QuoteOptions {
	option := func(s models.Strategy, price int64, days int, details string, highlights ...string) models.QuoteOption {
		return models.QuoteOption{
			Strategy:     s,
			TotalPrice:   decimal.NewFromInt(price),
			DeliveryDate: now.AddDate(0, 0, days),
			LeadTimeDays: days,
			Details:      details,
			Highlights:   highlights,
		}
	}
	return &models.QuoteOptions{
		Fastest:  option(models.StrategyFastest, 2500, 3, "Estimated expedited production.", "Expedited delivery", "Priority scheduling"),
		Cheapest: option(models.StrategyCheapest, 1800, 10, "Estimated standard production.", "Most economical", "Standard scheduling"),
		Balanced: option(models.StrategyBalanced, 2100, 7, "Estimated balanced production.", "Recommended", "Best value"),
	}
}

func optionsRaw(o *models.QuoteOptions) map[string]interface{} {
	raw := make(map[string]interface{}, 3)
	for _, opt := range o.All() {
		raw[string(opt.Strategy)] = map[string]interface{}{
			"price":         opt.TotalPrice.StringFixed(2),
			"delivery_date": opt.DeliveryDate.Format("2006-01-02"),
			"lead_days":     opt.LeadTimeDays,
			"highlights":    opt.Highlights,
		}
	}
	return raw
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

func (h *Handler) failJob(client worker.JobClient, job entities.Job, err *errors.StandardError) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(err.Code)).Inc()
	errors.NewErrorHandler(h.logger).HandleJobError(context.Background(), client, job, err)
}
