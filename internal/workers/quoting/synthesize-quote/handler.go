// internal/workers/quoting/synthesize-quote/handler.go
package synthesizequote

import (
	"context"
	"encoding/json"
	"fmt"

	"mfg-orchestrator/internal/common/errors"
	"mfg-orchestrator/internal/common/logger"
	"mfg-orchestrator/internal/common/metrics"
	"mfg-orchestrator/internal/models"
	llmsynthesis "mfg-orchestrator/internal/workers/ai-conversation/llm-synthesis"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "synthesize-quote"

	defaultCustomer = "Customer"
	defaultProduct  = "Custom manufacturing job"
)

// Narrator turns merged analyses into customer-facing prose.
type Narrator interface {
	Execute(ctx context.Context, input *llmsynthesis.Input) (*llmsynthesis.Output, error)
}

type Handler struct {
	config   *Config
	narrator Narrator
	logger   logger.Logger
}

func NewHandler(config *Config, narrator Narrator, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		narrator: narrator,
		logger:   log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, errors.NewMissingFieldError("options"))
		return
	}
	if input.Options == nil {
		h.failJob(client, job, errors.NewMissingFieldError("options"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.completeJob(client, job, h.Synthesize(ctx, &input))
}

// Synthesize builds the quote narrative. A narrator failure is recorded in
// the data and replaced by a fixed summary, so a quote is always produced.
func (h *Handler) Synthesize(ctx context.Context, input *Input) *Output {
	customer := input.CustomerName
	if customer == "" {
		customer = defaultCustomer
	}
	product := input.ProductDescription
	if product == "" {
		product = defaultProduct
	}
	quantity := 0
	if input.Quantity != nil {
		quantity = *input.Quantity
	}
	requested := ""
	if input.RequestedDate != nil {
		requested = input.RequestedDate.Format("2006-01-02")
	}

	data := map[string]interface{}{
		"customer_name":       customer,
		"product_description": product,
		"quantity":            quantity,
		"inventory_summary":   input.Inventory.Summary,
		"schedule_summary":    input.Scheduling.Summary,
		"options":             input.Options,
	}

	narrative, err := h.narrate(ctx, &llmsynthesis.Input{
		CustomerName:       customer,
		ProductDescription: product,
		Quantity:           quantity,
		RequestedDate:      requested,
		Inventory:          input.Inventory,
		Scheduling:         input.Scheduling,
		Costing:            input.Costing,
	})
	if err != nil {
		h.logger.Warn("narrative unavailable, using summary", map[string]interface{}{
			"customer": customer,
			"error":    err.Error(),
		})
		metrics.QuoteStageFallbacks.WithLabelValues(TaskType).Inc()
		data["error"] = err.Error()
		narrative = FallbackNarrative(customer)
		data["synthesis"] = narrative
		return &Output{Narrative: narrative, Data: data, Degraded: true}
	}

	data["synthesis"] = narrative
	return &Output{Narrative: narrative, Data: data}
}

func (h *Handler) narrate(ctx context.Context, in *llmsynthesis.Input) (string, error) {
	if h.narrator == nil {
		return "", errors.NewNarrativeFailedError(fmt.Errorf("no narrator configured"))
	}
	out, err := h.narrator.Execute(ctx, in)
	if err != nil {
		return "", errors.NewNarrativeFailedError(err)
	}
	return out.Narrative, nil
}

// FallbackNarrative is shown when the narrator cannot produce text.
func FallbackNarrative(customer string) string {
	return fmt.Sprintf("I've prepared quote options for %s. Please review the three options: Fastest, Cheapest, and Balanced.", customer)
}

// Pending converts a synthesized quote into the record stored for acceptance.
func Pending(threadID string, input *Input, out *Output) *models.PendingQuote {
	if input.Options == nil {
		return nil
	}
	quantity, _ := out.Data["quantity"].(int)
	customer, _ := out.Data["customer_name"].(string)
	product, _ := out.Data["product_description"].(string)
	return &models.PendingQuote{
		ThreadID:           threadID,
		Options:            *input.Options,
		CustomerName:       customer,
		ProductDescription: product,
		Quantity:           quantity,
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

func (h *Handler) failJob(client worker.JobClient, job entities.Job, err *errors.StandardError) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(err.Code)).Inc()
	errors.NewErrorHandler(h.logger).HandleJobError(context.Background(), client, job, err)
}
