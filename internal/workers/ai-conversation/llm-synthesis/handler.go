// internal/workers/ai-conversation/llm-synthesis/handler.go
package llmsynthesis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"mfg-orchestrator/internal/common/genai"
	"mfg-orchestrator/internal/common/metrics"
	"mfg-orchestrator/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "llm-synthesis"
)

var (
	ErrLLMTimeout         = errors.New("LLM_TIMEOUT")
	ErrLLMSynthesisFailed = errors.New("LLM_SYNTHESIS_FAILED")
)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Handler writes the customer-facing narrative for a set of quote options.
type Handler struct {
	config    *Config
	completer genai.Completer
	logger    Logger
}

func NewHandler(config *Config, completer genai.Completer, log Logger) *Handler {
	return &Handler{
		config:    config,
		completer: completer,
		logger: log.With(map[string]interface{}{
			"taskType": TaskType,
		}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, fmt.Errorf("parse input: %w", err), 0)
		return
	}

	output, err := h.execute(context.Background(), &input)
	if err != nil {
		h.failJob(client, job, err, 1)
		return
	}
	h.completeJob(client, job, output)
}

// Execute method for direct usage
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if h.completer == nil {
		return nil, fmt.Errorf("%w: no language model configured", ErrLLMSynthesisFailed)
	}

	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	text, err := h.completer.Complete(ctx, genai.Prompt{
		System:      systemPrompt(h.config.AssistantName),
		User:        buildPrompt(input),
		MaxTokens:   h.config.MaxTokens,
		Temperature: h.config.Temperature,
	})
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, genai.ErrCompletionTimeout) {
			return nil, ErrLLMTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrLLMSynthesisFailed, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty narrative", ErrLLMSynthesisFailed)
	}

	h.logger.Info("narrative generated", map[string]interface{}{
		"customer": input.CustomerName,
		"length":   len(text),
	})
	return &Output{Narrative: text}, nil
}

func systemPrompt(assistant string) string {
	return fmt.Sprintf(`You are the quote synthesizer for %s, a manufacturing operations assistant.

You receive results from three analyses:
1. Inventory analysis: stock availability and restock times
2. Scheduling analysis: machine availability and production slots
3. Costing analysis: prices for each delivery option

Present THREE options:
1. FASTEST: prioritize speed, may cost more
2. CHEAPEST: prioritize cost savings, may take longer
3. BALANCED: optimal trade-off (recommended)

For each option state the total price, the delivery date and the key trade-offs.
Be concise. Manufacturing managers are busy.`, assistant)
}

func buildPrompt(input *Input) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("Customer: %s", orUnknown(input.CustomerName)))
	parts = append(parts, fmt.Sprintf("Product: %s", orUnknown(input.ProductDescription)))
	parts = append(parts, fmt.Sprintf("Quantity: %d", input.Quantity))
	parts = append(parts, fmt.Sprintf("Requested Date: %s", orUnknown(input.RequestedDate)))

	sections := []struct {
		title  string
		result models.AnalysisResult
	}{
		{"INVENTORY ANALYSIS", input.Inventory},
		{"SCHEDULING ANALYSIS", input.Scheduling},
		{"COSTING ANALYSIS", input.Costing},
	}
	for _, s := range sections {
		body, _ := json.MarshalIndent(s.result, "", "  ")
		parts = append(parts, "\n"+s.title+":")
		parts = append(parts, string(body))
	}

	parts = append(parts, "\nPlease synthesize these into a clear response for the customer.")
	return strings.Join(parts, "\n")
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Not specified"
	}
	return s
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
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

func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error, retries int32) {
	errorCode := "UNKNOWN_ERROR"
	if errors.Is(err, ErrLLMTimeout) {
		errorCode = "LLM_TIMEOUT"
	} else if errors.Is(err, ErrLLMSynthesisFailed) {
		errorCode = "LLM_SYNTHESIS_FAILED"
	}

	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":    job.Key,
		"error":     err.Error(),
		"errorCode": errorCode,
		"retries":   retries,
	})
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, errorCode).Inc()

	_, _ = client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(retries).
		ErrorMessage(err.Error()).
		Send(context.Background())
}
