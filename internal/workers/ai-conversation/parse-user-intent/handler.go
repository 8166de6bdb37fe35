// internal/workers/ai-conversation/parse-user-intent/handler.go
package parseuserintent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"mfg-orchestrator/internal/common/genai"
	"mfg-orchestrator/internal/common/metrics"
	"mfg-orchestrator/internal/common/validation"
	"mfg-orchestrator/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "parse-user-intent"

	SourceClassifier = "classifier"
	SourceKeyword    = "keyword"
)

var (
	ErrIntentParsingFailed = errors.New("INTENT_PARSING_FAILED")
	ErrIntentAPITimeout    = errors.New("INTENT_API_TIMEOUT")
)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// IntentAPI is the GenAI service's structured parse endpoint.
type IntentAPI interface {
	PostJSON(ctx context.Context, path string, body, out interface{}) error
}

type Handler struct {
	config    *Config
	completer genai.Completer
	intentAPI IntentAPI
	keywords  *KeywordClassifier
	labels    []string
	schema    map[string]interface{}
	logger    Logger
}

// NewHandler wires the model-backed classifier. Either collaborator may be
// nil; with neither, every message goes through the keyword matcher.
func NewHandler(config *Config, completer genai.Completer, intentAPI IntentAPI, log Logger) *Handler {
	labels := make([]string, 0, len(models.AllIntents())+1)
	for _, i := range models.AllIntents() {
		labels = append(labels, string(i))
	}
	labels = append(labels, "JOB_STATUS")

	return &Handler{
		config:    config,
		completer: completer,
		intentAPI: intentAPI,
		keywords:  NewKeywordClassifier(),
		labels:    labels,
		schema:    validation.ClassificationSchema(labels),
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
		h.failJob(client, job, err, 0)
		return
	}
	h.completeJob(client, job, output)
}

// Classify never fails on classifier trouble: transport errors, timeouts and
// malformed or schema-invalid output all fall through to keyword matching.
func (h *Handler) Classify(ctx context.Context, message string) (*models.Classification, error) {
	out, err := h.execute(ctx, &Input{Message: message})
	if err != nil {
		return nil, err
	}
	return &models.Classification{
		Intent:     out.Intent,
		Context:    out.Context,
		Confidence: out.Confidence,
		Source:     out.Source,
	}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	message := strings.TrimSpace(input.Message)
	if message == "" {
		return &Output{Intent: models.IntentGeneralQuery, Source: SourceKeyword}, nil
	}

	if h.completer != nil || h.intentAPI != nil {
		out, err := h.classifyWithModel(ctx, message)
		if err == nil {
			h.logger.Info("intent classified", map[string]interface{}{
				"intent":     out.Intent,
				"confidence": out.Confidence,
				"threadId":   input.ThreadID,
			})
			return out, nil
		}
		h.logger.Warn("classifier failed, using keyword fallback", map[string]interface{}{
			"error":    err.Error(),
			"threadId": input.ThreadID,
		})
		metrics.ClassifierFallbacks.Inc()
	}

	cls := h.keywords.Classify(message)
	return &Output{
		Intent:     cls.Intent,
		Context:    cls.Context,
		Confidence: cls.Confidence,
		Source:     SourceKeyword,
	}, nil
}

func (h *Handler) classifyWithModel(ctx context.Context, message string) (*Output, error) {
	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	raw, err := h.fetch(ctx, message)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, genai.ErrCompletionTimeout) {
			return nil, ErrIntentAPITimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrIntentParsingFailed, err)
	}

	doc := genai.ExtractJSON(raw)
	if doc == "" {
		return nil, fmt.Errorf("%w: no JSON object in response", ErrIntentParsingFailed)
	}
	if result := validation.ValidateJSON([]byte(doc), h.schema); !result.Valid {
		return nil, fmt.Errorf("%w: %s", ErrIntentParsingFailed, result.Error())
	}

	var resp modelResponse
	if err := json.Unmarshal([]byte(doc), &resp); err != nil {
		return nil, fmt.Errorf("%w: decode error: %v", ErrIntentParsingFailed, err)
	}

	intent, ok := models.ParseIntent(resp.Intent)
	if !ok {
		intent = models.IntentGeneralQuery
	}
	confidence := 0.9
	if resp.Confidence != nil {
		confidence = *resp.Confidence
	}

	return &Output{
		Intent:     intent,
		Context:    resp.Context.toRequestContext(),
		Confidence: confidence,
		Source:     SourceClassifier,
	}, nil
}

func (h *Handler) fetch(ctx context.Context, message string) (string, error) {
	if h.config.UseIntentAPI && h.intentAPI != nil {
		var body json.RawMessage
		err := h.intentAPI.PostJSON(ctx, "/api/ai/parse-intent", map[string]interface{}{
			"query":   message,
			"intents": h.labels,
		}, &body)
		return string(body), err
	}
	if h.completer == nil {
		return "", errors.New("no classifier configured")
	}
	return h.completer.Complete(ctx, genai.Prompt{
		System:      classifierPrompt(h.config.AssistantName),
		User:        message,
		MaxTokens:   512,
		Temperature: 0,
	})
}

func (c modelContext) toRequestContext() models.RequestContext {
	return models.RequestContext{
		CustomerName:        str(c.CustomerName),
		CustomerEmail:       str(c.CustomerEmail),
		CustomerPhone:       str(c.CustomerPhone),
		ProductDescription:  str(c.ProductDescription),
		Quantity:            c.Quantity,
		RequestedDate:       parseDate(str(c.RequestedDate)),
		JobNumber:           str(c.JobNumber),
		PONumber:            str(c.PONumber),
		ItemID:              c.ItemID,
		ItemSKU:             str(c.ItemSKU),
		ItemName:            str(c.ItemName),
		AdjustQuantity:      c.AdjustQuantity,
		MachineID:           c.MachineID,
		MachineName:         str(c.MachineName),
		MachineType:         strings.ToLower(str(c.MachineType)),
		HourlyRate:          c.HourlyRate,
		LaborHours:          c.LaborHours,
		EstimateNumber:      strings.ToUpper(str(c.EstimateNumber)),
		RejectionReason:     str(c.RejectionReason),
		QuoteSelection:      strings.ToLower(str(c.QuoteSelection)),
		MaterialType:        str(c.MaterialType),
		SearchQuery:         str(c.SearchQuery),
		JobStatus:           strings.ToLower(str(c.JobStatus)),
		Priority:            c.Priority,
		ClarificationNeeded: str(c.ClarificationNeeded),
	}
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	s := strings.TrimSpace(*p)
	if strings.EqualFold(s, "null") || strings.EqualFold(s, "none") {
		return ""
	}
	return s
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"01/02/2006",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
}

// parseDate accepts a handful of unambiguous layouts. Relative phrases such
// as "next week" are left unset rather than guessed.
func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func classifierPrompt(assistant string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are the intent classifier for %s, a manufacturing operations assistant.\n\n", assistant)
	b.WriteString("Classify the user's message into exactly one intent:\n")
	for _, i := range models.AllIntents() {
		b.WriteString("- ")
		b.WriteString(string(i))
		b.WriteString("\n")
	}
	b.WriteString(`
Extract these details when the message states them. Never guess a value; use null when absent:
- customerName, customerEmail, customerPhone
- productDescription: what to manufacture
- quantity: how many units (integer)
- requestedDate: when it is needed (YYYY-MM-DD when possible)
- jobNumber (format YYYYMMDD-NNNN), poNumber, estimateNumber (EST-...)
- itemSku, itemName, adjustQuantity (negative to remove stock)
- machineName, machineType, hourlyRate, laborHours
- materialType (e.g. "aluminum 6061", "steel")
- quoteSelection: "fastest", "cheapest" or "balanced" when accepting a quote
- searchQuery, rejectionReason, priority (1-10)
- clarificationNeeded: a question to ask if key information is missing

Respond with only a JSON object:
{"intent": "...", "confidence": 0.0-1.0, "context": {"customerName": null, "quantity": null, ...}}`)
	return b.String()
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
	if errors.Is(err, ErrIntentParsingFailed) {
		errorCode = "INTENT_PARSING_FAILED"
	}

	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":    job.Key,
		"error":     err.Error(),
		"errorCode": errorCode,
	})
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, errorCode).Inc()

	_, _ = client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(retries).
		ErrorMessage(errorCode + ": " + err.Error()).
		Send(context.Background())
}
