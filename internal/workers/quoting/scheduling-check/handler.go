// internal/workers/quoting/scheduling-check/handler.go
package schedulingcheck

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"mfg-orchestrator/internal/common/errors"
	"mfg-orchestrator/internal/common/logger"
	"mfg-orchestrator/internal/common/metrics"
	"mfg-orchestrator/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "scheduling-check"

	defaultLeadTimeDays = 7
	demoMachineID       = 1
	demoMachineName     = "CNC-Mill-1"
	demoStartDays       = 3
	demoDurationHours   = 8
)

type SlotFinder interface {
	FindSlot(ctx context.Context, machineType string, durationHours float64, earliestStart time.Time) (*models.SlotResult, error)
}

type Handler struct {
	config *Config
	finder SlotFinder
	now    func() time.Time
	logger logger.Logger
}

func NewHandler(config *Config, finder SlotFinder, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		finder: finder,
		now:    func() time.Time { return time.Now().UTC() },
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
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
		h.failJob(client, job, errors.NewMissingFieldError("machineType"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.completeJob(client, job, h.Analyze(ctx, &input))
}

// Analyze finds the earliest slot. No capacity, a timeout or a lookup
// failure yields the demo slot, or an unavailable result when fallback is off.
func (h *Handler) Analyze(ctx context.Context, input *Input) *Output {
	machineType := strings.ToLower(strings.TrimSpace(input.MachineType))
	if machineType == "" {
		machineType = h.config.DefaultMachineType
	}
	hours := h.config.DefaultLaborHours
	if input.LaborHours != nil && *input.LaborHours > 0 {
		hours = *input.LaborHours
	}
	now := h.now()
	earliest := now
	if input.EarliestStart != nil && input.EarliestStart.After(now) {
		earliest = *input.EarliestStart
	}

	result, err := h.finder.FindSlot(ctx, machineType, hours, earliest)
	if err != nil {
		if ctx.Err() != nil {
			err = errors.NewStageTimeoutError(TaskType)
		}
		return h.fallback(machineType, now, err)
	}

	best := result.Best
	lead := LeadTimeDays(best.Start, now)
	return &Output{
		Result: models.AnalysisResult{
			Available:    true,
			LeadTimeDays: lead,
			Summary:      fmt.Sprintf("Slot available on %s starting %s", best.MachineName, best.Start.Format("2006-01-02 15:04")),
			Raw: map[string]interface{}{
				"slot_found":     true,
				"machine_id":     best.MachineID,
				"machine_name":   best.MachineName,
				"earliest_start": best.Start.Format(time.RFC3339),
				"earliest_end":   best.End.Format(time.RFC3339),
				"alternatives":   result.Alternatives,
			},
		},
		Slot:         &best,
		Alternatives: result.Alternatives,
		LeadTimeDays: lead,
	}
}

// LeadTimeDays is the whole number of days until start, at least one.
func LeadTimeDays(start, now time.Time) int {
	days := int(start.Sub(now).Hours() / 24)
	if days < 1 {
		return 1
	}
	return days
}

func (h *Handler) fallback(machineType string, now time.Time, err error) *Output {
	h.logger.Warn("scheduling check degraded", map[string]interface{}{
		"machineType": machineType,
		"error":       err.Error(),
	})
	metrics.QuoteStageFallbacks.WithLabelValues(TaskType).Inc()

	if !h.config.AllowFallback {
		return &Output{
			Result: models.AnalysisResult{
				Available:    false,
				LeadTimeDays: defaultLeadTimeDays,
				Summary:      fmt.Sprintf("No production capacity available for %s", machineType),
				Error:        err.Error(),
				Degraded:     true,
				Raw:          map[string]interface{}{"slot_found": false},
			},
			Alternatives: []models.SlotCandidate{},
			LeadTimeDays: defaultLeadTimeDays,
		}
	}

	start := now.AddDate(0, 0, demoStartDays)
	slot := models.SlotCandidate{
		MachineID:   demoMachineID,
		MachineName: demoMachineName,
		Start:       start,
		End:         start.Add(demoDurationHours * time.Hour),
	}
	return &Output{
		Result: models.AnalysisResult{
			Available:    true,
			LeadTimeDays: demoStartDays,
			Summary:      fmt.Sprintf("Slot available starting in %d days", demoStartDays),
			Degraded:     true,
			Raw: map[string]interface{}{
				"reason":         err.Error(),
				"slot_found":     true,
				"machine_id":     slot.MachineID,
				"machine_name":   slot.MachineName,
				"earliest_start": slot.Start.Format(time.RFC3339),
				"earliest_end":   slot.End.Format(time.RFC3339),
				"alternatives":   []models.SlotCandidate{},
			},
		},
		Slot:         &slot,
		Alternatives: []models.SlotCandidate{},
		LeadTimeDays: demoStartDays,
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
