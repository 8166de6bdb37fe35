// internal/dispatch/quoting.go
package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"mfg-orchestrator/internal/common/metrics"
	"mfg-orchestrator/internal/models"
	costingcheck "mfg-orchestrator/internal/workers/quoting/costing-check"
	inventorycheck "mfg-orchestrator/internal/workers/quoting/inventory-check"
	schedulingcheck "mfg-orchestrator/internal/workers/quoting/scheduling-check"
	synthesizequote "mfg-orchestrator/internal/workers/quoting/synthesize-quote"

	"go.opentelemetry.io/otel/attribute"
)

const pricingUnavailableText = "I couldn't price this request right now. Please try again shortly."

// quoteAccumulator collects stage results for one quote. Stages running
// concurrently write through record.
type quoteAccumulator struct {
	mu sync.Mutex

	inventory  models.AnalysisResult
	scheduling models.AnalysisResult
	costing    models.AnalysisResult
	options    *models.QuoteOptions
	costingErr error

	// quantity is fixed before any stage starts.
	quantity     int
	leadTimeDays int
	machineID    *int64
	degraded     []string
}

func (a *quoteAccumulator) record(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn()
}

func (a *quoteAccumulator) markDegraded(stage string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.degraded = append(a.degraded, stage)
}

// quantity is the requested quantity, or the configured default when the
// request has none.
func (d *Dispatcher) quantity(rc models.RequestContext) int {
	if rc.Quantity != nil && *rc.Quantity > 0 {
		return *rc.Quantity
	}
	return d.opts.DefaultQuantity
}

func bomFor(rc models.RequestContext, qty int) []models.BOMLine {
	if rc.ItemID == nil {
		return nil
	}
	return []models.BOMLine{{ItemID: *rc.ItemID, Quantity: qty}}
}

// quote runs the analysis stages and the synthesizer. In parallel mode
// scheduling runs first so its lead time and machine can feed costing,
// then inventory and costing run together behind a barrier.
func (d *Dispatcher) quote(ctx context.Context, req *request) (*models.ResponseEnvelope, error) {
	acc := &quoteAccumulator{degraded: []string{}, quantity: d.quantity(req.rc)}
	m := req.machine

	if d.opts.Parallel {
		if err := m.to(StateStageScheduling); err != nil {
			return nil, err
		}
		d.runScheduling(ctx, req, acc)

		if err := m.to(StateStageInventory); err != nil {
			return nil, err
		}
		if err := m.to(StateStageCosting); err != nil {
			return nil, err
		}
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			d.runInventory(ctx, req, acc)
		}()
		go func() {
			defer wg.Done()
			d.runCosting(ctx, req, acc)
		}()
		wg.Wait()
	} else {
		for _, step := range []struct {
			state State
			run   func(context.Context, *request, *quoteAccumulator)
		}{
			{StateStageInventory, d.runInventory},
			{StateStageScheduling, d.runScheduling},
			{StateStageCosting, d.runCosting},
		} {
			if err := m.to(step.state); err != nil {
				return nil, err
			}
			step.run(ctx, req, acc)
		}
	}

	if acc.costingErr != nil {
		req.log.Error("quote aborted, pricing unavailable", map[string]interface{}{"error": acc.costingErr.Error()})
		return errorEnvelope(pricingUnavailableText, map[string]interface{}{"error": acc.costingErr.Error()}), nil
	}

	if err := m.to(StateSynthesizing); err != nil {
		return nil, err
	}
	input := &synthesizequote.Input{
		CustomerName:       req.rc.CustomerName,
		ProductDescription: req.rc.ProductDescription,
		Quantity:           &acc.quantity,
		RequestedDate:      req.rc.RequestedDate,
		Inventory:          acc.inventory,
		Scheduling:         acc.scheduling,
		Costing:            acc.costing,
		Options:            acc.options,
	}

	sctx, end := d.deps.Observability.StartSpan(ctx, "quote.synthesize")
	out := d.deps.Synthesizer.Synthesize(sctx, input)
	end()
	if out.Degraded {
		acc.markDegraded(synthesizequote.TaskType)
	}

	sort.Strings(acc.degraded)
	data := make(map[string]interface{}, len(out.Data)+2)
	for k, v := range out.Data {
		data[k] = v
	}
	data["degraded_stages"] = acc.degraded
	data["lead_time_days"] = acc.leadTimeDays

	env := envelope(models.KindQuoteOptions, out.Narrative, data)
	env.NewPendingQuote = synthesizequote.Pending(req.threadID, input, out)
	return env, nil
}

// stage runs fn under the stage timeout with a span and metrics.
func (d *Dispatcher) stage(ctx context.Context, req *request, name string, fn func(ctx context.Context) bool) {
	sctx, cancel := context.WithTimeout(ctx, d.opts.StageTimeout)
	defer cancel()
	sctx, end := d.deps.Observability.StartSpan(sctx, "quote."+name, attribute.String("stage", name))
	defer end()

	start := time.Now()
	degraded := fn(sctx)
	elapsed := time.Since(start)

	metrics.QuoteStageDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	d.deps.Observability.RecordStage(ctx, name, degraded, elapsed)
	req.log.Debug("stage finished", map[string]interface{}{
		"stage":    name,
		"degraded": degraded,
		"elapsed":  elapsed.String(),
	})
}

// recoverStage is deferred by every stage runner. Stages may run on their
// own goroutine, outside the recover in Dispatch, so a panic is logged here
// and handed to onPanic to leave the accumulator in a usable state.
func (d *Dispatcher) recoverStage(req *request, stage string, onPanic func(err error)) {
	r := recover()
	if r == nil {
		return
	}
	req.log.Error("stage panicked", map[string]interface{}{
		"stage": stage,
		"panic": fmt.Sprint(r),
		"stack": string(debug.Stack()),
	})
	metrics.QuoteStageFallbacks.WithLabelValues(stage).Inc()
	onPanic(fmt.Errorf("%s stage failed: %v", stage, r))
}

// unavailable is the result recorded for a stage that could not run.
func unavailable(stage string, err error) models.AnalysisResult {
	return models.AnalysisResult{
		Summary:  fmt.Sprintf("%s unavailable", stage),
		Error:    err.Error(),
		Degraded: true,
		Raw:      map[string]interface{}{},
	}
}

func (d *Dispatcher) runInventory(ctx context.Context, req *request, acc *quoteAccumulator) {
	defer d.recoverStage(req, inventorycheck.TaskType, func(err error) {
		acc.record(func() { acc.inventory = unavailable(inventorycheck.TaskType, err) })
		acc.markDegraded(inventorycheck.TaskType)
	})
	d.stage(ctx, req, inventorycheck.TaskType, func(ctx context.Context) bool {
		out := d.deps.InventoryStage.Analyze(ctx, &inventorycheck.Input{
			BOM:      bomFor(req.rc, acc.quantity),
			Quantity: &acc.quantity,
		})
		acc.record(func() { acc.inventory = out.Result })
		if out.Result.Degraded {
			acc.markDegraded(inventorycheck.TaskType)
		}
		return out.Result.Degraded
	})
}

func (d *Dispatcher) runScheduling(ctx context.Context, req *request, acc *quoteAccumulator) {
	defer d.recoverStage(req, schedulingcheck.TaskType, func(err error) {
		acc.record(func() { acc.scheduling = unavailable(schedulingcheck.TaskType, err) })
		acc.markDegraded(schedulingcheck.TaskType)
	})
	d.stage(ctx, req, schedulingcheck.TaskType, func(ctx context.Context) bool {
		out := d.deps.SchedulingStage.Analyze(ctx, &schedulingcheck.Input{
			MachineType: req.rc.MachineType,
			LaborHours:  req.rc.LaborHours,
		})
		acc.record(func() {
			acc.scheduling = out.Result
			acc.leadTimeDays = out.LeadTimeDays
			acc.machineID = out.MachineID()
		})
		if out.Result.Degraded {
			acc.markDegraded(schedulingcheck.TaskType)
		}
		return out.Result.Degraded
	})
}

func (d *Dispatcher) runCosting(ctx context.Context, req *request, acc *quoteAccumulator) {
	defer d.recoverStage(req, costingcheck.TaskType, func(err error) {
		acc.record(func() { acc.costingErr = err })
	})
	d.stage(ctx, req, costingcheck.TaskType, func(ctx context.Context) bool {
		acc.mu.Lock()
		machineID := acc.machineID
		lead := acc.leadTimeDays
		acc.mu.Unlock()
		if req.rc.MachineID != nil {
			machineID = req.rc.MachineID
		}

		out, err := d.deps.CostingStage.Analyze(ctx, &costingcheck.Input{
			BOM:          bomFor(req.rc, acc.quantity),
			Quantity:     &acc.quantity,
			LaborHours:   req.rc.LaborHours,
			MachineID:    machineID,
			LeadTimeDays: lead,
		})
		if err != nil {
			acc.record(func() { acc.costingErr = err })
			return true
		}
		acc.record(func() {
			acc.costing = out.Result
			acc.options = out.Options
		})
		if out.Result.Degraded {
			acc.markDegraded(costingcheck.TaskType)
		}
		return out.Result.Degraded
	})
}
