// internal/dispatch/catalog.go
package dispatch

import (
	"context"
	"fmt"
	"strings"

	"mfg-orchestrator/internal/costing"
	"mfg-orchestrator/internal/models"

	"github.com/shopspring/decimal"
)

const scheduleWindowDays = 7

func (d *Dispatcher) customers(ctx context.Context, req *request) (*models.ResponseEnvelope, error) {
	if req.intent == models.IntentAddCustomer {
		name := strings.TrimSpace(req.rc.CustomerName)
		if name == "" {
			return envelope(models.KindClarification, "What is the customer's name?", nil), nil
		}
		c, err := d.deps.Repo.AddCustomer(ctx, name, req.rc.CustomerEmail, req.rc.CustomerPhone)
		if err != nil {
			return nil, err
		}
		return envelope(models.KindConfirmation, fmt.Sprintf("Customer %s has been added.", c.Name),
			map[string]interface{}{"customer": c}), nil
	}

	list, err := d.deps.Repo.ListCustomers(ctx, true)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return envelope(models.KindCustomerList, "No customers found.", map[string]interface{}{"customers": []models.Customer{}}), nil
	}
	lines := make([]string, 0, len(list))
	for _, c := range list {
		line := "- **" + c.Name + "**"
		if c.Email != "" {
			line += " " + c.Email
		}
		if c.Phone != "" {
			line += " " + c.Phone
		}
		lines = append(lines, line)
	}
	return envelope(models.KindCustomerList,
		fmt.Sprintf("You have %d active customer(s):\n\n%s", len(list), strings.Join(lines, "\n")),
		map[string]interface{}{"customers": list}), nil
}

func (d *Dispatcher) machines(ctx context.Context, req *request) (*models.ResponseEnvelope, error) {
	if req.intent == models.IntentAddMachine {
		if req.rc.MachineName == "" || req.rc.MachineType == "" {
			return envelope(models.KindClarification,
				"Please give me the machine's name and type, for example \"add machine Lathe-2, type lathe, $85/hr\".", nil), nil
		}
		rate := costing.DefaultLaborRate
		if req.rc.HourlyRate != nil && *req.rc.HourlyRate > 0 {
			rate = decimal.NewFromFloat(*req.rc.HourlyRate).Round(2)
		}
		m, err := d.deps.Repo.AddMachine(ctx, models.Machine{
			Name:        req.rc.MachineName,
			MachineType: strings.ToLower(req.rc.MachineType),
			HourlyRate:  rate,
			Status:      models.MachineStatusOperational,
		})
		if err != nil {
			return nil, err
		}
		return envelope(models.KindConfirmation,
			fmt.Sprintf("Machine %s (%s) has been added at $%s/hr.", m.Name, m.MachineType, m.HourlyRate.StringFixed(2)),
			map[string]interface{}{"machine": m}), nil
	}

	list, err := d.deps.Repo.ListMachines(ctx)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return envelope(models.KindMachineList, "No machines are registered.", map[string]interface{}{"machines": []models.Machine{}}), nil
	}
	lines := make([]string, 0, len(list))
	for _, m := range list {
		lines = append(lines, fmt.Sprintf("- **%s** (%s): $%s/hr, %s", m.Name, m.MachineType, m.HourlyRate.StringFixed(2), m.Status))
	}
	return envelope(models.KindMachineList,
		fmt.Sprintf("%d machine(s):\n\n%s", len(list), strings.Join(lines, "\n")),
		map[string]interface{}{"machines": list}), nil
}

func (d *Dispatcher) scheduleView(ctx context.Context, req *request) (*models.ResponseEnvelope, error) {
	from := d.now()
	to := from.AddDate(0, 0, scheduleWindowDays)
	schedules, err := d.deps.Schedule.Schedules(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return envelope(models.KindScheduleView, "Here's the current production schedule across all machines.",
		map[string]interface{}{
			"from":     from,
			"to":       to,
			"machines": schedules,
		}), nil
}
