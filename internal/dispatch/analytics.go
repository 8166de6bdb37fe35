// internal/dispatch/analytics.go
package dispatch

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"mfg-orchestrator/internal/models"
	"mfg-orchestrator/internal/scheduling"

	"github.com/shopspring/decimal"
)

// analytics answers the three analytics intents from one snapshot builder.
func (d *Dispatcher) analytics(ctx context.Context, req *request) (*models.ResponseEnvelope, error) {
	data := map[string]interface{}{}
	var lines []string

	wantCounts := req.intent != models.IntentAnalyticsUtilization
	wantRevenue := req.intent != models.IntentAnalyticsUtilization
	wantUtilization := req.intent != models.IntentAnalyticsRevenue

	if wantCounts {
		counts, err := d.deps.Repo.JobCountsByStatus(ctx)
		if err != nil {
			return nil, err
		}
		active := 0
		statuses := make([]string, 0, len(counts))
		byStatus := make(map[string]int, len(counts))
		for status, n := range counts {
			if status.Active() {
				active += n
			}
			statuses = append(statuses, string(status))
			byStatus[string(status)] = n
		}
		sort.Strings(statuses)
		parts := make([]string, 0, len(statuses))
		for _, s := range statuses {
			parts = append(parts, fmt.Sprintf("%s %d", s, byStatus[s]))
		}
		data["active_jobs"] = active
		data["jobs_by_status"] = byStatus
		lines = append(lines, fmt.Sprintf("- **Active jobs:** %d", active))
		if len(parts) > 0 {
			lines = append(lines, "- **Jobs by status:** "+strings.Join(parts, ", "))
		}
	}

	if wantRevenue {
		revenue, err := d.deps.Repo.QuotedRevenue(ctx)
		if err != nil {
			return nil, err
		}
		data["quoted_revenue"] = revenue.StringFixed(2)
		lines = append(lines, fmt.Sprintf("- **Quoted revenue:** $%s", formatMoney(revenue)))
	}

	if wantUtilization {
		from := d.now()
		to := from.AddDate(0, 0, scheduleWindowDays)
		schedules, err := d.deps.Schedule.Schedules(ctx, from, to)
		if err != nil {
			return nil, err
		}
		pct := decimal.NewFromFloat(scheduling.Utilization(schedules, from, to) * 100).Round(1)
		data["utilization_percent"] = pct.InexactFloat64()
		data["machines"] = len(schedules)
		lines = append(lines, fmt.Sprintf("- **Machine utilization (next %d days):** %s%% across %d machine(s)",
			scheduleWindowDays, pct.StringFixed(1), len(schedules)))
	}

	title := "**Operations summary**"
	switch req.intent {
	case models.IntentAnalyticsRevenue:
		title = "**Revenue**"
	case models.IntentAnalyticsUtilization:
		title = "**Machine utilization**"
	}
	return envelope(models.KindAnalytics, title+"\n\n"+strings.Join(lines, "\n"), data), nil
}
