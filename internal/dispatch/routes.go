// internal/dispatch/routes.go
package dispatch

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"mfg-orchestrator/internal/models"
)

type handlerFunc func(ctx context.Context, req *request) (*models.ResponseEnvelope, error)

type route struct {
	name   string
	handle handlerFunc
}

func (d *Dispatcher) routeTable() map[models.Intent]route {
	r := func(name string, h handlerFunc) route { return route{name: name, handle: h} }

	createJob := r("create_job", d.createJob)
	jobTransition := r("job_transition", d.transitionJob)
	customers := r("customers", d.customers)
	machines := r("machines", d.machines)
	estimates := r("estimates", d.estimateRead)
	estimateStatus := r("estimate_status", d.estimateStatus)
	analytics := r("analytics", d.analytics)
	direct := r("direct_response", d.directResponse)

	return map[models.Intent]route{
		models.IntentQuoteRequest:    r("quoting_chain", d.quote),
		models.IntentAcceptQuote:     r("accept_quote", d.acceptQuote),
		models.IntentViewQuote:       r("view_pending_quote", d.viewQuote),
		models.IntentCreateJob:       createJob,
		models.IntentScheduleRequest: createJob,
		models.IntentListJobs:        r("job_status", d.jobStatus),
		models.IntentGetJobDetails:   r("job_detail", d.jobDetail),
		models.IntentSearchJobs:      r("search_jobs", d.searchJobs),
		models.IntentUpdateJob:       r("update_job", d.updateJob),
		models.IntentStartJob:        jobTransition,
		models.IntentCompleteJob:     jobTransition,
		models.IntentCancelJob:       jobTransition,
		models.IntentAttachPO:        r("attach_po", d.attachPO),

		models.IntentListInventory:    r("list_inventory", d.listInventory),
		models.IntentInventoryQuery:   r("inventory_query", d.inventoryQuery),
		models.IntentAdjustInventory:  r("adjust_inventory", d.adjustInventory),
		models.IntentReorderInventory: r("reorder_inventory", d.reorderInventory),

		models.IntentAddCustomer:   customers,
		models.IntentListCustomers: customers,
		models.IntentAddMachine:    machines,
		models.IntentListMachines:  machines,
		models.IntentScheduleView:  r("schedule_view", d.scheduleView),

		models.IntentListEstimates:   estimates,
		models.IntentViewEstimate:    estimates,
		models.IntentApproveEstimate: estimateStatus,
		models.IntentRejectEstimate:  estimateStatus,
		models.IntentAcceptEstimate:  estimateStatus,
		models.IntentSendEstimate:    r("send_estimate", d.sendEstimate),

		models.IntentAnalyticsSummary:     analytics,
		models.IntentAnalyticsRevenue:     analytics,
		models.IntentAnalyticsUtilization: analytics,

		models.IntentHelp:         direct,
		models.IntentGeneralQuery: direct,
	}
}

// validateRoutes fails unless every intent has a handler.
func validateRoutes(routes map[models.Intent]route) error {
	var missing []string
	for _, intent := range models.AllIntents() {
		if rt, ok := routes[intent]; !ok || rt.handle == nil {
			missing = append(missing, string(intent))
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: %s", ErrIncompleteRoutes, strings.Join(missing, ", "))
	}
	return nil
}

// RouteName reports which handler an intent is dispatched to.
func (d *Dispatcher) RouteName(intent models.Intent) string {
	return d.routes[intent].name
}
