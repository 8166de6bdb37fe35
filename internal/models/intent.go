// internal/models/intent.go
package models

import "strings"

// Intent is the classified purpose of one user message.
type Intent string

const (
	IntentQuoteRequest    Intent = "QUOTE_REQUEST"
	IntentAcceptQuote     Intent = "ACCEPT_QUOTE"
	IntentViewQuote       Intent = "VIEW_QUOTE"
	IntentCreateJob       Intent = "CREATE_JOB"
	IntentScheduleRequest Intent = "SCHEDULE_REQUEST"
	IntentListJobs        Intent = "LIST_JOBS"
	IntentGetJobDetails   Intent = "GET_JOB_DETAILS"
	IntentSearchJobs      Intent = "SEARCH_JOBS"
	IntentUpdateJob       Intent = "UPDATE_JOB"
	IntentStartJob        Intent = "START_JOB"
	IntentCompleteJob     Intent = "COMPLETE_JOB"
	IntentCancelJob       Intent = "CANCEL_JOB"
	IntentAttachPO        Intent = "ATTACH_PO"

	IntentListInventory    Intent = "LIST_INVENTORY"
	IntentInventoryQuery   Intent = "INVENTORY_QUERY"
	IntentAdjustInventory  Intent = "ADJUST_INVENTORY"
	IntentReorderInventory Intent = "REORDER_INVENTORY"

	IntentAddCustomer   Intent = "ADD_CUSTOMER"
	IntentListCustomers Intent = "LIST_CUSTOMERS"
	IntentAddMachine    Intent = "ADD_MACHINE"
	IntentListMachines  Intent = "LIST_MACHINES"
	IntentScheduleView  Intent = "SCHEDULE_VIEW"

	IntentListEstimates   Intent = "LIST_ESTIMATES"
	IntentViewEstimate    Intent = "VIEW_ESTIMATE"
	IntentApproveEstimate Intent = "APPROVE_ESTIMATE"
	IntentRejectEstimate  Intent = "REJECT_ESTIMATE"
	IntentSendEstimate    Intent = "SEND_ESTIMATE"
	IntentAcceptEstimate  Intent = "ACCEPT_ESTIMATE"

	IntentAnalyticsSummary     Intent = "ANALYTICS_SUMMARY"
	IntentAnalyticsRevenue     Intent = "ANALYTICS_REVENUE"
	IntentAnalyticsUtilization Intent = "ANALYTICS_UTILIZATION"

	IntentHelp         Intent = "HELP"
	IntentGeneralQuery Intent = "GENERAL_QUERY"
)

var allIntents = []Intent{
	IntentQuoteRequest, IntentAcceptQuote, IntentViewQuote,
	IntentCreateJob, IntentScheduleRequest, IntentListJobs, IntentGetJobDetails,
	IntentSearchJobs, IntentUpdateJob, IntentStartJob, IntentCompleteJob,
	IntentCancelJob, IntentAttachPO,
	IntentListInventory, IntentInventoryQuery, IntentAdjustInventory, IntentReorderInventory,
	IntentAddCustomer, IntentListCustomers, IntentAddMachine, IntentListMachines,
	IntentScheduleView,
	IntentListEstimates, IntentViewEstimate, IntentApproveEstimate, IntentRejectEstimate,
	IntentSendEstimate, IntentAcceptEstimate,
	IntentAnalyticsSummary, IntentAnalyticsRevenue, IntentAnalyticsUtilization,
	IntentHelp, IntentGeneralQuery,
}

// AllIntents returns a copy of the closed intent set.
func AllIntents() []Intent {
	out := make([]Intent, len(allIntents))
	copy(out, allIntents)
	return out
}

// ParseIntent normalizes a raw classifier label. Unknown labels report false.
// JOB_STATUS is accepted as the legacy name for LIST_JOBS.
func ParseIntent(raw string) (Intent, bool) {
	label := strings.ToUpper(strings.TrimSpace(raw))
	label = strings.ReplaceAll(label, " ", "_")
	if label == "JOB_STATUS" {
		return IntentListJobs, true
	}
	for _, intent := range allIntents {
		if string(intent) == label {
			return intent, true
		}
	}
	return "", false
}
