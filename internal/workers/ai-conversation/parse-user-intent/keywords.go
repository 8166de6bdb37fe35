// internal/workers/ai-conversation/parse-user-intent/keywords.go
package parseuserintent

import (
	"regexp"
	"strconv"
	"strings"

	"mfg-orchestrator/internal/models"
)

var (
	jobNumberPattern      = regexp.MustCompile(`\b\d{8}-\d{4}\b`)
	poNumberPattern       = regexp.MustCompile(`(?i)\bPO[-#]?\d+\b`)
	estimateNumberPattern = regexp.MustCompile(`(?i)\bEST-[0-9-]+\b`)
	emailPattern          = regexp.MustCompile(`[\w.+-]+@[\w-]+\.[\w.-]+`)
	phonePattern          = regexp.MustCompile(`(?i)\b(?:phone|tel|cell|mobile)[:\s#]*(\+?\d[\d\s().-]{7,}\d)`)
	quantityPattern       = regexp.MustCompile(`(?i)\b(\d+)\s*(?:units?|pcs|pieces|parts|items|ea)\b`)
	quantityPrefixPattern = regexp.MustCompile(`(?i)\b(?:qty|quantity)[:\s]*(\d+)\b`)
	adjustPattern         = regexp.MustCompile(`(?i)\b(add|receive|received|remove|use|used|consume|consumed)\s+(\d+)\b`)
	skuPattern            = regexp.MustCompile(`(?i)\bsku[:\s#]*([A-Z0-9][A-Z0-9-]*)\b`)
	priorityPattern       = regexp.MustCompile(`(?i)\bpriority\s*(?:to\s*)?(\d{1,2})\b`)
	hoursPattern          = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(?:hours?|hrs?)\b`)
	ratePattern           = regexp.MustCompile(`(?i)\$?(\d+(?:\.\d+)?)\s*(?:/\s*h(?:ou)?r|per hour)`)
	customerPattern       = regexp.MustCompile(`\bfor\s+([A-Z][\w&.'-]*(?:\s+(?:[A-Z][\w&.'-]*|&))*)`)
	reasonPattern         = regexp.MustCompile(`(?i)\b(?:because|reason:?)\s+(.+)$`)
	searchPattern         = regexp.MustCompile(`(?i)\b(?:search|find|look up|lookup)\s+(?:for\s+)?(?:jobs?\s+)?(?:for\s+|about\s+|matching\s+)?(.+)$`)
	itemOfPattern         = regexp.MustCompile(`(?i)\b(?:of|have|much|many)\s+([a-z][\w\s-]*?)(?:\s+(?:do|in|left|on hand|available)\b|[?.!]|$)`)
	machineNamePattern    = regexp.MustCompile(`(?i)\bmachine\s+(?:called\s+|named\s+)?([A-Z][\w-]*)`)
)

var machineTypes = []string{"cnc", "lathe", "mill", "laser", "press", "welder", "printer", "grinder"}

var materialTypes = []string{"aluminum", "aluminium", "steel", "stainless", "brass", "copper", "titanium", "plastic", "abs", "nylon"}

type keywordRule struct {
	intent models.Intent
	match  func(lower string, ctx *models.RequestContext) bool
}

// KeywordClassifier is the deterministic classifier used when the model is
// unavailable or returns something unusable. Rules are evaluated in order.
type KeywordClassifier struct {
	rules []keywordRule
}

func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{rules: []keywordRule{
		{models.IntentApproveEstimate, func(l string, c *models.RequestContext) bool {
			return mentionsEstimate(l, c) && containsAny(l, "approve")
		}},
		{models.IntentRejectEstimate, func(l string, c *models.RequestContext) bool {
			return mentionsEstimate(l, c) && containsAny(l, "reject", "decline")
		}},
		{models.IntentSendEstimate, func(l string, c *models.RequestContext) bool {
			return mentionsEstimate(l, c) && containsAny(l, "send", "email")
		}},
		{models.IntentAcceptEstimate, func(l string, c *models.RequestContext) bool {
			return mentionsEstimate(l, c) && containsAny(l, "accept")
		}},
		{models.IntentViewEstimate, func(l string, c *models.RequestContext) bool {
			return c.EstimateNumber != ""
		}},
		{models.IntentListEstimates, func(l string, c *models.RequestContext) bool {
			return containsAny(l, "estimates", "estimate")
		}},
		{models.IntentAcceptQuote, func(l string, c *models.RequestContext) bool {
			return containsAny(l, "accept", "go with", "choose", "select", "i'll take", "take the") &&
				containsAny(l, "fastest", "cheapest", "balanced", "option", "quote")
		}},
		{models.IntentHelp, func(l string, c *models.RequestContext) bool {
			return strings.HasPrefix(strings.TrimSpace(l), "help") || containsAny(l, "what can you do", "how do i use")
		}},
		{models.IntentStartJob, func(l string, c *models.RequestContext) bool {
			return containsAny(l, "start production", "begin production") ||
				(c.JobNumber != "" && containsAny(l, "start", "begin", "kick off"))
		}},
		{models.IntentCompleteJob, func(l string, c *models.RequestContext) bool {
			return c.JobNumber != "" && containsAny(l, "complete", "finish", "done", "mark as shipped")
		}},
		{models.IntentCancelJob, func(l string, c *models.RequestContext) bool {
			return c.JobNumber != "" && containsAny(l, "cancel", "abort")
		}},
		{models.IntentAttachPO, func(l string, c *models.RequestContext) bool {
			return c.PONumber != "" || containsAny(l, "purchase order")
		}},
		{models.IntentUpdateJob, func(l string, c *models.RequestContext) bool {
			return c.JobNumber != "" && containsAny(l, "update", "change", "reschedule", "priority", "move")
		}},
		{models.IntentViewQuote, func(l string, c *models.RequestContext) bool {
			return containsAny(l, "pending quote", "last quote", "show quote", "view quote", "show the quote", "my quote")
		}},
		{models.IntentQuoteRequest, func(l string, c *models.RequestContext) bool {
			return containsAny(l, "quote", "price", "cost", "how much") && !containsAny(l, "in stock", "stock of", "inventory")
		}},
		{models.IntentScheduleView, func(l string, c *models.RequestContext) bool {
			return containsAny(l, "production schedule", "show schedule", "view schedule", "show the schedule", "shop schedule")
		}},
		{models.IntentCreateJob, func(l string, c *models.RequestContext) bool {
			return containsAny(l, "create job", "create a job", "new job", "rush order", "open a job")
		}},
		{models.IntentScheduleRequest, func(l string, c *models.RequestContext) bool {
			return containsAny(l, "schedule", "reserve", "book")
		}},
		{models.IntentSearchJobs, func(l string, c *models.RequestContext) bool {
			return c.SearchQuery != "" && c.JobNumber == "" && containsAny(l, "job", "order")
		}},
		{models.IntentGetJobDetails, func(l string, c *models.RequestContext) bool {
			return c.JobNumber != ""
		}},
		{models.IntentListJobs, func(l string, c *models.RequestContext) bool {
			return containsAny(l, "status", "where is", "job")
		}},
		{models.IntentAddCustomer, func(l string, c *models.RequestContext) bool {
			return containsAny(l, "add customer", "add a customer", "new customer", "create customer")
		}},
		{models.IntentListCustomers, func(l string, c *models.RequestContext) bool {
			return containsAny(l, "customers", "customer list")
		}},
		{models.IntentAddMachine, func(l string, c *models.RequestContext) bool {
			return containsAny(l, "add machine", "add a machine", "new machine", "register machine")
		}},
		{models.IntentListMachines, func(l string, c *models.RequestContext) bool {
			return containsAny(l, "machines", "equipment", "machine list")
		}},
		{models.IntentReorderInventory, func(l string, c *models.RequestContext) bool {
			return containsAny(l, "reorder", "low stock", "running low", "need to order")
		}},
		{models.IntentAdjustInventory, func(l string, c *models.RequestContext) bool {
			return c.AdjustQuantity != nil || containsAny(l, "adjust")
		}},
		{models.IntentListInventory, func(l string, c *models.RequestContext) bool {
			return containsAny(l, "show inventory", "list inventory", "all items", "what materials", "list materials", "show materials")
		}},
		{models.IntentInventoryQuery, func(l string, c *models.RequestContext) bool {
			return containsAny(l, "inventory", "stock", "do we have", "on hand")
		}},
		{models.IntentAnalyticsRevenue, func(l string, c *models.RequestContext) bool {
			return containsAny(l, "revenue", "sales", "bookings")
		}},
		{models.IntentAnalyticsUtilization, func(l string, c *models.RequestContext) bool {
			return containsAny(l, "utilization", "utilisation", "capacity", "how busy")
		}},
		{models.IntentAnalyticsSummary, func(l string, c *models.RequestContext) bool {
			return containsAny(l, "analytics", "summary", "dashboard", "report", "kpi")
		}},
	}}
}

// Classify extracts what it can from the message and picks the first
// matching rule. Nothing matched means GENERAL_QUERY.
func (k *KeywordClassifier) Classify(message string) models.Classification {
	lower := strings.ToLower(message)
	ctx := extractContext(message)

	intent := models.IntentGeneralQuery
	for _, rule := range k.rules {
		if rule.match(lower, &ctx) {
			intent = rule.intent
			break
		}
	}

	confidence := 0.5
	if intent == models.IntentGeneralQuery {
		confidence = 0.2
	}
	return models.Classification{
		Intent:     intent,
		Context:    ctx,
		Confidence: confidence,
		Source:     SourceKeyword,
	}
}

func extractContext(message string) models.RequestContext {
	lower := strings.ToLower(message)
	var ctx models.RequestContext

	ctx.JobNumber = jobNumberPattern.FindString(message)
	if po := poNumberPattern.FindString(message); po != "" {
		ctx.PONumber = strings.ToUpper(po)
	}
	if est := estimateNumberPattern.FindString(message); est != "" {
		ctx.EstimateNumber = strings.ToUpper(strings.TrimRight(est, "-"))
	}
	ctx.CustomerEmail = emailPattern.FindString(message)
	if m := phonePattern.FindStringSubmatch(message); m != nil {
		ctx.CustomerPhone = strings.TrimSpace(m[1])
	}

	if m := quantityPattern.FindStringSubmatch(message); m != nil {
		ctx.Quantity = atoiPtr(m[1])
	} else if m := quantityPrefixPattern.FindStringSubmatch(message); m != nil {
		ctx.Quantity = atoiPtr(m[1])
	}

	if m := adjustPattern.FindStringSubmatch(message); m != nil && containsAny(lower, "stock", "inventory", "units", "pcs", "sku") {
		if n := atoiPtr(m[2]); n != nil {
			delta := *n
			switch strings.ToLower(m[1]) {
			case "remove", "use", "used", "consume", "consumed":
				delta = -delta
			}
			ctx.AdjustQuantity = &delta
		}
	}

	if m := skuPattern.FindStringSubmatch(message); m != nil {
		ctx.ItemSKU = strings.ToUpper(m[1])
	}
	if m := priorityPattern.FindStringSubmatch(message); m != nil {
		ctx.Priority = atoiPtr(m[1])
	}
	if m := hoursPattern.FindStringSubmatch(message); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			ctx.LaborHours = &v
		}
	}
	if m := ratePattern.FindStringSubmatch(message); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			ctx.HourlyRate = &v
		}
	}
	if m := customerPattern.FindStringSubmatch(message); m != nil {
		ctx.CustomerName = strings.TrimRight(m[1], ".,!?")
	}
	if m := reasonPattern.FindStringSubmatch(message); m != nil {
		ctx.RejectionReason = strings.TrimSpace(m[1])
	}
	if m := searchPattern.FindStringSubmatch(message); m != nil {
		ctx.SearchQuery = strings.TrimRight(strings.TrimSpace(m[1]), "?.!")
	}
	if m := machineNamePattern.FindStringSubmatch(message); m != nil {
		ctx.MachineName = m[1]
	}

	for _, s := range models.Strategies() {
		if strings.Contains(lower, string(s)) {
			ctx.QuoteSelection = string(s)
			break
		}
	}
	for _, mt := range machineTypes {
		if containsWord(lower, mt) {
			ctx.MachineType = mt
			break
		}
	}
	for _, mat := range materialTypes {
		if containsWord(lower, mat) {
			ctx.MaterialType = mat
			break
		}
	}
	if ctx.ItemSKU == "" && containsAny(lower, "stock", "inventory", "do we have", "on hand") {
		if m := itemOfPattern.FindStringSubmatch(message); m != nil {
			name := strings.TrimSpace(m[1])
			if name != "" && !containsAny(name, "inventory", "stock") {
				ctx.ItemName = name
			}
		}
	}
	if ctx.ItemName == "" && ctx.ItemSKU == "" && ctx.MaterialType != "" {
		ctx.ItemName = ctx.MaterialType
	}

	return ctx
}

func mentionsEstimate(lower string, ctx *models.RequestContext) bool {
	return ctx.EstimateNumber != "" || strings.Contains(lower, "estimate")
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

var wordPatterns = func() map[string]*regexp.Regexp {
	out := make(map[string]*regexp.Regexp)
	for _, w := range append(append([]string{}, machineTypes...), materialTypes...) {
		out[w] = regexp.MustCompile(`\b` + regexp.QuoteMeta(w) + `\b`)
	}
	return out
}()

func containsWord(s, word string) bool {
	if re, ok := wordPatterns[word]; ok {
		return re.MatchString(s)
	}
	return strings.Contains(s, word)
}

func atoiPtr(s string) *int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}
