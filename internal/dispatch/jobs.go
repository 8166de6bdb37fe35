// internal/dispatch/jobs.go
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mfg-orchestrator/internal/common/errors"
	"mfg-orchestrator/internal/models"

	"github.com/shopspring/decimal"
)

const (
	walkInCustomer     = "Walk-in Customer"
	rushOrder          = "Rush order"
	noPendingQuoteText = "I don't see a pending quote to accept. Please request a quote first, then tell me which option you'd like."
	whichOptionText    = "Which quote option would you like to accept?\n\n" +
		"- **Fastest** - Priority production\n" +
		"- **Cheapest** - Most economical\n" +
		"- **Balanced** - Best value (recommended)"
	jobNumberPrompt = "Which job do you mean? Please include the job number, for example 20260301-0001."
)

// ==========================
// Pending quotes
// ==========================

// acceptQuote turns the selected option of the pending quote into a job.
// Nothing is mutated unless the selection is valid, and the pending quote is
// consumed at most once.
func (d *Dispatcher) acceptQuote(ctx context.Context, req *request) (*models.ResponseEnvelope, error) {
	pending, err := d.deps.Conversation.Get(ctx, req.threadID)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		return envelope(models.KindClarification, noPendingQuoteText, map[string]interface{}{"error_code": string(errors.ErrCodeNoPendingQuote)}), nil
	}

	selection := strings.TrimSpace(req.rc.QuoteSelection)
	if selection == "" {
		return envelope(models.KindClarification, whichOptionText, map[string]interface{}{
			"options": []string{"fastest", "cheapest", "balanced"},
		}), nil
	}
	strategy, ok := models.ParseStrategy(selection)
	if !ok {
		return errorEnvelope(
			fmt.Sprintf("'%s' is not a valid option. Please choose 'fastest', 'cheapest', or 'balanced'.", selection),
			map[string]interface{}{"error": fmt.Sprintf("Invalid option: %s", selection), "error_code": string(errors.ErrCodeInvalidSelection)},
		), nil
	}

	consumed, err := d.deps.Conversation.Consume(ctx, req.threadID)
	if err != nil {
		return nil, err
	}
	if consumed == nil {
		return envelope(models.KindClarification, noPendingQuoteText, map[string]interface{}{"error_code": string(errors.ErrCodeNoPendingQuote)}), nil
	}
	option, _ := consumed.Options.Get(strategy)

	price := option.TotalPrice
	delivery := option.DeliveryDate
	job, err := d.deps.Repo.CreateJob(ctx, models.NewJob{
		CustomerName:          consumed.CustomerName,
		Description:           fmt.Sprintf("%s - %s option", consumed.ProductDescription, strings.ToUpper(string(strategy))),
		QuotedStrategy:        string(strategy),
		QuotedPrice:           &price,
		EstimatedDeliveryDate: &delivery,
	})
	if err != nil {
		return nil, err
	}
	d.index(ctx, req, job)

	text := fmt.Sprintf("**Quote Accepted!**\n\nJob **%s** has been created for %s.\n\n"+
		"- **Option:** %s\n- **Price:** $%s\n- **Estimated Delivery:** %s\n\n"+
		"The job is now in **%s** status.",
		job.JobNumber, consumed.CustomerName, titleCase(string(strategy)),
		formatMoney(price), delivery.Format("2006-01-02"), job.Status)

	return envelope(models.KindConfirmation, text, map[string]interface{}{
		"job_id":          job.ID,
		"job_number":      job.JobNumber,
		"selected_option": string(strategy),
		"price":           price.StringFixed(2),
		"delivery_date":   delivery.Format("2006-01-02"),
		"status":          string(job.Status),
	}), nil
}

func (d *Dispatcher) viewQuote(ctx context.Context, req *request) (*models.ResponseEnvelope, error) {
	pending, err := d.deps.Conversation.Get(ctx, req.threadID)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		return envelope(models.KindClarification,
			"There's no pending quote in this conversation. Ask me for a quote to get started.", nil), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Here's the pending quote for %s (%s):\n", pending.CustomerName, pending.ProductDescription)
	for _, opt := range pending.Options.All() {
		fmt.Fprintf(&b, "\n- **%s**: $%s, delivery %s (%d days)",
			titleCase(string(opt.Strategy)), formatMoney(opt.TotalPrice), opt.DeliveryDate.Format("2006-01-02"), opt.LeadTimeDays)
	}
	b.WriteString("\n\nTell me which option you'd like to accept.")

	return envelope(models.KindQuoteOptions, b.String(), map[string]interface{}{
		"customer_name":       pending.CustomerName,
		"product_description": pending.ProductDescription,
		"quantity":            pending.Quantity,
		"options":             pending.Options,
	}), nil
}

// ==========================
// Jobs
// ==========================

// createJob is Dynamic Entry: the job is scheduled immediately and held
// until a PO arrives.
func (d *Dispatcher) createJob(ctx context.Context, req *request) (*models.ResponseEnvelope, error) {
	customer := req.rc.CustomerName
	if customer == "" {
		customer = walkInCustomer
	}
	description := req.rc.ProductDescription
	if description == "" {
		description = rushOrder
	}
	priority := 0
	if req.rc.Priority != nil {
		priority = *req.rc.Priority
	}

	job, err := d.deps.Repo.CreateJob(ctx, models.NewJob{
		CustomerName:          customer,
		CustomerEmail:         req.rc.CustomerEmail,
		Description:           description,
		Status:                models.JobScheduled,
		Priority:              priority,
		FinancialHold:         true,
		FinancialHoldReason:   models.HoldReasonAwaitingPO,
		RequestedDeliveryDate: req.rc.RequestedDate,
	})
	if err != nil {
		return nil, err
	}
	d.index(ctx, req, job)

	text := fmt.Sprintf("Job %s has been created and scheduled. Production capacity is reserved. "+
		"The job is on financial hold pending PO confirmation. Please upload the PO to release the shipment.", job.JobNumber)
	return envelope(models.KindConfirmation, text, map[string]interface{}{
		"job_id":                job.ID,
		"job_number":            job.JobNumber,
		"status":                string(job.Status),
		"financial_hold":        job.FinancialHold,
		"financial_hold_reason": job.FinancialHoldReason,
	}), nil
}

func (d *Dispatcher) jobStatus(ctx context.Context, req *request) (*models.ResponseEnvelope, error) {
	jobs, err := d.deps.Repo.ActiveJobs(ctx, d.opts.JobListLimit)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return envelope(models.KindJobStatus, "No active jobs found.", map[string]interface{}{"jobs": []map[string]interface{}{}}), nil
	}
	return envelope(models.KindJobStatus,
		fmt.Sprintf("Here are your %d active job(s). Use the job number to get more details.", len(jobs)),
		map[string]interface{}{"jobs": jobRows(jobs)}), nil
}

func (d *Dispatcher) jobDetail(ctx context.Context, req *request) (*models.ResponseEnvelope, error) {
	if req.rc.JobNumber == "" {
		return envelope(models.KindClarification, jobNumberPrompt, nil), nil
	}
	job, err := d.deps.Repo.GetJobByNumber(ctx, req.rc.JobNumber)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Job %s**\n\n", job.JobNumber)
	fmt.Fprintf(&b, "- **Customer:** %s\n", job.CustomerName)
	fmt.Fprintf(&b, "- **Status:** %s\n", job.Status)
	fmt.Fprintf(&b, "- **Priority:** %d\n", job.Priority)
	if job.Description != "" {
		fmt.Fprintf(&b, "- **Description:** %s\n", job.Description)
	}
	if job.PONumber != "" {
		fmt.Fprintf(&b, "- **PO:** %s\n", job.PONumber)
	}
	if job.FinancialHold {
		fmt.Fprintf(&b, "- **Financial hold:** %s\n", job.FinancialHoldReason)
	}
	if job.QuotedPrice != nil {
		fmt.Fprintf(&b, "- **Quoted:** %s at $%s\n", titleCase(job.QuotedStrategy), formatMoney(*job.QuotedPrice))
	}
	if job.EstimatedDeliveryDate != nil {
		fmt.Fprintf(&b, "- **Estimated delivery:** %s\n", job.EstimatedDeliveryDate.Format("2006-01-02"))
	}

	return envelope(models.KindJobDetail, strings.TrimRight(b.String(), "\n"), map[string]interface{}{"job": job}), nil
}

// searchJobs prefers the search index and falls back to SQL when it is
// absent or failing.
func (d *Dispatcher) searchJobs(ctx context.Context, req *request) (*models.ResponseEnvelope, error) {
	query := req.rc.SearchQuery
	if query == "" {
		query = req.rc.CustomerName
	}
	if strings.TrimSpace(query) == "" {
		return envelope(models.KindClarification, "What should I search for? A customer, PO or part of the description works.", nil), nil
	}

	var (
		jobs   []models.Job
		err    error
		source = "database"
	)
	if d.deps.Search != nil {
		jobs, err = d.deps.Search.SearchJobs(ctx, query, d.opts.JobListLimit)
		if err == nil {
			source = "index"
		} else {
			req.log.Warn("job index search failed, using database", map[string]interface{}{"error": err.Error()})
		}
	}
	if source == "database" {
		jobs, err = d.deps.Repo.SearchJobs(ctx, query, d.opts.JobListLimit)
		if err != nil {
			return nil, err
		}
	}

	data := map[string]interface{}{"query": query, "source": source, "jobs": jobRows(jobs)}
	if len(jobs) == 0 {
		return envelope(models.KindJobList, fmt.Sprintf("No jobs match %q.", query), data), nil
	}
	return envelope(models.KindJobList, fmt.Sprintf("Found %d job(s) matching %q.", len(jobs), query), data), nil
}

func (d *Dispatcher) updateJob(ctx context.Context, req *request) (*models.ResponseEnvelope, error) {
	if req.rc.JobNumber == "" {
		return envelope(models.KindClarification, jobNumberPrompt, nil), nil
	}
	update := models.JobUpdate{
		Priority:              req.rc.Priority,
		RequestedDeliveryDate: req.rc.RequestedDate,
	}
	if req.rc.ProductDescription != "" {
		desc := req.rc.ProductDescription
		update.Description = &desc
	}
	if update.Priority == nil && update.RequestedDeliveryDate == nil && update.Description == nil {
		return envelope(models.KindClarification,
			fmt.Sprintf("What should I change on job %s? I can update the priority, requested date or description.", req.rc.JobNumber), nil), nil
	}

	job, err := d.deps.Repo.UpdateJob(ctx, req.rc.JobNumber, update)
	if err != nil {
		return nil, err
	}
	d.index(ctx, req, job)
	return envelope(models.KindConfirmation, fmt.Sprintf("Job %s has been updated.", job.JobNumber),
		map[string]interface{}{"job": job}), nil
}

var transitionTargets = map[models.Intent]models.JobStatus{
	models.IntentStartJob:    models.JobInProduction,
	models.IntentCompleteJob: models.JobCompleted,
	models.IntentCancelJob:   models.JobCancelled,
}

func (d *Dispatcher) transitionJob(ctx context.Context, req *request) (*models.ResponseEnvelope, error) {
	if req.rc.JobNumber == "" {
		return envelope(models.KindClarification, jobNumberPrompt, nil), nil
	}
	to, ok := transitionTargets[req.intent]
	if !ok {
		return nil, errors.NewInternalError(fmt.Errorf("no job status for intent %s", req.intent))
	}

	job, err := d.deps.Repo.TransitionJob(ctx, req.rc.JobNumber, to)
	if err != nil {
		return nil, err
	}
	d.index(ctx, req, job)

	var text string
	switch to {
	case models.JobInProduction:
		text = fmt.Sprintf("Job %s is now in production.", job.JobNumber)
	case models.JobCompleted:
		text = fmt.Sprintf("Job %s has been marked complete.", job.JobNumber)
	default:
		text = fmt.Sprintf("Job %s has been cancelled.", job.JobNumber)
	}
	data := map[string]interface{}{
		"job_number": job.JobNumber,
		"status":     string(job.Status),
	}
	if to == models.JobCompleted && req.rc.CustomerPhone != "" && d.deps.Notifier != nil {
		texted, err := d.deps.Notifier.JobReady(ctx, job, req.rc.CustomerPhone)
		if err != nil {
			req.log.Warn("job ready text failed", map[string]interface{}{"jobNumber": job.JobNumber, "error": err.Error()})
		}
		data["customer_notified"] = texted
		if texted {
			text += fmt.Sprintf(" %s has been notified by text.", job.CustomerName)
		}
	}
	return envelope(models.KindConfirmation, text, data), nil
}

func (d *Dispatcher) attachPO(ctx context.Context, req *request) (*models.ResponseEnvelope, error) {
	if req.rc.JobNumber == "" {
		return envelope(models.KindClarification, jobNumberPrompt, nil), nil
	}
	if req.rc.PONumber == "" {
		return envelope(models.KindClarification,
			fmt.Sprintf("What is the PO number for job %s?", req.rc.JobNumber), nil), nil
	}

	job, err := d.deps.Repo.AttachPO(ctx, req.rc.JobNumber, req.rc.PONumber)
	if err != nil {
		return nil, err
	}
	d.index(ctx, req, job)
	return envelope(models.KindConfirmation,
		fmt.Sprintf("PO %s is attached to job %s and the financial hold has been released.", job.PONumber, job.JobNumber),
		map[string]interface{}{
			"job_number":     job.JobNumber,
			"po_number":      job.PONumber,
			"status":         string(job.Status),
			"financial_hold": job.FinancialHold,
		}), nil
}

// index keeps the search index current. Failures only cost search freshness.
func (d *Dispatcher) index(ctx context.Context, req *request, job *models.Job) {
	if d.deps.Search == nil || job == nil {
		return
	}
	if err := d.deps.Search.IndexJob(ctx, *job); err != nil {
		req.log.Warn("failed to index job", map[string]interface{}{
			"jobNumber": job.JobNumber,
			"error":     err.Error(),
		})
	}
}

func jobRows(jobs []models.Job) []map[string]interface{} {
	rows := make([]map[string]interface{}, 0, len(jobs))
	for _, j := range jobs {
		rows = append(rows, map[string]interface{}{
			"job_number":     j.JobNumber,
			"customer":       j.CustomerName,
			"status":         string(j.Status),
			"financial_hold": j.FinancialHold,
			"created_at":     j.CreatedAt.Format(time.RFC3339),
		})
	}
	return rows
}

// formatMoney renders 1234.5 as 1,234.50.
func formatMoney(d decimal.Decimal) string {
	s := d.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i:]
	}
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String() + frac
	if neg {
		return "-" + out
	}
	return out
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
