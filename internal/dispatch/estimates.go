// internal/dispatch/estimates.go
package dispatch

import (
	"context"
	"fmt"
	"strings"

	"mfg-orchestrator/internal/common/errors"
	"mfg-orchestrator/internal/models"
)

const (
	estimateListLimit   = 20
	whichEstimateText   = "Which estimate do you mean? Please include the estimate number, for example EST-2026-0001."
	defaultRejectReason = "Rejected by user"
)

func (d *Dispatcher) estimateRead(ctx context.Context, req *request) (*models.ResponseEnvelope, error) {
	if req.intent == models.IntentViewEstimate {
		if req.rc.EstimateNumber == "" {
			return envelope(models.KindClarification, whichEstimateText, nil), nil
		}
		est, err := d.deps.Repo.GetEstimate(ctx, req.rc.EstimateNumber)
		if err != nil {
			return nil, err
		}
		return envelope(models.KindEstimateDetail, estimateText(est), map[string]interface{}{"estimate": est}), nil
	}

	list, err := d.deps.Repo.ListEstimates(ctx, estimateListLimit)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return envelope(models.KindEstimateList, "No estimates found.", map[string]interface{}{"estimates": []models.Estimate{}}), nil
	}
	lines := make([]string, 0, len(list))
	for _, e := range list {
		lines = append(lines, fmt.Sprintf("- **%s** v%d for %s: %s %s (%s)",
			e.EstimateNumber, e.Version, e.CustomerName, formatMoney(e.TotalAmount), e.CurrencyCode, e.Status))
	}
	return envelope(models.KindEstimateList,
		fmt.Sprintf("%d estimate(s):\n\n%s", len(list), strings.Join(lines, "\n")),
		map[string]interface{}{"estimates": list}), nil
}

var estimateTargets = map[models.Intent]models.EstimateStatus{
	models.IntentApproveEstimate: models.EstimateApproved,
	models.IntentRejectEstimate:  models.EstimateRejected,
	models.IntentAcceptEstimate:  models.EstimateAccepted,
}

func (d *Dispatcher) estimateStatus(ctx context.Context, req *request) (*models.ResponseEnvelope, error) {
	if req.rc.EstimateNumber == "" {
		return envelope(models.KindClarification, whichEstimateText, nil), nil
	}
	to, ok := estimateTargets[req.intent]
	if !ok {
		return nil, errors.NewInternalError(fmt.Errorf("no estimate status for intent %s", req.intent))
	}
	reason := ""
	if to == models.EstimateRejected {
		reason = req.rc.RejectionReason
		if reason == "" {
			reason = defaultRejectReason
		}
	}

	est, err := d.deps.Repo.TransitionEstimate(ctx, req.rc.EstimateNumber, to, reason)
	if err != nil {
		return nil, err
	}
	text := fmt.Sprintf("Estimate %s is now %s.", est.EstimateNumber, est.Status)
	if to == models.EstimateRejected {
		text = fmt.Sprintf("Estimate %s has been rejected: %s.", est.EstimateNumber, reason)
	}
	return envelope(models.KindConfirmation, text, map[string]interface{}{
		"estimate_number": est.EstimateNumber,
		"status":          string(est.Status),
	}), nil
}

// sendEstimate emails an approved estimate and marks it sent. The status only
// changes after the email went out, or when email is not configured.
func (d *Dispatcher) sendEstimate(ctx context.Context, req *request) (*models.ResponseEnvelope, error) {
	if req.rc.EstimateNumber == "" {
		return envelope(models.KindClarification, whichEstimateText, nil), nil
	}
	est, err := d.deps.Repo.GetEstimate(ctx, req.rc.EstimateNumber)
	if err != nil {
		return nil, err
	}
	if !est.Status.CanTransition(models.EstimateSent) {
		return nil, errors.NewInvalidEstimateTransitionError(est.EstimateNumber, string(est.Status), string(models.EstimateSent))
	}

	emailed := false
	if d.deps.Notifier != nil {
		emailed, err = d.deps.Notifier.SendEstimate(ctx, est)
		if err != nil {
			return nil, err
		}
	}

	sent, err := d.deps.Repo.TransitionEstimate(ctx, est.EstimateNumber, models.EstimateSent, "")
	if err != nil {
		return nil, err
	}

	text := fmt.Sprintf("Estimate %s has been emailed to %s and marked as sent.", sent.EstimateNumber, est.CustomerEmail)
	if !emailed {
		text = fmt.Sprintf("Estimate %s is marked as sent. Email delivery is not configured, so please forward it to %s yourself.",
			sent.EstimateNumber, est.CustomerName)
	}
	return envelope(models.KindConfirmation, text, map[string]interface{}{
		"estimate_number": sent.EstimateNumber,
		"status":          string(sent.Status),
		"emailed":         emailed,
	}), nil
}

func estimateText(e *models.Estimate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Estimate %s** (version %d)\n\n", e.EstimateNumber, e.Version)
	fmt.Fprintf(&b, "- **Customer:** %s\n", e.CustomerName)
	fmt.Fprintf(&b, "- **Status:** %s\n", e.Status)
	fmt.Fprintf(&b, "- **Total:** %s %s\n", formatMoney(e.TotalAmount), e.CurrencyCode)
	if e.ValidUntil != nil {
		fmt.Fprintf(&b, "- **Valid until:** %s\n", e.ValidUntil.Format("2006-01-02"))
	}
	if !e.DeliveryFeasible {
		b.WriteString("- The requested delivery date cannot be met.\n")
	}
	if e.RejectionReason != "" {
		fmt.Fprintf(&b, "- **Rejection reason:** %s\n", e.RejectionReason)
	}
	return strings.TrimRight(b.String(), "\n")
}
