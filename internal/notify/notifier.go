// internal/notify/notifier.go
package notify

import (
	"context"
	"fmt"
	"strings"

	awsutil "mfg-orchestrator/internal/common/aws"
	"mfg-orchestrator/internal/common/errors"
	"mfg-orchestrator/internal/common/logger"
	"mfg-orchestrator/internal/models"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

type EmailSender interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SMSPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Notifier sends estimate emails and job-ready text messages. Either
// channel may be nil, in which case the send is skipped and logged.
type Notifier struct {
	email     EmailSender
	sms       SMSPublisher
	fromEmail string
	company   string
	logger    logger.Logger
}

func NewNotifier(email EmailSender, sms SMSPublisher, fromEmail, company string, log logger.Logger) *Notifier {
	return &Notifier{
		email:     email,
		sms:       sms,
		fromEmail: fromEmail,
		company:   company,
		logger:    log.With(map[string]interface{}{"component": "notifier"}),
	}
}

// EmailEnabled reports whether estimate emails can be delivered.
func (n *Notifier) EmailEnabled() bool { return n != nil && n.email != nil }

// SendEstimate emails an estimate to its customer. It returns true when a
// message was handed to SES.
func (n *Notifier) SendEstimate(ctx context.Context, est *models.Estimate) (bool, error) {
	if !n.EmailEnabled() {
		n.logger.Info("email disabled, estimate not sent", map[string]interface{}{
			"estimateNumber": est.EstimateNumber,
		})
		return false, nil
	}
	if strings.TrimSpace(est.CustomerEmail) == "" {
		return false, errors.NewMissingFieldError("customer_email")
	}

	subject := fmt.Sprintf("Estimate %s from %s", est.EstimateNumber, n.company)
	input := awsutil.TextEmail(n.fromEmail, est.CustomerEmail, subject, estimateBody(est, n.company))

	out, err := n.email.SendEmail(ctx, input)
	if err != nil {
		return false, errors.NewNotificationSendFailedError("email", err)
	}

	fields := map[string]interface{}{"estimateNumber": est.EstimateNumber}
	if out != nil && out.MessageId != nil {
		fields["messageId"] = *out.MessageId
	}
	n.logger.Info("estimate email sent", fields)
	return true, nil
}

// JobReady texts the customer that a job has completed. A missing phone
// number is not an error.
func (n *Notifier) JobReady(ctx context.Context, job *models.Job, phone string) (bool, error) {
	if n == nil || n.sms == nil || strings.TrimSpace(phone) == "" {
		return false, nil
	}

	msg := fmt.Sprintf("%s: job %s for %s is complete and ready for pickup.", n.company, job.JobNumber, job.CustomerName)
	if _, err := n.sms.Publish(ctx, awsutil.TransactionalSMS(phone, msg)); err != nil {
		return false, errors.NewNotificationSendFailedError("sms", err)
	}
	n.logger.Info("job ready sms sent", map[string]interface{}{"jobNumber": job.JobNumber})
	return true, nil
}

func estimateBody(est *models.Estimate, company string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", est.CustomerName)
	fmt.Fprintf(&b, "Please find estimate %s (version %d) below.\n\n", est.EstimateNumber, est.Version)
	fmt.Fprintf(&b, "Total: %s %s\n", est.TotalAmount.StringFixed(2), est.CurrencyCode)
	if est.ValidUntil != nil {
		fmt.Fprintf(&b, "Valid until: %s\n", est.ValidUntil.Format("2006-01-02"))
	}
	if !est.DeliveryFeasible {
		b.WriteString("\nNote: the requested delivery date may not be achievable with current stock.\n")
	}
	fmt.Fprintf(&b, "\nReply to this email to accept.\n\n%s\n", company)
	return b.String()
}
