// internal/notify/notifier_test.go
package notify

import (
	"context"
	"fmt"
	"testing"
	"time"

	"mfg-orchestrator/internal/common/errors"
	"mfg-orchestrator/internal/common/logger"
	"mfg-orchestrator/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSES struct {
	inputs []*ses.SendEmailInput
	err    error
}

func (f *fakeSES) SendEmail(_ context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

type fakeSNS struct {
	inputs []*sns.PublishInput
	err    error
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("sms-1")}, nil
}

func sampleEstimate() *models.Estimate {
	valid := time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)
	return &models.Estimate{
		EstimateNumber:   "EST-2025-0001",
		Version:          2,
		CustomerName:     "Acme Corp",
		CustomerEmail:    "buyer@acme.test",
		CurrencyCode:     "USD",
		TotalAmount:      decimal.RequireFromString("1449"),
		ValidUntil:       &valid,
		DeliveryFeasible: false,
	}
}

func TestSendEstimate(t *testing.T) {
	tests := []struct {
		name           string
		email          *fakeSES
		mutate         func(*models.Estimate)
		wantSent       bool
		wantCode       errors.ErrorCode
		validateOutput func(t *testing.T, f *fakeSES)
	}{
		{
			name:     "sends email",
			email:    &fakeSES{},
			wantSent: true,
			validateOutput: func(t *testing.T, f *fakeSES) {
				require.Len(t, f.inputs, 1)
				in := f.inputs[0]
				assert.Equal(t, "quotes@shop.test", *in.Source)
				assert.Equal(t, []string{"buyer@acme.test"}, in.Destination.ToAddresses)
				assert.Equal(t, "Estimate EST-2025-0001 from Foreman Shop", *in.Message.Subject.Data)
				body := *in.Message.Body.Text.Data
				assert.Contains(t, body, "Total: 1449.00 USD")
				assert.Contains(t, body, "Valid until: 2025-02-15")
				assert.Contains(t, body, "may not be achievable")
			},
		},
		{
			name:     "no customer email",
			email:    &fakeSES{},
			mutate:   func(e *models.Estimate) { e.CustomerEmail = " " },
			wantCode: errors.ErrCodeMissingField,
			validateOutput: func(t *testing.T, f *fakeSES) {
				assert.Empty(t, f.inputs)
			},
		},
		{
			name:     "ses failure",
			email:    &fakeSES{err: fmt.Errorf("throttled")},
			wantCode: errors.ErrCodeNotificationSendFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewNotifier(tt.email, nil, "quotes@shop.test", "Foreman Shop", logger.NewTestLogger(t))
			est := sampleEstimate()
			if tt.mutate != nil {
				tt.mutate(est)
			}

			sent, err := n.SendEstimate(context.Background(), est)
			assert.Equal(t, tt.wantSent, sent)
			if tt.wantCode != "" {
				assert.True(t, errors.HasCode(err, tt.wantCode), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
			if tt.validateOutput != nil {
				tt.validateOutput(t, tt.email)
			}
		})
	}
}

func TestSendEstimate_EmailDisabled(t *testing.T) {
	n := NewNotifier(nil, nil, "", "Foreman Shop", logger.NewTestLogger(t))
	sent, err := n.SendEstimate(context.Background(), sampleEstimate())
	assert.NoError(t, err)
	assert.False(t, sent)
	assert.False(t, n.EmailEnabled())
}

func TestJobReady(t *testing.T) {
	job := &models.Job{JobNumber: "20250115-0001", CustomerName: "Acme Corp"}

	t.Run("publishes transactional sms", func(t *testing.T) {
		pub := &fakeSNS{}
		n := NewNotifier(nil, pub, "", "Foreman Shop", logger.NewTestLogger(t))

		sent, err := n.JobReady(context.Background(), job, "+15551234567")
		require.NoError(t, err)
		assert.True(t, sent)
		require.Len(t, pub.inputs, 1)
		assert.Equal(t, "+15551234567", *pub.inputs[0].PhoneNumber)
		assert.Contains(t, *pub.inputs[0].Message, "20250115-0001")
		assert.Equal(t, "Transactional", *pub.inputs[0].MessageAttributes["AWS.SNS.SMS.SMSType"].StringValue)
	})

	t.Run("no phone is skipped", func(t *testing.T) {
		pub := &fakeSNS{}
		n := NewNotifier(nil, pub, "", "Foreman Shop", logger.NewTestLogger(t))
		sent, err := n.JobReady(context.Background(), job, "")
		assert.NoError(t, err)
		assert.False(t, sent)
		assert.Empty(t, pub.inputs)
	})

	t.Run("publish failure", func(t *testing.T) {
		n := NewNotifier(nil, &fakeSNS{err: fmt.Errorf("opted out")}, "", "Foreman Shop", logger.NewTestLogger(t))
		_, err := n.JobReady(context.Background(), job, "+15551234567")
		assert.True(t, errors.HasCode(err, errors.ErrCodeNotificationSendFailed))
	})
}
