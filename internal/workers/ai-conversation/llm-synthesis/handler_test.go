// internal/workers/ai-conversation/llm-synthesis/handler_test.go
package llmsynthesis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"mfg-orchestrator/internal/common/genai"
	"mfg-orchestrator/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Logger Implementation
// ==========================

type TestLogger struct {
	t *testing.T
}

func (l *TestLogger) Info(msg string, fields map[string]interface{}) {
	l.t.Logf("INFO: %s %v", msg, fields)
}

func (l *TestLogger) Error(msg string, fields map[string]interface{}) {
	l.t.Logf("ERROR: %s %v", msg, fields)
}

func (l *TestLogger) With(fields map[string]interface{}) Logger { return l }

type recordingCompleter struct {
	prompt genai.Prompt
	text   string
	err    error
	block  bool
}

func (r *recordingCompleter) Complete(ctx context.Context, p genai.Prompt) (string, error) {
	r.prompt = p
	if r.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return r.text, r.err
}

func sampleInput() *Input {
	return &Input{
		CustomerName:       "Acme Corp",
		ProductDescription: "aluminum brackets",
		Quantity:           10,
		Inventory:          models.AnalysisResult{Available: true, LeadTimeDays: 5, Summary: "All materials in stock"},
		Scheduling:         models.AnalysisResult{Available: true, LeadTimeDays: 2, Summary: "Slot available on CNC-Mill-1 starting 2025-01-17 08:00"},
		Costing:            models.AnalysisResult{Available: true, LeadTimeDays: 2, Summary: "Three pricing options calculated"},
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute(t *testing.T) {
	tests := []struct {
		name           string
		completer      *recordingCompleter
		wantErr        error
		validateOutput func(t *testing.T, out *Output, c *recordingCompleter)
	}{
		{
			name:      "success",
			completer: &recordingCompleter{text: "  Here are your three options.  "},
			validateOutput: func(t *testing.T, out *Output, c *recordingCompleter) {
				assert.Equal(t, "Here are your three options.", out.Narrative)
				assert.Contains(t, c.prompt.System, "Foreman")
				assert.Contains(t, c.prompt.System, "BALANCED")
				assert.Contains(t, c.prompt.User, "Customer: Acme Corp")
				assert.Contains(t, c.prompt.User, "Requested Date: Not specified")
				assert.Contains(t, c.prompt.User, "INVENTORY ANALYSIS:")
				assert.Contains(t, c.prompt.User, "All materials in stock")
				assert.True(t, strings.HasSuffix(c.prompt.User, "Please synthesize these into a clear response for the customer."))
				assert.Equal(t, 1024, c.prompt.MaxTokens)
			},
		},
		{
			name:      "empty narrative",
			completer: &recordingCompleter{text: "   "},
			wantErr:   ErrLLMSynthesisFailed,
		},
		{
			name:      "provider error",
			completer: &recordingCompleter{err: genai.ErrCompletionFailed},
			wantErr:   ErrLLMSynthesisFailed,
		},
		{
			name:      "provider timeout",
			completer: &recordingCompleter{err: genai.ErrCompletionTimeout},
			wantErr:   ErrLLMTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(LoadConfig(nil), tt.completer, &TestLogger{t})
			out, err := h.Execute(context.Background(), sampleInput())
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				assert.Nil(t, out)
				return
			}
			require.NoError(t, err)
			tt.validateOutput(t, out, tt.completer)
		})
	}
}

func TestHandler_Execute_DeadlineExceeded(t *testing.T) {
	cfg := LoadConfig(nil)
	cfg.Timeout = 20 * time.Millisecond
	h := NewHandler(cfg, &recordingCompleter{block: true}, &TestLogger{t})

	_, err := h.Execute(context.Background(), sampleInput())
	assert.ErrorIs(t, err, ErrLLMTimeout)
}

func TestHandler_Execute_NoCompleter(t *testing.T) {
	h := NewHandler(LoadConfig(nil), nil, &TestLogger{t})
	_, err := h.Execute(context.Background(), sampleInput())
	assert.ErrorIs(t, err, ErrLLMSynthesisFailed)
}
