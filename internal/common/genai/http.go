// internal/common/genai/http.go
package genai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mfg-orchestrator/internal/common/config"
	commonhttp "mfg-orchestrator/internal/common/http"
)

// HTTPCompleter calls the GenAI service's /api/ai/generate endpoint.
type HTTPCompleter struct {
	client    *commonhttp.Client
	maxTokens int
}

func NewHTTPCompleter(cfg config.GenAIConfig) *HTTPCompleter {
	return &HTTPCompleter{
		client:    commonhttp.NewClient(cfg.BaseURL, cfg.APIKey, config.GetDuration(cfg.Timeout), cfg.MaxRetries),
		maxTokens: cfg.MaxTokens,
	}
}

func (c *HTTPCompleter) Complete(ctx context.Context, p Prompt) (string, error) {
	maxTokens := p.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	req := map[string]interface{}{
		"prompt":      p.User,
		"max_tokens":  maxTokens,
		"temperature": p.Temperature,
	}
	if p.System != "" {
		req["system"] = p.System
	}

	var resp struct {
		Text string `json:"text"`
	}
	if err := c.client.PostJSON(ctx, "/api/ai/generate", req, &resp); err != nil {
		if errors.Is(err, commonhttp.ErrRequestTimeout) {
			return "", ErrCompletionTimeout
		}
		return "", fmt.Errorf("%w: %v", ErrCompletionFailed, err)
	}

	if strings.TrimSpace(resp.Text) == "" {
		return "", fmt.Errorf("%w: empty completion", ErrCompletionFailed)
	}
	return resp.Text, nil
}
