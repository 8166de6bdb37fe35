// internal/common/genai/genai.go
package genai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mfg-orchestrator/internal/common/config"
)

var (
	ErrCompletionTimeout = errors.New("COMPLETION_TIMEOUT")
	ErrCompletionFailed  = errors.New("COMPLETION_FAILED")
)

// Prompt is a single-turn request to a language model.
type Prompt struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
}

// Completer turns a prompt into text.
type Completer interface {
	Complete(ctx context.Context, p Prompt) (string, error)
}

// New builds the completer selected by cfg.Provider.
func New(cfg config.GenAIConfig) (Completer, error) {
	switch cfg.Provider {
	case "", "http":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("genai: base_url is required for the http provider")
		}
		return NewHTTPCompleter(cfg), nil
	case "anthropic":
		return NewAnthropicCompleter(cfg)
	default:
		return nil, fmt.Errorf("genai: unknown provider %q", cfg.Provider)
	}
}

// ExtractJSON returns the first JSON object in text, dropping markdown fences
// and any prose around it. It returns "" when no object is present.
func ExtractJSON(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
