// internal/common/genai/genai_test.go
package genai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"mfg-orchestrator/internal/common/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"intent":"HELP"}`, `{"intent":"HELP"}`},
		{"fenced", "```json\n{\"intent\":\"HELP\"}\n```", `{"intent":"HELP"}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around", "Sure! Here you go: {\"a\":{\"b\":2}} hope it helps", `{"a":{"b":2}}`},
		{"no object", "I cannot help with that", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.in))
		})
	}
}

func TestHTTPCompleter(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ai/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]string{"text": "Three options are ready."})
	}))
	defer srv.Close()

	c, err := New(config.GenAIConfig{Provider: "http", BaseURL: srv.URL, Timeout: 2000, MaxTokens: 256})
	require.NoError(t, err)

	text, err := c.Complete(context.Background(), Prompt{System: "be brief", User: "summarize"})
	require.NoError(t, err)
	assert.Equal(t, "Three options are ready.", text)
	assert.Equal(t, "summarize", got["prompt"])
	assert.Equal(t, "be brief", got["system"])
	assert.Equal(t, float64(256), got["max_tokens"])
}

func TestHTTPCompleter_EmptyTextFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"text":"   "}`))
	}))
	defer srv.Close()

	c := NewHTTPCompleter(config.GenAIConfig{BaseURL: srv.URL, Timeout: 2000})
	_, err := c.Complete(context.Background(), Prompt{User: "x"})
	assert.ErrorIs(t, err, ErrCompletionFailed)
}

func TestAnthropicCompleter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "claude-test", body["model"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-test",
			"content": [{"type": "text", "text": "{\"intent\":\"HELP\"}"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`))
	}))
	defer srv.Close()

	c, err := New(config.GenAIConfig{
		Provider: "anthropic",
		BaseURL:  srv.URL,
		APIKey:   "test-key",
		Model:    "claude-test",
	})
	require.NoError(t, err)

	text, err := c.Complete(context.Background(), Prompt{System: "classify", User: "help me"})
	require.NoError(t, err)
	assert.Equal(t, `{"intent":"HELP"}`, text)
}

func TestAnthropicCompleter_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`))
	}))
	defer srv.Close()

	c, err := NewAnthropicCompleter(config.GenAIConfig{BaseURL: srv.URL, APIKey: "k"})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), Prompt{User: "x"})
	assert.ErrorIs(t, err, ErrCompletionFailed)
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(config.GenAIConfig{Provider: "telepathy"})
	assert.Error(t, err)

	_, err = New(config.GenAIConfig{Provider: "http"})
	assert.Error(t, err)
}
