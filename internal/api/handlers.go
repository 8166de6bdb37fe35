// internal/api/handlers.go
package api

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"mfg-orchestrator/internal/common/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const (
	maxMessageLength   = 4000
	defaultHistorySize = 20
	readyCheckTimeout  = 3 * time.Second
)

type Handler struct {
	Dispatcher     Dispatcher
	History        HistoryReader
	Checks         map[string]Check
	Validator      *validator.Validate
	Logger         logger.Logger
	RequestTimeout time.Duration
	Version        string
}

type ChatRequest struct {
	Message  string `json:"message" validate:"required,max=4000"`
	ThreadID string `json:"threadId" validate:"omitempty,max=128"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": errorBody{Code: code, Message: message}})
}

// Chat dispatches one message. Handler failures are already folded into the
// envelope, so any well-formed request answers 200.
func (h *Handler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Request body must be JSON with a message field")
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", validationMessage(err))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.RequestTimeout)
	defer cancel()

	env := h.Dispatcher.Dispatch(ctx, req.Message, strings.TrimSpace(req.ThreadID))
	c.JSON(http.StatusOK, env)
}

func (h *Handler) ThreadHistory(c *gin.Context) {
	if h.History == nil {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Conversation history is not available")
		return
	}
	limit := defaultHistorySize
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "limit must be a positive integer")
			return
		}
		limit = n
	}

	threadID := c.Param("id")
	msgs, err := h.History.History(c.Request.Context(), threadID, limit)
	if err != nil {
		h.Logger.Error("history lookup failed", map[string]interface{}{"threadId": threadID, "error": err.Error()})
		writeError(c, http.StatusServiceUnavailable, "HISTORY_UNAVAILABLE", "Conversation history is unavailable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"threadId": threadID, "messages": msgs})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"version": h.Version,
		"time":    time.Now().Format(time.RFC3339),
	})
}

// Ready runs every check and answers 503 when any of them fails.
func (h *Handler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(h.Checks))
	for name := range h.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]string, len(names))
	ready := true
	for _, name := range names {
		if err := h.Checks[name](ctx); err != nil {
			ready = false
			results[name] = err.Error()
			h.Logger.Warn("readiness check failed", map[string]interface{}{"check": name, "error": err.Error()})
			continue
		}
		results[name] = "ok"
	}

	status, code := "ready", http.StatusOK
	if !ready {
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status": status,
		"checks": results,
		"time":   time.Now().Format(time.RFC3339),
	})
}

func validationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return "Invalid request"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return strings.ToLower(fe.Field()) + " is required"
	case "max":
		if fe.Field() == "Message" {
			return "message must be at most " + strconv.Itoa(maxMessageLength) + " characters"
		}
		return strings.ToLower(fe.Field()) + " is too long"
	}
	return "Invalid " + strings.ToLower(fe.Field())
}
