// Package errors provides the shared error taxonomy for dispatch, quoting and the job-worker surface.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Recovered locally, never surfaced to the user.
	ErrCodeClassificationFailed ErrorCode = "CLASSIFICATION_FAILED"
	ErrCodeClassifierTimeout    ErrorCode = "CLASSIFIER_TIMEOUT"

	// Quoting chain
	ErrCodeNoCapacityFound ErrorCode = "NO_CAPACITY_FOUND"
	ErrCodeItemNotFound    ErrorCode = "ITEM_NOT_FOUND"
	ErrCodeStageTimeout    ErrorCode = "STAGE_TIMEOUT"
	ErrCodeStageFailed     ErrorCode = "STAGE_FAILED"
	ErrCodeNarrativeFailed ErrorCode = "NARRATIVE_FAILED"
	ErrCodeSlotConflict    ErrorCode = "SLOT_CONFLICT"

	// Conversation
	ErrCodeInvalidSelection ErrorCode = "INVALID_SELECTION"
	ErrCodeNoPendingQuote   ErrorCode = "NO_PENDING_QUOTE"

	// Jobs, customers, estimates
	ErrCodeJobNotFound          ErrorCode = "JOB_NOT_FOUND"
	ErrCodeInvalidJobTransition ErrorCode = "INVALID_JOB_TRANSITION"
	ErrCodeCustomerNotFound     ErrorCode = "CUSTOMER_NOT_FOUND"
	ErrCodeEstimateNotFound     ErrorCode = "ESTIMATE_NOT_FOUND"
	ErrCodeInvalidEstimateState ErrorCode = "INVALID_ESTIMATE_TRANSITION"
	ErrCodeMissingField         ErrorCode = "MISSING_FIELD"
	ErrCodeInsufficientStock    ErrorCode = "INSUFFICIENT_STOCK"

	// Infrastructure
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeDatabaseInsertFailed     ErrorCode = "DATABASE_INSERT_FAILED"
	ErrCodeCacheFailed              ErrorCode = "CACHE_OPERATION_FAILED"
	ErrCodeSearchQueryFailed        ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeNotificationSendFailed   ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause so errors.Is keeps working on sentinels.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Zeebe workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func NewClassificationFailedError(err error) *StandardError {
	return newError(ErrCodeClassificationFailed, "Intent classification failed", err.Error(), true, err)
}

func NewClassifierTimeoutError() *StandardError {
	return newError(ErrCodeClassifierTimeout, "Intent classifier timed out", "", true, nil)
}

func NewNoCapacityFoundError(machineType string, cause error) *StandardError {
	return newError(ErrCodeNoCapacityFound, "No production capacity found",
		fmt.Sprintf("machineType: %s", machineType), false, cause).
		WithMetadata("machineType", machineType)
}

func NewItemNotFoundError(itemID int64, cause error) *StandardError {
	return newError(ErrCodeItemNotFound, "Item not found",
		fmt.Sprintf("itemId: %d", itemID), false, cause).
		WithMetadata("itemId", itemID)
}

func NewStageTimeoutError(stage string) *StandardError {
	return newError(ErrCodeStageTimeout, fmt.Sprintf("Stage '%s' timed out", stage), "", true, nil).
		WithMetadata("stage", stage)
}

func NewStageFailedError(stage string, err error) *StandardError {
	return newError(ErrCodeStageFailed, fmt.Sprintf("Stage '%s' failed", stage), err.Error(), true, err).
		WithMetadata("stage", stage)
}

func NewNarrativeFailedError(err error) *StandardError {
	return newError(ErrCodeNarrativeFailed, "Narrative generation failed", err.Error(), true, err)
}

func NewSlotConflictError(machineID int64) *StandardError {
	return newError(ErrCodeSlotConflict, "Requested slot conflicts with an existing reservation",
		fmt.Sprintf("machineId: %d", machineID), false, nil)
}

func NewInvalidSelectionError(selection string) *StandardError {
	return newError(ErrCodeInvalidSelection, fmt.Sprintf("'%s' is not a valid option", selection),
		"valid options: fastest, cheapest, balanced", false, nil)
}

func NewNoPendingQuoteError(threadID string) *StandardError {
	return newError(ErrCodeNoPendingQuote, "No pending quote for this conversation",
		fmt.Sprintf("threadId: %s", threadID), false, nil)
}

func NewJobNotFoundError(jobNumber string) *StandardError {
	return newError(ErrCodeJobNotFound, "Job not found", fmt.Sprintf("jobNumber: %s", jobNumber), false, nil)
}

func NewInvalidJobTransitionError(jobNumber, from, to string) *StandardError {
	return newError(ErrCodeInvalidJobTransition,
		fmt.Sprintf("Job %s cannot move from %s to %s", jobNumber, from, to), "", false, nil)
}

func NewCustomerNotFoundError(name string) *StandardError {
	return newError(ErrCodeCustomerNotFound, "Customer not found", fmt.Sprintf("name: %s", name), false, nil)
}

func NewEstimateNotFoundError(number string) *StandardError {
	return newError(ErrCodeEstimateNotFound, "Estimate not found", fmt.Sprintf("estimateNumber: %s", number), false, nil)
}

func NewInvalidEstimateTransitionError(number, from, to string) *StandardError {
	return newError(ErrCodeInvalidEstimateState,
		fmt.Sprintf("Estimate %s cannot move from %s to %s", number, from, to), "", false, nil)
}

func NewMissingFieldError(field string) *StandardError {
	return newError(ErrCodeMissingField, fmt.Sprintf("Missing required value: %s", field), "", false, nil).
		WithMetadata("field", field)
}

func NewInsufficientStockError(itemName string, onHand, delta int) *StandardError {
	return newError(ErrCodeInsufficientStock,
		fmt.Sprintf("Cannot remove %d units of %s: only %d on hand", -delta, itemName, onHand), "", false, nil)
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", err.Error(), true, err)
}

func NewQueryExecutionFailedError(queryType string, err error) *StandardError {
	return newError(ErrCodeQueryExecutionFailed, "Database query execution error",
		fmt.Sprintf("queryType: %s, error: %s", queryType, err.Error()), true, err)
}

func NewDatabaseInsertFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseInsertFailed, "Database insert error", err.Error(), true, err)
}

func NewCacheFailedError(op string, err error) *StandardError {
	return newError(ErrCodeCacheFailed, fmt.Sprintf("Cache operation '%s' failed", op), err.Error(), true, err)
}

func NewSearchQueryFailedError(err error) *StandardError {
	return newError(ErrCodeSearchQueryFailed, "Search query error", err.Error(), true, err)
}

func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification send error",
		fmt.Sprintf("channel: %s, error: %s", channel, err.Error()), true, err)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false, err)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeDatabaseInsertFailed,
		ErrCodeCacheFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeClassificationFailed,
		ErrCodeStageFailed,
		ErrCodeNarrativeFailed:
		return 3

	case ErrCodeStageTimeout, ErrCodeClassifierTimeout:
		return 2

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for the workflow engine.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// AsStandard returns the StandardError in err's chain, or wraps err as INTERNAL_ERROR.
func AsStandard(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	return stderrors.As(err, &stdErr) && stdErr.Code == code
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "CLASSIF") || strings.Contains(codeStr, "NARRATIVE"):
		return "AI"
	case strings.Contains(codeStr, "CAPACITY") || strings.Contains(codeStr, "STAGE") || strings.Contains(codeStr, "SLOT"):
		return "QUOTING"
	case strings.Contains(codeStr, "SELECTION") || strings.Contains(codeStr, "PENDING_QUOTE"):
		return "CONVERSATION"
	case strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY") || strings.Contains(codeStr, "CACHE"):
		return "DATABASE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "NOT_FOUND") || strings.Contains(codeStr, "TRANSITION") || strings.Contains(codeStr, "MISSING") || strings.Contains(codeStr, "INSUFFICIENT"):
		return "BUSINESS"
	default:
		return "OTHER"
	}
}

// UserMessage renders an error for a user-visible envelope. Infrastructure
// details never leak; business errors keep their message.
func UserMessage(err error) string {
	stdErr := AsStandard(err)
	if stdErr == nil {
		return ""
	}
	switch GetErrorCategory(stdErr.Code) {
	case "BUSINESS", "CONVERSATION", "QUOTING":
		return stdErr.Message
	}
	return "Something went wrong while handling your request. Please try again."
}
