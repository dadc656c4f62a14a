// Package errors provides standardized error handling for the assistant pipeline.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeSecurityViolation ErrorCode = "SECURITY_VIOLATION"

	ErrCodeLLMTimeout    ErrorCode = "LLM_TIMEOUT"
	ErrCodeLLMCallFailed ErrorCode = "LLM_CALL_FAILED"

	ErrCodeSchemaValidationFailed ErrorCode = "SCHEMA_VALIDATION_FAILED"
	ErrCodeRoutingFailed          ErrorCode = "ROUTING_FAILED"
	ErrCodePlanSizeViolation      ErrorCode = "PLAN_SIZE_VIOLATION"
	ErrCodeProfileStoreFailed     ErrorCode = "PROFILE_STORE_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewSecurityViolationError creates a non-retryable safety check error.
func NewSecurityViolationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSecurityViolation,
		Message:   "Input or output failed a safety check",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewLLMTimeoutError creates a retryable provider timeout error.
func NewLLMTimeoutError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeLLMTimeout,
		Message:   "LLM provider call timed out",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewLLMCallFailedError creates a retryable provider error.
func NewLLMCallFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeLLMCallFailed,
		Message:   "LLM provider call failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSchemaValidationFailedError creates a non-retryable structured-output error.
func NewSchemaValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSchemaValidationFailed,
		Message:   "LLM output did not match the expected schema",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRoutingFailedError creates a non-retryable routing error.
func NewRoutingFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRoutingFailed,
		Message:   "Message routing failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPlanSizeViolationError creates a non-retryable plan guardrail error.
func NewPlanSizeViolationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodePlanSizeViolation,
		Message:   "Generated plan exceeded size limits",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewProfileStoreFailedError creates a retryable profile store error.
func NewProfileStoreFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeProfileStoreFailed,
		Message:   "Profile store operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Failure Classification
// ==========================

// FailureKind is the coarse classification the orchestrator selects fallbacks on.
type FailureKind string

const (
	FailureSecurity FailureKind = "security"
	FailureProvider FailureKind = "provider"
	FailureSchema   FailureKind = "schema"
	FailureInternal FailureKind = "internal"
)

// Classify maps an arbitrary error onto a FailureKind. Schema violations are
// grouped with provider failures for fallback purposes downstream; they keep
// a distinct kind here so diagnostics can tell them apart.
func Classify(err error) FailureKind {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		switch stdErr.Code {
		case ErrCodeSecurityViolation:
			return FailureSecurity
		case ErrCodeLLMTimeout, ErrCodeLLMCallFailed:
			return FailureProvider
		case ErrCodeSchemaValidationFailed:
			return FailureSchema
		}
	}
	return FailureInternal
}

// IsSecurityViolation reports whether err is a safety check failure.
func IsSecurityViolation(err error) bool {
	return Classify(err) == FailureSecurity
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	switch code {
	case ErrCodeLLMTimeout, ErrCodeLLMCallFailed, ErrCodeProfileStoreFailed:
		return true
	}
	return false
}
