// Package errors provides standardized error handling for the API boundary.
package errors

import (
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeUnauthorized     ErrorCode = "UNAUTHORIZED"
	ErrCodeProfileNotFound  ErrorCode = "PROFILE_NOT_FOUND"
	ErrCodeJobNotFound      ErrorCode = "JOB_NOT_FOUND"
	ErrCodeCustomerNotFound ErrorCode = "CUSTOMER_NOT_FOUND"

	ErrCodeConfigurationMissing ErrorCode = "CONFIGURATION_MISSING"

	ErrCodeUpstreamFailure  ErrorCode = "UPSTREAM_FAILURE"
	ErrCodeUpstreamTimeout  ErrorCode = "UPSTREAM_TIMEOUT"
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	// LimitReached is distinguished from generic failures so the UI can
	// prompt an upgrade instead of showing an error banner.
	ErrCodeLimitReached ErrorCode = "LIMIT_REACHED"

	ErrCodeWebhookSignatureInvalid ErrorCode = "WEBHOOK_SIGNATURE_INVALID"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
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

// NewUnauthorizedError creates a non-retryable authentication error.
func NewUnauthorizedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnauthorized,
		Message:   "Missing or invalid authorization",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewProfileNotFoundError creates a non-retryable profile lookup error.
func NewProfileNotFoundError(userID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeProfileNotFound,
		Message:   "Profile not found",
		Details:   fmt.Sprintf("userId: %s", userID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewJobNotFoundError creates a non-retryable job lookup error.
func NewJobNotFoundError(jobID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeJobNotFound,
		Message:   "Job not found",
		Details:   fmt.Sprintf("jobId: %s", jobID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCustomerNotFoundError signals a profile with no billing customer linkage.
func NewCustomerNotFoundError(userID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCustomerNotFound,
		Message:   "No billing customer linked to profile",
		Details:   fmt.Sprintf("userId: %s", userID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewConfigurationMissingError creates a non-retryable configuration error.
func NewConfigurationMissingError(key string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfigurationMissing,
		Message:   "Required configuration is missing",
		Details:   fmt.Sprintf("key: %s", key),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUpstreamFailureError wraps a non-2xx response from the analysis backend.
// The upstream status code is kept in metadata so the handler can pass it through.
func NewUpstreamFailureError(status int, body string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUpstreamFailure,
		Message:   "Analysis backend returned an error",
		Details:   body,
		Retryable: status >= 500,
		Metadata:  map[string]interface{}{"upstreamStatus": status},
		Timestamp: time.Now().UTC(),
	}
}

// NewUpstreamTimeoutError creates a retryable upstream timeout error.
func NewUpstreamTimeoutError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUpstreamTimeout,
		Message:   "Analysis backend request timed out",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationFailedError creates a non-retryable request validation error.
func NewValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Request validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewLimitReachedError creates a non-retryable quota error. The message carries
// the plan-specific explanation shown to the user.
func NewLimitReachedError(message string) *StandardError {
	return &StandardError{
		Code:      ErrCodeLimitReached,
		Message:   message,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewWebhookSignatureInvalidError creates a non-retryable signature error.
func NewWebhookSignatureInvalidError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeWebhookSignatureInvalid,
		Message:   "Webhook signature verification failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("type: %s, error: %s", notificationType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// Generic constructors

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "EXTERNAL_SERVICE_ERROR",
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. HTTP Status Mapping
// ==========================

// httpStatusMapping maps internal error codes to HTTP status codes.
var httpStatusMapping = map[ErrorCode]int{
	ErrCodeUnauthorized:             401,
	ErrCodeProfileNotFound:          404,
	ErrCodeJobNotFound:              404,
	ErrCodeCustomerNotFound:         404,
	ErrCodeConfigurationMissing:     500,
	ErrCodeUpstreamFailure:          502,
	ErrCodeUpstreamTimeout:          504,
	ErrCodeValidationFailed:         400,
	ErrCodeLimitReached:             403,
	ErrCodeWebhookSignatureInvalid:  400,
	ErrCodeDatabaseConnectionFailed: 500,
	ErrCodeQueryExecutionFailed:     500,
	ErrCodeNotificationSendFailed:   500,
}

// HTTPStatus returns the HTTP status code for an error code.
func HTTPStatus(code ErrorCode) int {
	if status, exists := httpStatusMapping[code]; exists {
		return status
	}
	return 500
}

// UpstreamStatus returns the original backend status carried by an
// UPSTREAM_FAILURE error, falling back to 502 when none was recorded.
func (e *StandardError) UpstreamStatus() int {
	if e.Code != ErrCodeUpstreamFailure {
		return HTTPStatus(e.Code)
	}
	if v, ok := e.Metadata["upstreamStatus"]; ok {
		if status, ok := v.(int); ok {
			return status
		}
	}
	return 502
}
