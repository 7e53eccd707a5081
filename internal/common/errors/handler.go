package errors

import (
	"encoding/json"
	"net/http"
	"time"
)

// ErrorHandler converts any error into the JSON error envelope at the HTTP
// boundary. Handlers catch broadly and hand everything here.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Envelope is the wire format for all error responses.
type Envelope struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// WriteError normalizes err to a StandardError, logs it, and writes the
// JSON envelope with the mapped HTTP status.
func (h *ErrorHandler) WriteError(w http.ResponseWriter, err error) {
	stdErr := h.normalizeError(err)

	status := HTTPStatus(stdErr.Code)
	if stdErr.Code == ErrCodeUpstreamFailure {
		// Upstream failures pass through the backend's original status code.
		status = stdErr.UpstreamStatus()
	}

	fields := map[string]interface{}{
		"errorCode": string(stdErr.Code),
		"status":    status,
		"details":   stdErr.Details,
	}
	if status >= 500 {
		h.logger.Error(stdErr.Message, fields)
	} else {
		h.logger.Warn(stdErr.Message, fields)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{
		Error:   stdErr.Message,
		Code:    string(stdErr.Code),
		Details: stdErr.Details,
	})
}

// normalizeError ensures we always have a StandardError
func (h *ErrorHandler) normalizeError(err error) *StandardError {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr
	}
	return &StandardError{
		Code:      "INTERNAL_ERROR",
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
