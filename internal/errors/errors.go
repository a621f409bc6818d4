package errors

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// APIError represents a structured API error response
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// Render implements the render.Renderer interface for chi/render
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// ValidationError represents validation errors
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// New creates a new APIError with the given parameters
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

// NewWithDetails creates a new APIError with additional details
func NewWithDetails(statusCode int, errorCode, message string, details interface{}) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
		Details:    details,
	}
}

// Predefined error types for common scenarios
var (
	// 400 Bad Request
	ErrNoFiles = New(http.StatusBadRequest, "NO_FILES", "No files were uploaded")

	// 404 Not Found
	ErrBatchNotFound = New(http.StatusNotFound, "BATCH_NOT_FOUND", "Batch not found")
	ErrFileNotFound  = New(http.StatusNotFound, "FILE_NOT_FOUND", "File not found")

	// 429 Too Many Requests
	ErrRateLimitExceeded = New(http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "Rate limit exceeded")
)

// InvalidRequestWithError creates an invalid request error with details
func InvalidRequestWithError(err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format", err.Error())
}

// ErrValidation creates a validation error with field details
func ErrValidation(field, message string) *APIError {
	return NewWithDetails(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed", ValidationError{
		Field:   field,
		Message: message,
	})
}

// StorageError creates a storage error for the given operation
func StorageError(operation string, err error) *APIError {
	return NewWithDetails(http.StatusInternalServerError, "STORAGE_ERROR", fmt.Sprintf("Storage error during %s", operation), err.Error())
}

// ValidationErrors represents multiple validation errors
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// NewValidationErrors creates validation errors from multiple fields
func NewValidationErrors(errors []ValidationError) *APIError {
	return NewWithDetails(
		http.StatusBadRequest,
		"VALIDATION_FAILED",
		"Request validation failed",
		ValidationErrors{Errors: errors},
	)
}

