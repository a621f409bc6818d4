package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"campaignclean/internal/files"
	"campaignclean/internal/operations"
	"campaignclean/internal/validation"
)

// Common error types following RFC 7807
const (
	TypeValidation       = "/errors/validation"
	TypeNotFound         = "/errors/not-found"
	TypeRateLimit        = "/errors/rate-limit"
	TypeInternal         = "/errors/internal"
	TypeServiceDown      = "/errors/service-unavailable"
	TypeTimeout          = "/errors/timeout"
	TypePayloadTooLarge  = "/errors/payload-too-large"
	TypeMethodNotAllowed = "/errors/method-not-allowed"
)

// Domain-specific error types
const (
	TypeBatchNotFound = "/errors/batch/not-found"
	TypeFileNotFound  = "/errors/file/not-found"
	TypeInvalidName   = "/errors/file/invalid-name"
	TypeNotCSV        = "/errors/file/not-csv"
	TypeStorage       = "/errors/storage"
)

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError converts any error to RFC 7807 format and responds
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	reqID := middleware.GetReqID(r.Context())
	problem := h.ErrorToProblem(err, r)

	level := slog.LevelWarn
	if problem.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "request failed",
		slog.String("error", err.Error()),
		slog.Int("status", problem.Status),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("remote_addr", r.RemoteAddr),
	)

	problem.WithExtension("trace_id", reqID)
	if h.includeStack && problem.Status >= http.StatusInternalServerError {
		problem.WithExtension("stack", getStackTrace())
	}

	render.Render(w, r, problem)
}

// ErrorToProblem converts an error to RFC 7807 Problem Details
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProblemDetails(
			http.StatusGatewayTimeout,
			TypeTimeout,
			"Request Timeout",
			"The request took too long to process and was cancelled",
			r.URL.Path,
		)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return h.apiErrorToProblem(apiErr, r)
	}

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return NewProblemDetails(
			http.StatusRequestEntityTooLarge,
			TypePayloadTooLarge,
			"Payload Too Large",
			"The request body exceeds the maximum allowed size",
			r.URL.Path,
		).WithExtension("max_bytes", maxBytesErr.Limit)
	}

	switch {
	case errors.Is(err, operations.ErrSummaryNotFound):
		return NewProblemDetails(
			http.StatusNotFound,
			TypeBatchNotFound,
			"Batch Not Found",
			"No batch with this id exists or it has expired",
			r.URL.Path,
		)

	case errors.Is(err, files.ErrNotFound):
		return NewProblemDetails(
			http.StatusNotFound,
			TypeFileNotFound,
			"File Not Found",
			"The requested file does not exist or has been cleaned up",
			r.URL.Path,
		)

	case errors.Is(err, files.ErrInvalidName):
		return NewProblemDetails(
			http.StatusBadRequest,
			TypeInvalidName,
			"Invalid File Name",
			err.Error(),
			r.URL.Path,
		)

	case errors.Is(err, validation.ErrNotCSV), errors.Is(err, validation.ErrNotText):
		return NewProblemDetails(
			http.StatusBadRequest,
			TypeNotCSV,
			"Not a CSV File",
			err.Error(),
			r.URL.Path,
		)

	default:
		return NewProblemDetails(
			http.StatusInternalServerError,
			TypeInternal,
			"Internal Server Error",
			"An unexpected error occurred while processing your request",
			r.URL.Path,
		)
	}
}

// apiErrorToProblem converts APIError to ProblemDetails
func (h *ErrorHandler) apiErrorToProblem(apiErr *APIError, r *http.Request) *ProblemDetails {
	problemType := TypeInternal
	switch apiErr.ErrorCode {
	case "VALIDATION_FAILED", "INVALID_REQUEST", "INVALID_JSON", "EMPTY_BODY", "NO_FILES":
		problemType = TypeValidation
	case "BATCH_NOT_FOUND":
		problemType = TypeBatchNotFound
	case "FILE_NOT_FOUND":
		problemType = TypeFileNotFound
	case "PAYLOAD_TOO_LARGE":
		problemType = TypePayloadTooLarge
	case "RATE_LIMIT_EXCEEDED":
		problemType = TypeRateLimit
	case "STORAGE_ERROR":
		problemType = TypeStorage
	case "SERVICE_UNAVAILABLE":
		problemType = TypeServiceDown
	}

	problem := NewProblemDetails(
		apiErr.StatusCode,
		problemType,
		http.StatusText(apiErr.StatusCode),
		apiErr.Message,
		r.URL.Path,
	).WithExtension("error_code", apiErr.ErrorCode)

	if apiErr.Details != nil {
		problem.WithExtension("details", apiErr.Details)
	}

	return problem
}

// HandlePanic recovers from panics and returns RFC 7807 error
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", string(debug.Stack())),
	)

	problem := NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred",
		r.URL.Path,
	).WithExtension("trace_id", reqID)

	if h.includeStack {
		problem.WithExtension("panic", fmt.Sprintf("%v", recovered))
		problem.WithExtension("stack", getStackTrace())
	}

	render.Render(w, r, problem)
}

// NotFound returns a standard 404 error
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusNotFound,
		TypeNotFound,
		"Not Found",
		"The requested resource was not found",
		r.URL.Path,
	).WithExtension("trace_id", middleware.GetReqID(r.Context()))

	render.Render(w, r, problem)
}

// MethodNotAllowed returns a standard 405 error
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusMethodNotAllowed,
		TypeMethodNotAllowed,
		"Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method),
		r.URL.Path,
	).WithExtension("trace_id", middleware.GetReqID(r.Context()))

	render.Render(w, r, problem)
}

// getStackTrace returns the current stack trace
func getStackTrace() string {
	buf := make([]byte, 1024*8)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
