package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaignclean/internal/files"
	"campaignclean/internal/operations"
	"campaignclean/internal/shared/testutil"
	"campaignclean/internal/validation"
)

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestErrorHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, TypeTimeout},
		{"api validation", ErrValidation("files", "too many"), http.StatusBadRequest, TypeValidation},
		{"api no files", ErrNoFiles, http.StatusBadRequest, TypeValidation},
		{"api batch not found", ErrBatchNotFound, http.StatusNotFound, TypeBatchNotFound},
		{"api file not found", ErrFileNotFound, http.StatusNotFound, TypeFileNotFound},
		{"api storage", StorageError("put", fmt.Errorf("disk full")), http.StatusInternalServerError, TypeStorage},
		{"summary not found", fmt.Errorf("get: %w", operations.ErrSummaryNotFound), http.StatusNotFound, TypeBatchNotFound},
		{"file not found", fmt.Errorf("%w: x.csv", files.ErrNotFound), http.StatusNotFound, TypeFileNotFound},
		{"invalid name", fmt.Errorf("%w: ..", files.ErrInvalidName), http.StatusBadRequest, TypeInvalidName},
		{"not csv", fmt.Errorf("%w: a.txt", validation.ErrNotCSV), http.StatusBadRequest, TypeNotCSV},
		{"body too large", &http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge, TypePayloadTooLarge},
		{"unknown", fmt.Errorf("database exploded"), http.StatusInternalServerError, TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := testutil.NewTestLogger(t)
			handler := NewErrorHandler(logger, false)

			req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
			rec := httptest.NewRecorder()

			handler.HandleError(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeProblem(t, rec)
			assert.Equal(t, tt.wantType, body["type"])
			assert.Equal(t, float64(tt.wantStatus), body["status"])
			assert.Equal(t, "/api/test", body["instance"])
			assert.Contains(t, body, "trace_id")
			assert.NotContains(t, body, "stack")
		})
	}
}

func TestErrorHandler_HidesInternalDetails(t *testing.T) {
	handler := NewErrorHandler(nil, false)
	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	rec := httptest.NewRecorder()

	handler.HandleError(rec, req, fmt.Errorf("connection to 10.0.0.3 refused"))

	assert.NotContains(t, rec.Body.String(), "10.0.0.3")
}

func TestErrorHandler_NilError(t *testing.T) {
	handler := NewErrorHandler(nil, false)
	rec := httptest.NewRecorder()

	handler.HandleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), nil)

	assert.Equal(t, 0, rec.Body.Len())
}

func TestErrorHandler_LogLevels(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)
	req := httptest.NewRequest(http.MethodGet, "/x", nil)

	handler.HandleError(httptest.NewRecorder(), req, ErrFileNotFound)
	handler.HandleError(httptest.NewRecorder(), req, fmt.Errorf("boom"))

	assert.Len(t, logs.GetRecordsByLevel(slog.LevelWarn), 1)
	assert.Len(t, logs.GetRecordsByLevel(slog.LevelError), 1)
}

func TestErrorHandler_IncludeStack(t *testing.T) {
	handler := NewErrorHandler(nil, true)
	rec := httptest.NewRecorder()

	handler.HandleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), fmt.Errorf("boom"))

	body := decodeProblem(t, rec)
	assert.Contains(t, body, "stack")
}

func TestErrorHandler_APIErrorDetails(t *testing.T) {
	handler := NewErrorHandler(nil, false)
	rec := httptest.NewRecorder()

	handler.HandleError(rec, httptest.NewRequest(http.MethodPost, "/api/process", nil),
		ErrValidation("files", "files is required"))

	body := decodeProblem(t, rec)
	assert.Equal(t, "VALIDATION_FAILED", body["error_code"])
	details, ok := body["details"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "files", details["field"])
}

func TestErrorHandler_HandlePanic(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)
	rec := httptest.NewRecorder()

	handler.HandlePanic(rec, httptest.NewRequest(http.MethodGet, "/", nil), "nil map")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "nil map")
	testutil.AssertLogContains(t, logs, slog.LevelError, "panic recovered")
}

func TestErrorHandler_NotFoundAndMethodNotAllowed(t *testing.T) {
	handler := NewErrorHandler(nil, false)

	rec := httptest.NewRecorder()
	handler.NotFound(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, TypeNotFound, decodeProblem(t, rec)["type"])

	rec = httptest.NewRecorder()
	handler.MethodNotAllowed(rec, httptest.NewRequest(http.MethodDelete, "/api/upload", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, decodeProblem(t, rec)["detail"], "DELETE")
}

func TestProblemDetails_MarshalJSON(t *testing.T) {
	problem := NewProblemDetails(http.StatusNotFound, TypeNotFound, "Not Found", "", "/x").
		WithExtension("trace_id", "abc").
		WithExtension("status", 999)

	data, err := json.Marshal(problem)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, float64(http.StatusNotFound), body["status"], "extensions never shadow standard fields")
	assert.Equal(t, "abc", body["trace_id"])
	assert.NotContains(t, body, "detail")
}
