package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "campaignclean/internal/errors"
	"campaignclean/internal/infrastructure"
	api "campaignclean/pkg/contracts/api/v1"
)

func newTestValidation() *ValidationMiddleware {
	logger := infrastructure.DiscardLogger()
	return NewValidationMiddleware(logger, apierrors.NewErrorHandler(logger, false))
}

func TestValidateStruct(t *testing.T) {
	v := newTestValidation()

	tests := []struct {
		name      string
		req       api.ProcessRequest
		wantField string
	}{
		{name: "valid", req: api.ProcessRequest{Files: []string{"a.csv", "キャンペーン.csv"}}},
		{name: "missing files", req: api.ProcessRequest{}, wantField: "files"},
		{name: "empty list", req: api.ProcessRequest{Files: []string{}}, wantField: "files"},
		{name: "empty name", req: api.ProcessRequest{Files: []string{""}}, wantField: "files[0]"},
		{name: "traversal", req: api.ProcessRequest{Files: []string{"ok.csv", "../etc/passwd"}}, wantField: "files[1]"},
		{name: "backslash", req: api.ProcessRequest{Files: []string{`a\b.csv`}}, wantField: "files[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateStruct(&tt.req)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			var apiErr *apierrors.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
			assert.Equal(t, "VALIDATION_FAILED", apiErr.ErrorCode)

			details, ok := apiErr.Details.(apierrors.ValidationErrors)
			require.True(t, ok)
			require.NotEmpty(t, details.Errors)
			assert.Equal(t, tt.wantField, details.Errors[0].Field)
		})
	}
}

func TestDecodeAndValidate(t *testing.T) {
	v := newTestValidation()

	tests := []struct {
		name     string
		body     string
		wantOK   bool
		wantCode int
		wantErr  string
	}{
		{name: "valid", body: `{"files":["a.csv"]}`, wantOK: true},
		{name: "empty body", body: ``, wantCode: http.StatusBadRequest, wantErr: "EMPTY_BODY"},
		{name: "malformed", body: `{"files":`, wantCode: http.StatusBadRequest, wantErr: "INVALID_JSON"},
		{name: "unknown field", body: `{"files":["a.csv"],"extra":1}`, wantCode: http.StatusBadRequest, wantErr: "INVALID_JSON"},
		{name: "invalid name", body: `{"files":["../a.csv"]}`, wantCode: http.StatusBadRequest, wantErr: "VALIDATION_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/process", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			var dst api.ProcessRequest
			ok := v.DecodeAndValidate(rec, req, &dst)

			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, []string{"a.csv"}, dst.Files)
				return
			}
			assert.Equal(t, tt.wantCode, rec.Code)
			problem := decodeProblem(t, rec.Body)
			assert.Equal(t, tt.wantErr, problem["error_code"])
		})
	}
}

func TestContentTypeValidator(t *testing.T) {
	h := ContentTypeValidator("application/json", "multipart/form-data")(okHandler())

	tests := []struct {
		name        string
		method      string
		contentType string
		want        int
	}{
		{name: "json", method: http.MethodPost, contentType: "application/json", want: http.StatusOK},
		{name: "json with charset", method: http.MethodPost, contentType: "application/json; charset=utf-8", want: http.StatusOK},
		{name: "multipart", method: http.MethodPost, contentType: "multipart/form-data; boundary=xyz", want: http.StatusOK},
		{name: "missing", method: http.MethodPost, contentType: "", want: http.StatusBadRequest},
		{name: "unsupported", method: http.MethodPost, contentType: "text/plain", want: http.StatusUnsupportedMediaType},
		{name: "get skipped", method: http.MethodGet, contentType: "", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/process", strings.NewReader("{}"))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
