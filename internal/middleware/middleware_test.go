package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "campaignclean/internal/errors"
	"campaignclean/internal/infrastructure"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
}

func decodeProblem(t *testing.T, body io.Reader) map[string]interface{} {
	t.Helper()
	var problem map[string]interface{}
	require.NoError(t, json.NewDecoder(body).Decode(&problem))
	return problem
}

func TestRequestID(t *testing.T) {
	t.Run("generates an id", func(t *testing.T) {
		var seen, traceID string
		h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = middleware.GetReqID(r.Context())
			traceID = infrastructure.GetTraceID(r.Context())
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		_, err := uuid.Parse(seen)
		require.NoError(t, err)
		assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
		assert.Equal(t, seen, traceID)
	})

	t.Run("keeps the client id", func(t *testing.T) {
		var seen string
		h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = GetRequestID(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "client-abc")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "client-abc", seen)
		assert.Equal(t, "client-abc", rec.Header().Get(RequestIDHeader))
	})

	t.Run("replaces oversized ids", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, strings.Repeat("x", 200))
		rec := httptest.NewRecorder()
		RequestID(okHandler()).ServeHTTP(rec, req)

		_, err := uuid.Parse(rec.Header().Get(RequestIDHeader))
		assert.NoError(t, err)
	})
}

func TestRateLimiter(t *testing.T) {
	handler := apierrors.NewErrorHandler(infrastructure.DiscardLogger(), false)
	rl := NewRateLimiter(0.001, 2, handler, infrastructure.DiscardLogger())
	h := rl.Handler(okHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/process", nil))
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			assert.Equal(t, "1", rec.Header().Get("Retry-After"))
		}
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestBodyLimit(t *testing.T) {
	handler := apierrors.NewErrorHandler(infrastructure.DiscardLogger(), false)

	readAll := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			handler.HandleError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	h := BodyLimit(8, handler)(readAll)

	tests := []struct {
		name          string
		body          string
		contentLength int64
		want          int
	}{
		{name: "within limit", body: "12345678", contentLength: 8, want: http.StatusOK},
		{name: "declared too large", body: "123456789", contentLength: 9, want: http.StatusRequestEntityTooLarge},
		{name: "streamed too large", body: "123456789", contentLength: -1, want: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader(tt.body))
			req.ContentLength = tt.contentLength
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusRequestEntityTooLarge {
				problem := decodeProblem(t, rec.Body)
				assert.Equal(t, float64(8), problem["max_bytes"])
			}
		})
	}
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})

	h := Timeout(20*time.Millisecond, infrastructure.DiscardLogger())(slow)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/batches/x", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "Request Timeout")
}

func TestTimeoutPassesFastResponses(t *testing.T) {
	h := Timeout(time.Second, infrastructure.DiscardLogger())(okHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name        string
		config      CORSConfig
		origin      string
		method      string
		wantOrigin  string
		wantStatus  int
		wantCredsOn bool
	}{
		{
			name:       "listed origin",
			config:     CORSConfig{AllowedOrigins: []string{"https://app.example.com"}},
			origin:     "https://app.example.com",
			method:     http.MethodGet,
			wantOrigin: "https://app.example.com",
			wantStatus: http.StatusOK,
		},
		{
			name:       "unlisted origin",
			config:     CORSConfig{AllowedOrigins: []string{"https://app.example.com"}},
			origin:     "https://evil.example.com",
			method:     http.MethodGet,
			wantOrigin: "",
			wantStatus: http.StatusOK,
		},
		{
			name:       "wildcard",
			config:     CORSConfig{AllowedOrigins: []string{"*"}},
			origin:     "https://any.example.com",
			method:     http.MethodGet,
			wantOrigin: "*",
			wantStatus: http.StatusOK,
		},
		{
			name:        "wildcard with credentials echoes origin",
			config:      CORSConfig{AllowedOrigins: []string{"*"}, AllowCredentials: true},
			origin:      "https://any.example.com",
			method:      http.MethodGet,
			wantOrigin:  "https://any.example.com",
			wantStatus:  http.StatusOK,
			wantCredsOn: true,
		},
		{
			name:       "preflight",
			config:     CORSConfig{AllowedOrigins: []string{"https://app.example.com"}},
			origin:     "https://app.example.com",
			method:     http.MethodOptions,
			wantOrigin: "https://app.example.com",
			wantStatus: http.StatusNoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := CORS(tt.config)(okHandler())
			req := httptest.NewRequest(tt.method, "/api/process", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
			assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition")
			if tt.wantCredsOn {
				assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
			}
		})
	}
}

func TestSecureHeaders(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		h := DefaultSecureHeaders().Handler(okHandler())
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		assert.Equal(t, "no-referrer", rec.Header().Get("Referrer-Policy"))
		assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'none'")
		assert.Contains(t, rec.Header().Get("Permissions-Policy"), "camera=()")
		// plain HTTP never gets HSTS
		assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
	})

	t.Run("hsts over tls", func(t *testing.T) {
		h := DefaultSecureHeaders().Handler(okHandler())
		req := httptest.NewRequest(http.MethodGet, "https://localhost/", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "max-age=63072000; includeSubDomains", rec.Header().Get("Strict-Transport-Security"))
	})

	t.Run("dev mode", func(t *testing.T) {
		sh := DefaultSecureHeaders()
		sh.DevMode = true
		rec := httptest.NewRecorder()
		sh.Handler(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Empty(t, rec.Header().Get("Content-Security-Policy"))
		assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	})
}
