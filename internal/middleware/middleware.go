package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	apierrors "campaignclean/internal/errors"
	"campaignclean/internal/infrastructure"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestID middleware assigns a UUID to every request unless the client
// sent one. The ID is stored where chi's middleware.GetReqID finds it and
// becomes the trace_id used in logs.
// This should be the FIRST middleware in the chain.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.New().String()
		}

		w.Header().Set(RequestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, requestID)
		ctx = infrastructure.WithTraceID(ctx, requestID)

		// If there's an active span, use its trace ID instead
		if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
			ctx = infrastructure.WithTraceID(ctx, span.SpanContext().TraceID().String())
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from context, falling back to the trace ID
func GetRequestID(ctx context.Context) string {
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		return reqID
	}
	return infrastructure.GetTraceID(ctx)
}

// RateLimiter provides rate limiting functionality with logging
type RateLimiter struct {
	limiter *rate.Limiter
	handler *apierrors.ErrorHandler
	logger  *slog.Logger
}

// NewRateLimiter creates a new rate limiter with logging
func NewRateLimiter(rps float64, burst int, handler *apierrors.ErrorHandler, logger *slog.Logger) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		handler: handler,
		logger:  logger,
	}
}

// Handler implements rate limiting middleware
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.limiter.Allow() {
			rl.logger.WarnContext(r.Context(), "rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)
			w.Header().Set("Retry-After", "1")
			rl.handler.HandleError(w, r, apierrors.ErrRateLimitExceeded)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// BodyLimit caps request bodies at maxBytes. Declared lengths over the limit
// are rejected up front; streamed bodies fail with *http.MaxBytesError when
// read past it.
func BodyLimit(maxBytes int64, handler *apierrors.ErrorHandler) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				handler.HandleError(w, r, &http.MaxBytesError{Limit: maxBytes})
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Timeout bounds the time a handler may take. The handler's output is
// buffered by http.TimeoutHandler, so only use it on routes with small responses.
func Timeout(timeout time.Duration, logger *slog.Logger) func(next http.Handler) http.Handler {
	body := `{"type":"/errors/timeout","title":"Request Timeout","status":503,"detail":"The request took too long to process"}`
	return func(next http.Handler) http.Handler {
		th := http.TimeoutHandler(next, timeout, body)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			th.ServeHTTP(w, r)
			if elapsed := time.Since(start); elapsed >= timeout {
				logger.ErrorContext(r.Context(), "request timeout",
					"method", r.Method,
					"path", r.URL.Path,
					"timeout", timeout.String(),
				)
			}
		})
	}
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
	Logger           *slog.Logger
}

// CORS middleware with logging
func CORS(config CORSConfig) func(next http.Handler) http.Handler {
	if len(config.AllowedMethods) == 0 {
		config.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(config.AllowedHeaders) == 0 {
		config.AllowedHeaders = []string{"Accept", "Content-Type", RequestIDHeader}
	}
	if len(config.ExposedHeaders) == 0 {
		config.ExposedHeaders = []string{"Content-Disposition", RequestIDHeader}
	}
	if config.MaxAge == 0 {
		config.MaxAge = 300
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed := len(config.AllowedOrigins) == 0
			wildcard := false
			for _, allowedOrigin := range config.AllowedOrigins {
				if allowedOrigin == "*" {
					allowed, wildcard = true, true
					break
				}
				if strings.EqualFold(allowedOrigin, origin) {
					allowed = true
					break
				}
			}

			switch {
			case wildcard && !config.AllowCredentials:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case allowed && origin != "":
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}

			w.Header().Set("Access-Control-Allow-Methods", strings.Join(config.AllowedMethods, ", "))
			w.Header().Set("Access-Control-Allow-Headers", strings.Join(config.AllowedHeaders, ", "))
			w.Header().Set("Access-Control-Expose-Headers", strings.Join(config.ExposedHeaders, ", "))
			if config.AllowCredentials {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}
			w.Header().Set("Access-Control-Max-Age", strconv.Itoa(config.MaxAge))

			if r.Method == http.MethodOptions {
				if config.Logger != nil {
					config.Logger.DebugContext(r.Context(), "CORS preflight request",
						"origin", origin,
						"allowed", allowed,
					)
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Compress provides response compression middleware using Chi's implementation
func Compress(level int, types ...string) func(next http.Handler) http.Handler {
	return middleware.Compress(level, types...)
}

// RealIP extracts the real client IP using Chi's implementation
func RealIP(next http.Handler) http.Handler {
	return middleware.RealIP(next)
}

// StripSlashes removes trailing slashes from requests
func StripSlashes(next http.Handler) http.Handler {
	return middleware.StripSlashes(next)
}
