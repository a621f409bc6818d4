package errors

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// ErrorMiddleware recovers panics and logs every request at a level
// derived from its status code
type ErrorMiddleware struct {
	handler *ErrorHandler
	logger  *slog.Logger
}

// NewErrorMiddleware creates a new error handling middleware
func NewErrorMiddleware(handler *ErrorHandler, logger *slog.Logger) *ErrorMiddleware {
	return &ErrorMiddleware{
		handler: handler,
		logger:  logger.With(slog.String("component", "error_middleware")),
	}
}

// Handler returns the middleware handler function
func (m *ErrorMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				m.handler.HandlePanic(ww, r, rec)
			}
			m.logRequest(r, ww, time.Since(start))
		}()

		next.ServeHTTP(ww, r)
	})
}

func (m *ErrorMiddleware) logRequest(r *http.Request, ww middleware.WrapResponseWriter, duration time.Duration) {
	status := ww.Status()
	if status == 0 {
		status = http.StatusOK
	}

	logLevel := slog.LevelInfo
	if status >= 400 && status < 500 {
		logLevel = slog.LevelWarn
	} else if status >= 500 {
		logLevel = slog.LevelError
	}

	attrs := []slog.Attr{
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.Duration("duration", duration),
		slog.Int("bytes", ww.BytesWritten()),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("user_agent", r.UserAgent()),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	}
	if r.URL.RawQuery != "" {
		attrs = append(attrs, slog.String("query", r.URL.RawQuery))
	}
	if r.ContentLength > 0 {
		attrs = append(attrs, slog.Int64("request_bytes", r.ContentLength))
	}

	m.logger.LogAttrs(r.Context(), logLevel, "http request", attrs...)
}
