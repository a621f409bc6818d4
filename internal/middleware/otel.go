package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"campaignclean/internal/infrastructure"
)

// OTelMiddleware provides OpenTelemetry instrumentation for HTTP requests
type OTelMiddleware struct {
	tracer   trace.Tracer
	logger   *slog.Logger
	requests metric.Int64Counter
	duration metric.Float64Histogram
	active   metric.Int64UpDownCounter
}

// NewOTelMiddleware creates a new OpenTelemetry middleware
func NewOTelMiddleware(providers *infrastructure.OTelProviders) (*OTelMiddleware, error) {
	meter := providers.Meter

	requests, err := meter.Int64Counter("http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total: %w", err)
	}

	duration, err := meter.Float64Histogram("http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds: %w", err)
	}

	active, err := meter.Int64UpDownCounter("http_active_requests",
		metric.WithDescription("Number of in-flight HTTP requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_active_requests: %w", err)
	}

	logger := providers.Logger
	if logger == nil {
		logger = infrastructure.DiscardLogger()
	}

	return &OTelMiddleware{
		tracer:   providers.Tracer,
		logger:   logger,
		requests: requests,
		duration: duration,
		active:   active,
	}, nil
}

// Handler returns the middleware handler function
func (m *OTelMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		ctx, span := m.tracer.Start(ctx, r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(r.Method),
				semconv.URLPath(r.URL.Path),
				semconv.ServerAddressKey.String(r.Host),
				semconv.UserAgentOriginalKey.String(r.UserAgent()),
				semconv.HTTPRequestBodySizeKey.Int64(r.ContentLength),
				semconv.ClientAddressKey.String(r.RemoteAddr),
			),
		)
		defer span.End()

		if sc := span.SpanContext(); sc.IsValid() {
			ctx = infrastructure.WithTraceID(ctx, sc.TraceID().String())
		}
		r = r.WithContext(ctx)

		m.active.Add(ctx, 1)
		defer m.active.Add(ctx, -1)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		elapsed := time.Since(start)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := routePattern(r)

		attrs := metric.WithAttributes(
			attribute.String("method", r.Method),
			attribute.String("route", route),
			attribute.Int("status_code", status),
		)
		m.requests.Add(ctx, 1, attrs)
		m.duration.Record(ctx, elapsed.Seconds(), attrs)

		span.SetName(r.Method + " " + route)
		span.SetAttributes(
			semconv.HTTPRouteKey.String(route),
			semconv.HTTPResponseStatusCodeKey.Int(status),
			semconv.HTTPResponseBodySizeKey.Int(ww.BytesWritten()),
		)
		if status >= 500 {
			span.SetStatus(codes.Error, http.StatusText(status))
		}

		m.logger.DebugContext(ctx, "http request traced",
			slog.String("route", route),
			slog.Int("status_code", status),
			slog.Duration("duration", elapsed),
		)
	})
}

// routePattern returns the matched chi route, which keeps metric cardinality
// bounded for parameterised paths such as /api/download/{filename}.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
