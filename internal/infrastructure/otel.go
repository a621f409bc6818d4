package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"campaignclean/internal/config"
	"campaignclean/pkg/contracts"
	"campaignclean/pkg/contracts/domain"
)

// InstrumentationName names the tracer and meter of this module.
const InstrumentationName = "campaignclean"

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// InitializeOTel sets up tracing and metrics as configured. Disabled signals
// fall back to no-op implementations so callers never need nil checks.
func InitializeOTel(cfg config.TelemetryConfig, logger *slog.Logger) (*OTelProviders, error) {
	ctx := context.Background()

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(contracts.Version),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	)

	providers := &OTelProviders{
		Tracer: otel.Tracer(InstrumentationName),
		Meter:  noop.NewMeterProvider().Meter(InstrumentationName),
		Logger: logger,
	}

	if cfg.EnableTracing {
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}

		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		)
		providers.TracerProvider = tp
		providers.Tracer = tp.Tracer(InstrumentationName, trace.WithInstrumentationVersion(contracts.Version))
		otel.SetTracerProvider(tp)
	}

	if cfg.EnableMetrics {
		registry := promclient.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
		if err != nil {
			return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
		}

		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)
		providers.MeterProvider = mp
		providers.Meter = mp.Meter(InstrumentationName, metric.WithInstrumentationVersion(contracts.Version))
		providers.PrometheusHTTP = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
		otel.SetMeterProvider(mp)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.InfoContext(ctx, "OpenTelemetry initialized",
		slog.String("service", cfg.ServiceName),
		slog.String("environment", cfg.Environment),
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	return providers, nil
}

// Shutdown gracefully shuts down OpenTelemetry providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}

	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	return errors.Join(errs...)
}

// generateInstanceID generates a unique instance identifier
func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error, options ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.RecordError(err, options...)
	span.SetStatus(codes.Error, err.Error())
}

// CleaningMetrics holds the job and batch instruments.
type CleaningMetrics struct {
	JobsTotal     metric.Int64Counter
	JobDuration   metric.Float64Histogram
	JobsInFlight  metric.Int64UpDownCounter
	BatchesTotal  metric.Int64Counter
	BatchDuration metric.Float64Histogram
	UploadsTotal  metric.Int64Counter
}

// NewCleaningMetrics creates the cleaning instruments on meter.
func NewCleaningMetrics(meter metric.Meter) (*CleaningMetrics, error) {
	m := &CleaningMetrics{}
	var err error

	if m.JobsTotal, err = meter.Int64Counter(
		"campaignclean.jobs.total",
		metric.WithDescription("Cleaning jobs finished, by status and failure kind"),
	); err != nil {
		return nil, err
	}

	if m.JobDuration, err = meter.Float64Histogram(
		"campaignclean.job.duration",
		metric.WithDescription("Time spent cleaning one file"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.JobsInFlight, err = meter.Int64UpDownCounter(
		"campaignclean.jobs.inflight",
		metric.WithDescription("Cleaning jobs currently running"),
	); err != nil {
		return nil, err
	}

	if m.BatchesTotal, err = meter.Int64Counter(
		"campaignclean.batches.total",
		metric.WithDescription("Batches dispatched"),
	); err != nil {
		return nil, err
	}

	if m.BatchDuration, err = meter.Float64Histogram(
		"campaignclean.batch.duration",
		metric.WithDescription("Time spent on a whole batch"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.UploadsTotal, err = meter.Int64Counter(
		"campaignclean.uploads.total",
		metric.WithDescription("Uploaded files, by outcome"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// JobStarted marks one job as running.
func (m *CleaningMetrics) JobStarted(ctx context.Context) {
	m.JobsInFlight.Add(ctx, 1)
}

// JobFinished records the outcome of one job.
func (m *CleaningMetrics) JobFinished(ctx context.Context, result domain.JobResult, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("status", string(result.Status)),
		attribute.String("kind", string(result.Kind)),
	)
	m.JobsInFlight.Add(ctx, -1)
	m.JobsTotal.Add(ctx, 1, attrs)
	m.JobDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// BatchFinished records a completed batch.
func (m *CleaningMetrics) BatchFinished(ctx context.Context, summary *domain.BatchSummary, elapsed time.Duration) {
	m.BatchesTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("has_failures", summary.HasFailures())))
	m.BatchDuration.Record(ctx, elapsed.Seconds())
}

// UploadRecorded counts one uploaded part.
func (m *CleaningMetrics) UploadRecorded(ctx context.Context, accepted bool) {
	outcome := "accepted"
	if !accepted {
		outcome = "rejected"
	}
	m.UploadsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
