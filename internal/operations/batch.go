package operations

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"campaignclean/internal/dataprocessing"
	"campaignclean/internal/infrastructure"
	"campaignclean/pkg/contracts/domain"
)

// DefaultWorkers is the pool size used when none is configured.
const DefaultWorkers = 4

// Job is one input file of a batch.
type Job struct {
	Name string
	Open func(ctx context.Context) (io.ReadCloser, error)
}

// JobProcessor cleans a single input.
type JobProcessor interface {
	Process(ctx context.Context, src io.Reader, jobName string) (*dataprocessing.Result, error)
}

// ArtifactWriter persists cleaned outputs.
type ArtifactWriter interface {
	Put(ctx context.Context, name string, r io.Reader) (int64, error)
}

// Recorder receives job and batch measurements.
type Recorder interface {
	JobStarted(ctx context.Context)
	JobFinished(ctx context.Context, result domain.JobResult, elapsed time.Duration)
	BatchFinished(ctx context.Context, summary *domain.BatchSummary, elapsed time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) JobStarted(context.Context) {}
func (noopRecorder) JobFinished(context.Context, domain.JobResult, time.Duration) {}
func (noopRecorder) BatchFinished(context.Context, *domain.BatchSummary, time.Duration) {}

// Dispatcher runs the jobs of a batch on a bounded pool of goroutines.
type Dispatcher struct {
	processor JobProcessor
	artifacts ArtifactWriter
	workers   int
	recorder  Recorder
	tracer    trace.Tracer
	logger    *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithWorkers sets the maximum number of jobs running at once.
func WithWorkers(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) DispatcherOption {
	return func(d *Dispatcher) {
		if r != nil {
			d.recorder = r
		}
	}
}

// WithLogger sets the dispatcher logger.
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDispatcher creates a dispatcher writing outputs of processor to artifacts.
func NewDispatcher(processor JobProcessor, artifacts ArtifactWriter, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		processor: processor,
		artifacts: artifacts,
		workers:   DefaultWorkers,
		recorder:  noopRecorder{},
		tracer:    otel.Tracer(infrastructure.InstrumentationName),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With(slog.String("component", "dispatcher"))
	return d
}

// Workers returns the pool size.
func (d *Dispatcher) Workers() int {
	return d.workers
}

// Run processes every job and blocks until all of them have finished.
// Results are kept in submission order. A failing job never affects the
// others, and Run itself cannot fail.
func (d *Dispatcher) Run(ctx context.Context, jobs []Job) *domain.BatchSummary {
	start := time.Now()
	ctx, span := d.tracer.Start(ctx, "batch.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.Int("batch.jobs", len(jobs)),
			attribute.Int("batch.workers", d.workers),
		),
	)
	defer span.End()

	d.logger.InfoContext(ctx, "batch started",
		slog.Int("jobs", len(jobs)),
		slog.Int("workers", d.workers))

	results := make([]domain.JobResult, len(jobs))

	var g errgroup.Group
	g.SetLimit(d.workers)
	for i, job := range jobs {
		g.Go(func() error {
			results[i] = d.runJob(ctx, job)
			return nil
		})
	}
	_ = g.Wait()

	summary := domain.NewBatchSummary(results)
	elapsed := time.Since(start)
	summary.Duration = elapsed.Seconds()
	d.recorder.BatchFinished(ctx, summary, elapsed)

	span.SetAttributes(
		attribute.Int("batch.succeeded", len(summary.Succeeded)),
		attribute.Int("batch.failed", len(summary.Failed)),
	)
	if summary.HasFailures() {
		span.SetStatus(codes.Error, fmt.Sprintf("%d of %d jobs failed", len(summary.Failed), len(jobs)))
	}

	d.logger.InfoContext(ctx, "batch finished",
		slog.Int("succeeded", len(summary.Succeeded)),
		slog.Int("failed", len(summary.Failed)),
		slog.Duration("duration", elapsed))

	return summary
}

// runJob executes one job. Every outcome, including a panic, becomes a result.
func (d *Dispatcher) runJob(ctx context.Context, job Job) (result domain.JobResult) {
	start := time.Now()
	ctx, span := d.tracer.Start(ctx, "batch.job",
		trace.WithAttributes(attribute.String("job.name", job.Name)))
	d.recorder.JobStarted(ctx)

	defer func() {
		if r := recover(); r != nil {
			d.logger.ErrorContext(ctx, "job panicked",
				slog.String("job", job.Name),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			result = d.failure(job.Name, dataprocessing.NewProcessError(
				domain.FailureUnexpectedError, job.Name, fmt.Errorf("panic: %v", r)))
		}

		elapsed := time.Since(start)
		result.Duration = elapsed.Seconds()
		d.recorder.JobFinished(ctx, result, elapsed)

		span.SetAttributes(attribute.String("job.status", string(result.Status)))
		if !result.Succeeded() {
			span.SetStatus(codes.Error, string(result.Kind))
		}
		span.End()
	}()

	out, err := d.process(ctx, job)
	if err != nil {
		perr := dataprocessing.Classify(job.Name, err)
		d.logFailure(ctx, perr)
		infrastructure.RecordError(ctx, perr)
		return d.failure(job.Name, perr)
	}

	d.logger.InfoContext(ctx, "job succeeded",
		slog.String("job", job.Name),
		slog.String("output", out.OutputName),
		slog.Int("rows", out.Rows))

	return domain.JobResult{
		Name:     job.Name,
		Status:   domain.JobStatusSucceeded,
		Output:   out.OutputName,
		Checksum: out.Checksum,
		Rows:     out.Rows,
		Column:   out.Column,
	}
}

func (d *Dispatcher) process(ctx context.Context, job Job) (*dataprocessing.Result, error) {
	src, err := job.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	out, err := d.processor.Process(ctx, src, job.Name)
	if err != nil {
		return nil, err
	}

	if _, err := d.artifacts.Put(ctx, out.OutputName, bytes.NewReader(out.Data)); err != nil {
		return nil, fmt.Errorf("write artifact %s: %w", out.OutputName, err)
	}
	return out, nil
}

func (d *Dispatcher) failure(name string, perr *dataprocessing.ProcessError) domain.JobResult {
	return domain.JobResult{
		Name:   name,
		Status: domain.JobStatusFailed,
		Kind:   perr.Kind,
		Reason: perr.Reason(),
	}
}

func (d *Dispatcher) logFailure(ctx context.Context, perr *dataprocessing.ProcessError) {
	attrs := []any{
		slog.String("job", perr.Job),
		slog.String("kind", string(perr.Kind)),
		slog.String("error", perr.Error()),
	}
	if perr.Kind == domain.FailureUnexpectedError {
		d.logger.ErrorContext(ctx, "job failed", attrs...)
		return
	}
	d.logger.WarnContext(ctx, "job failed", attrs...)
}
