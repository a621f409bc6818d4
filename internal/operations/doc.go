// Package operations runs cleaning batches and keeps their summaries.
//
// Dispatcher takes the jobs of one batch and runs them on a bounded pool
// (errgroup with SetLimit). Each job opens its source, runs the
// JobProcessor and writes the cleaned output through the ArtifactWriter.
// Any failure, including a panic, is turned into a failed JobResult for that
// job only. Run returns once every job has finished, with results in
// submission order.
//
// SummaryStore keeps finished batch summaries so clients can fetch them by id:
//
//   - MemorySummaryStore: process-local map with TTL expiry.
//   - RedisSummaryStore: JSON values in Redis, shared between instances.
//
// Example usage:
//
//	processor := dataprocessing.NewProcessor(nil, logger)
//	dispatcher := operations.NewDispatcher(processor, outputs,
//	    operations.WithWorkers(cfg.Batch.Workers),
//	    operations.WithLogger(logger))
//
//	summary := dispatcher.Run(ctx, jobs)
//	summary.ID = uuid.NewString()
//	if err := summaries.Save(ctx, summary); err != nil {
//	    return err
//	}
package operations
