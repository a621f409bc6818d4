// Package services implements the business logic between the HTTP handlers
// and the storage, dispatch and validation packages.
//
// CleaningService stores uploads, runs cleaning batches through an
// operations.Dispatcher, keeps batch summaries and serves cleaned artifacts.
// HealthService answers liveness, readiness and version checks.
//
// Services return sentinel errors from this package or the lower layers
// (files.ErrNotFound, operations.ErrSummaryNotFound); handlers translate them
// into problem responses.
package services
