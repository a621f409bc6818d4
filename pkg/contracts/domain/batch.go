package domain

import (
	"time"
)

// JobStatus is the terminal state of one cleaning job.
type JobStatus string

const (
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// FailureKind classifies why a job failed.
type FailureKind string

const (
	FailureParseError      FailureKind = "parse_error"
	FailureColumnNotFound  FailureKind = "column_not_found"
	FailureUnexpectedError FailureKind = "unexpected_error"
)

// JobResult is the tagged outcome of a single job. Output, Checksum, Rows and
// Column are set on success; Kind and Reason on failure.
type JobResult struct {
	Name     string      `json:"name"`
	Status   JobStatus   `json:"status"`
	Output   string      `json:"output,omitempty"`
	Checksum string      `json:"checksum,omitempty"`
	Rows     int         `json:"rows,omitempty"`
	Column   string      `json:"column,omitempty"`
	Kind     FailureKind `json:"kind,omitempty"`
	Reason   string      `json:"reason,omitempty"`
	Duration float64     `json:"duration_seconds"`
}

// Succeeded reports whether the job produced an output artifact.
func (r JobResult) Succeeded() bool {
	return r.Status == JobStatusSucceeded
}

// JobFailure is a failed job as listed in a batch summary.
type JobFailure struct {
	Name   string      `json:"name"`
	Kind   FailureKind `json:"kind"`
	Reason string      `json:"reason"`
}

// BatchSummary is the per-batch breakdown returned to callers.
type BatchSummary struct {
	ID        string       `json:"id"`
	CreatedAt time.Time    `json:"created_at"`
	Duration  float64      `json:"duration_seconds"`
	Succeeded []string     `json:"succeeded"`
	Failed    []JobFailure `json:"failed"`
	Skipped   []string     `json:"skipped,omitempty"`
	Results   []JobResult  `json:"results"`
}

// NewBatchSummary builds a summary from results kept in submission order.
func NewBatchSummary(results []JobResult) *BatchSummary {
	s := &BatchSummary{
		CreatedAt: time.Now().UTC(),
		Succeeded: []string{},
		Failed:    []JobFailure{},
		Results:   results,
	}
	for _, r := range results {
		if r.Succeeded() {
			s.Succeeded = append(s.Succeeded, r.Output)
			continue
		}
		s.Failed = append(s.Failed, JobFailure{Name: r.Name, Kind: r.Kind, Reason: r.Reason})
	}
	return s
}

// HasFailures reports whether any job in the batch failed.
func (s *BatchSummary) HasFailures() bool {
	return len(s.Failed) > 0
}
