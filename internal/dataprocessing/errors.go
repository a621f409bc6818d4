package dataprocessing

import (
	"errors"
	"fmt"

	"campaignclean/pkg/contracts/domain"
)

var (
	// ErrParse means the input could not be read as a CSV table.
	ErrParse = errors.New("input is not a readable CSV table")
	// ErrColumnNotFound means no header contains the campaign marker.
	ErrColumnNotFound = errors.New("campaign column not found")
	// ErrUnexpected covers every other failure while cleaning a file.
	ErrUnexpected = errors.New("unexpected processing failure")
)

// ProcessError is the failure of a single job.
type ProcessError struct {
	Kind domain.FailureKind
	Job  string
	Err  error
}

// NewProcessError wraps err as a failure of the given kind.
func NewProcessError(kind domain.FailureKind, job string, err error) *ProcessError {
	return &ProcessError{Kind: kind, Job: job, Err: err}
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Job, e.Kind, e.Err)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind.
func (e *ProcessError) Is(target error) bool {
	switch target {
	case ErrParse:
		return e.Kind == domain.FailureParseError
	case ErrColumnNotFound:
		return e.Kind == domain.FailureColumnNotFound
	case ErrUnexpected:
		return e.Kind == domain.FailureUnexpectedError
	}
	return false
}

// Reason is the caller-facing explanation. Unexpected failures stay opaque.
func (e *ProcessError) Reason() string {
	switch e.Kind {
	case domain.FailureParseError:
		return fmt.Sprintf("could not read file as CSV: %v", e.Err)
	case domain.FailureColumnNotFound:
		return "no column containing the campaign marker was found"
	default:
		return "internal processing error"
	}
}

// Classify converts any error into a ProcessError for job. Errors that are not
// already classified become unexpected failures.
func Classify(job string, err error) *ProcessError {
	var perr *ProcessError
	if errors.As(err, &perr) {
		return perr
	}
	return NewProcessError(domain.FailureUnexpectedError, job, err)
}
