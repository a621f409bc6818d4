package services

import "errors"

// Cleaning service errors
var (
	// Upload errors
	ErrNoFiles      = errors.New("no files uploaded")
	ErrTooManyFiles = errors.New("too many files in one request")

	// Process errors
	ErrNoFilesRequested = errors.New("no files requested")
)

// StorageError reports a failed call to an upload, output or summary store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *StorageError) Unwrap() error { return e.Err }
