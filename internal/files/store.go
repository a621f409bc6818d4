package files

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a named object does not exist.
	ErrNotFound = errors.New("file not found")
	// ErrInvalidName is returned for names that are empty or not a single path element.
	ErrInvalidName = errors.New("invalid file name")
)

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Store keeps named blobs.
type Store interface {
	Put(ctx context.Context, name string, r io.Reader) (int64, error)
	Open(ctx context.Context, name string) (io.ReadCloser, ObjectInfo, error)
	Exists(ctx context.Context, name string) (bool, error)
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]ObjectInfo, error)
	Cleanup(ctx context.Context, olderThan time.Duration) (int, error)
}

// ValidateName rejects names that are not a single, plain path element.
func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return ErrInvalidName
	case strings.ContainsAny(name, "/\\\x00"):
		return ErrInvalidName
	case strings.HasPrefix(name, tempPrefix):
		return ErrInvalidName
	}
	return nil
}

// expired reports whether modTime is older than the retention window.
// A zero window expires everything.
func expired(modTime time.Time, olderThan time.Duration, now time.Time) bool {
	if olderThan <= 0 {
		return true
	}
	return modTime.Before(now.Add(-olderThan))
}
