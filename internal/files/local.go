package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// tempPrefix marks in-progress writes inside a store directory.
const tempPrefix = ".partial-"

// LocalStore keeps files in a single directory.
type LocalStore struct {
	root   string
	owned  bool
	logger *slog.Logger
}

// NewLocalStore opens dir as a store, creating it if needed. An empty dir
// creates a temporary directory that Close removes.
func NewLocalStore(dir string, logger *slog.Logger) (*LocalStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	owned := false
	if dir == "" {
		tmp, err := os.MkdirTemp("", "campaignclean-*")
		if err != nil {
			return nil, fmt.Errorf("failed to create temp directory: %w", err)
		}
		dir, owned = tmp, true
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	return &LocalStore{
		root:   abs,
		owned:  owned,
		logger: logger.With("component", "local_store", "root", abs),
	}, nil
}

// Root returns the absolute directory of the store.
func (s *LocalStore) Root() string {
	return s.root
}

// resolve maps name to a path inside the root.
func (s *LocalStore) resolve(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", fmt.Errorf("%w: %q", err, name)
	}
	full := filepath.Join(s.root, name)
	if !strings.HasPrefix(full, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return full, nil
}

// Put writes r to name atomically, replacing any previous content.
func (s *LocalStore) Put(ctx context.Context, name string, r io.Reader) (int64, error) {
	full, err := s.resolve(name)
	if err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(s.root, tempPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return 0, fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return 0, fmt.Errorf("failed to store %s: %w", name, err)
	}

	s.logger.DebugContext(ctx, "file stored", slog.String("name", name), slog.Int64("size", n))
	return n, nil
}

// Open returns a reader for name.
func (s *LocalStore) Open(ctx context.Context, name string) (io.ReadCloser, ObjectInfo, error) {
	full, err := s.resolve(name)
	if err != nil {
		return nil, ObjectInfo{}, err
	}

	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ObjectInfo{}, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, ObjectInfo{}, fmt.Errorf("failed to open %s: %w", name, err)
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, ObjectInfo{}, fmt.Errorf("failed to stat %s: %w", name, err)
	}
	if st.IsDir() {
		f.Close()
		return nil, ObjectInfo{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	return f, ObjectInfo{Name: name, Size: st.Size(), ModTime: st.ModTime()}, nil
}

// Exists reports whether name is stored.
func (s *LocalStore) Exists(ctx context.Context, name string) (bool, error) {
	full, err := s.resolve(name)
	if err != nil {
		return false, err
	}
	st, err := os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !st.IsDir(), nil
}

// Delete removes name.
func (s *LocalStore) Delete(ctx context.Context, name string) error {
	full, err := s.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	return nil
}

// List returns every stored file, skipping in-progress writes.
func (s *LocalStore) List(ctx context.Context) ([]ObjectInfo, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.root, err)
	}

	infos := make([]ObjectInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), tempPrefix) {
			continue
		}
		st, err := entry.Info()
		if err != nil {
			continue
		}
		infos = append(infos, ObjectInfo{Name: entry.Name(), Size: st.Size(), ModTime: st.ModTime()})
	}
	return infos, nil
}

// Cleanup deletes files older than olderThan and returns how many were removed.
// Individual failures are logged and skipped.
func (s *LocalStore) Cleanup(ctx context.Context, olderThan time.Duration) (int, error) {
	infos, err := s.List(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	removed := 0
	for _, info := range infos {
		if !expired(info.ModTime, olderThan, now) {
			continue
		}
		if err := os.Remove(filepath.Join(s.root, info.Name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.ErrorContext(ctx, "failed to delete file", slog.String("name", info.Name), slog.String("error", err.Error()))
			continue
		}
		removed++
	}
	return removed, nil
}

// Close removes the directory if the store created it.
func (s *LocalStore) Close() error {
	if !s.owned {
		return nil
	}
	return os.RemoveAll(s.root)
}
