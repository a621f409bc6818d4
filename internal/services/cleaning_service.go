package services

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"campaignclean/internal/dataprocessing"
	"campaignclean/internal/files"
	"campaignclean/internal/operations"
	"campaignclean/internal/validation"
	api "campaignclean/pkg/contracts/api/v1"
	"campaignclean/pkg/contracts/domain"
)

// UploadFile is one uploaded part as received from the client.
type UploadFile struct {
	Name    string
	Content io.Reader
}

// UploadResult lists stored names and refused parts.
type UploadResult struct {
	Files    []string
	Rejected []api.RejectedUpload
}

// Artifact is a cleaned output loaded for download.
type Artifact struct {
	Name     string
	Data     []byte
	ModTime  time.Time
	Checksum string
}

// UploadRecorder counts accepted and rejected uploads.
type UploadRecorder interface {
	UploadRecorded(ctx context.Context, accepted bool)
}

type noopUploadRecorder struct{}

func (noopUploadRecorder) UploadRecorded(context.Context, bool) {}

// CleaningService stores uploads, runs cleaning batches and serves their outputs.
type CleaningService struct {
	uploads    files.Store
	outputs    files.Store
	summaries  operations.SummaryStore
	dispatcher *operations.Dispatcher
	validator  *validation.FileValidator
	recorder   UploadRecorder
	maxFiles   int
	logger     *slog.Logger
}

// CleaningOption configures a CleaningService.
type CleaningOption func(*CleaningService)

// WithMaxFiles caps the number of parts per upload and names per batch.
// Zero or less means unlimited.
func WithMaxFiles(n int) CleaningOption {
	return func(s *CleaningService) {
		s.maxFiles = n
	}
}

// WithUploadRecorder sets the upload metrics sink.
func WithUploadRecorder(r UploadRecorder) CleaningOption {
	return func(s *CleaningService) {
		if r != nil {
			s.recorder = r
		}
	}
}

// NewCleaningService creates a cleaning service. The dispatcher must write
// its artifacts to outputs.
func NewCleaningService(
	uploads, outputs files.Store,
	summaries operations.SummaryStore,
	dispatcher *operations.Dispatcher,
	logger *slog.Logger,
	opts ...CleaningOption,
) *CleaningService {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "cleaning_service"))

	s := &CleaningService{
		uploads:    uploads,
		outputs:    outputs,
		summaries:  summaries,
		dispatcher: dispatcher,
		validator:  validation.NewFileValidator(logger),
		recorder:   noopUploadRecorder{},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upload validates and stores every part. Refused parts are reported in the
// result instead of failing the call; only storage failures return an error.
func (s *CleaningService) Upload(ctx context.Context, uploads []UploadFile) (*UploadResult, error) {
	if len(uploads) == 0 {
		return nil, ErrNoFiles
	}
	if s.maxFiles > 0 && len(uploads) > s.maxFiles {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyFiles, len(uploads), s.maxFiles)
	}

	result := &UploadResult{Files: []string{}}
	stored := make(map[string]bool, len(uploads))

	for _, up := range uploads {
		name, err := s.storeUpload(ctx, up)
		if err != nil {
			var rejected *rejectedError
			if !errors.As(err, &rejected) {
				return nil, err
			}
			s.recorder.UploadRecorded(ctx, false)
			result.Rejected = append(result.Rejected, api.RejectedUpload{
				Name:   up.Name,
				Reason: rejected.Error(),
			})
			continue
		}

		s.recorder.UploadRecorded(ctx, true)
		if !stored[name] {
			stored[name] = true
			result.Files = append(result.Files, name)
		}
	}

	s.logger.InfoContext(ctx, "upload finished",
		slog.Int("stored", len(result.Files)),
		slog.Int("rejected", len(result.Rejected)))

	return result, nil
}

type rejectedError struct {
	err error
}

func (e *rejectedError) Error() string { return e.err.Error() }
func (e *rejectedError) Unwrap() error { return e.err }

func (s *CleaningService) storeUpload(ctx context.Context, up UploadFile) (string, error) {
	name := filepath.Base(dataprocessing.SanitizeName(up.Name))
	if err := files.ValidateName(name); err != nil {
		return "", &rejectedError{err: fmt.Errorf("%w: %q", err, up.Name)}
	}

	br := bufio.NewReaderSize(up.Content, validation.SniffLength)
	head, err := br.Peek(validation.SniffLength)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return "", fmt.Errorf("read upload %s: %w", name, err)
	}

	if err := s.validator.ValidateUpload(name, head); err != nil {
		return "", &rejectedError{err: err}
	}

	n, err := s.uploads.Put(ctx, name, br)
	if err != nil {
		return "", &StorageError{Op: "store upload " + name, Err: err}
	}

	s.logger.DebugContext(ctx, "upload stored",
		slog.String("file", name),
		slog.Int64("bytes", n))
	return name, nil
}

// Process cleans the named uploads as one batch. Names without a stored
// upload are listed as skipped. The batch runs to completion even if ctx is
// cancelled, and its summary is saved under a fresh id.
func (s *CleaningService) Process(ctx context.Context, names []string) (*domain.BatchSummary, error) {
	if len(names) == 0 {
		return nil, ErrNoFilesRequested
	}
	if s.maxFiles > 0 && len(names) > s.maxFiles {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyFiles, len(names), s.maxFiles)
	}

	ctx = context.WithoutCancel(ctx)

	var (
		jobs    []operations.Job
		skipped []string
		seen    = make(map[string]bool, len(names))
	)
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		if files.ValidateName(name) != nil {
			skipped = append(skipped, name)
			continue
		}
		ok, err := s.uploads.Exists(ctx, name)
		if err != nil {
			return nil, &StorageError{Op: "check upload " + name, Err: err}
		}
		if !ok {
			skipped = append(skipped, name)
			continue
		}
		jobs = append(jobs, s.uploadJob(name))
	}

	if len(skipped) > 0 {
		s.logger.WarnContext(ctx, "requested files not found in uploads",
			slog.Any("skipped", skipped))
	}

	summary := s.dispatcher.Run(ctx, jobs)
	summary.ID = uuid.NewString()
	summary.Skipped = skipped

	if err := s.summaries.Save(ctx, summary); err != nil {
		return nil, &StorageError{Op: "save batch summary", Err: err}
	}

	s.logger.InfoContext(ctx, "batch stored",
		slog.String("batch_id", summary.ID),
		slog.Int("succeeded", len(summary.Succeeded)),
		slog.Int("failed", len(summary.Failed)),
		slog.Int("skipped", len(summary.Skipped)))

	return summary, nil
}

func (s *CleaningService) uploadJob(name string) operations.Job {
	return operations.Job{
		Name: name,
		Open: func(ctx context.Context) (io.ReadCloser, error) {
			rc, _, err := s.uploads.Open(ctx, name)
			return rc, err
		},
	}
}

// Batch returns a stored batch summary.
func (s *CleaningService) Batch(ctx context.Context, id string) (*domain.BatchSummary, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, operations.ErrSummaryNotFound
	}
	return s.summaries.Get(ctx, id)
}

// Download loads a cleaned output by name.
func (s *CleaningService) Download(ctx context.Context, name string) (*Artifact, error) {
	if err := files.ValidateName(name); err != nil {
		return nil, err
	}

	rc, info, err := s.outputs.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, &StorageError{Op: "read output " + name, Err: err}
	}

	return &Artifact{
		Name:     info.Name,
		Data:     data,
		ModTime:  info.ModTime,
		Checksum: dataprocessing.Checksum(data),
	}, nil
}

// Cleanup removes uploads and outputs older than retention from both stores.
func (s *CleaningService) Cleanup(ctx context.Context, retention time.Duration) (int, error) {
	var errs []error
	total := 0

	for _, ns := range []struct {
		name  string
		store files.Store
	}{
		{"uploads", s.uploads},
		{"outputs", s.outputs},
	} {
		n, err := ns.store.Cleanup(ctx, retention)
		total += n
		if err != nil {
			errs = append(errs, fmt.Errorf("cleanup %s: %w", ns.name, err))
		}
	}

	if total > 0 {
		s.logger.InfoContext(ctx, "expired files removed",
			slog.Int("removed", total),
			slog.Duration("retention", retention))
	}
	return total, errors.Join(errs...)
}
