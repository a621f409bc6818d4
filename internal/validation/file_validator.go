package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// SniffLength is how many leading bytes are inspected to detect content type.
const SniffLength = 3072

var (
	// ErrNotCSV is returned for names without a .csv extension.
	ErrNotCSV = errors.New("file is not a CSV file")
	// ErrNotText is returned when the content is detected as binary.
	ErrNotText = errors.New("file content is not text")
)

// FileValidator provides common file validation functions for the server and the CLI
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// HasCSVExtension reports whether name ends in .csv, ignoring case.
func HasCSVExtension(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".csv")
}

// DetectContentType returns the MIME type sniffed from the leading bytes of a file.
func DetectContentType(head []byte) string {
	if len(head) > SniffLength {
		head = head[:SniffLength]
	}
	return mimetype.Detect(head).String()
}

// IsText reports whether head looks like text. Anything detected as a
// descendant of text/plain (text/csv, text/tab-separated-values, ...) counts.
func IsText(head []byte) bool {
	if len(head) == 0 {
		return true
	}
	if len(head) > SniffLength {
		head = head[:SniffLength]
	}
	for m := mimetype.Detect(head); m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

// ValidateUpload checks an uploaded part by name and leading content.
// Empty content is accepted here and reported later by the parser.
func (v *FileValidator) ValidateUpload(name string, head []byte) error {
	if !HasCSVExtension(name) {
		v.logger.Warn("Rejected upload without .csv extension",
			slog.String("file", name),
			slog.String("extension", filepath.Ext(name)))
		return fmt.Errorf("%w: %s", ErrNotCSV, name)
	}

	if !IsText(head) {
		v.logger.Warn("Rejected binary upload",
			slog.String("file", name),
			slog.String("detected", DetectContentType(head)))
		return fmt.Errorf("%w: %s is %s", ErrNotText, name, DetectContentType(head))
	}

	return nil
}

// ValidateOutputDirectory ensures output directory exists or can be created
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	// Try to create directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	// Verify it's writable by creating a test file
	file, err := os.CreateTemp(dir, ".write_test-*")
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	file.Close()
	os.Remove(file.Name())

	v.logger.Debug("Output directory validated",
		slog.String("directory", dir))
	return nil
}

// ValidateFile checks if a specific file exists and is readable
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		v.logger.Error("Failed to stat file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file",
			slog.String("path", path))
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	// Check if file is readable by opening it
	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateCSVFile checks if a file exists and has a .csv extension
func (v *FileValidator) ValidateCSVFile(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}

	if !HasCSVExtension(path) {
		v.logger.Error("File is not a CSV file",
			slog.String("file", path),
			slog.String("extension", filepath.Ext(path)))
		return fmt.Errorf("%w: %s", ErrNotCSV, path)
	}

	return nil
}

// ExpandInputs resolves CLI arguments into CSV file paths. Directories are
// expanded to the .csv files they contain, in name order; plain files are
// validated and kept in argument order.
func (v *FileValidator) ExpandInputs(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", arg, err)
		}

		if !info.IsDir() {
			if err := v.ValidateCSVFile(arg); err != nil {
				return nil, err
			}
			paths = append(paths, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory %s: %w", arg, err)
		}
		found := 0
		for _, entry := range entries {
			if entry.IsDir() || !HasCSVExtension(entry.Name()) {
				continue
			}
			paths = append(paths, filepath.Join(arg, entry.Name()))
			found++
		}
		if found == 0 {
			v.logger.Warn("No CSV files found in directory",
				slog.String("directory", arg))
		}
	}
	return paths, nil
}
