package dataprocessing

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/crypto/blake2b"

	"campaignclean/internal/exporter"
	"campaignclean/pkg/contracts/domain"
)

// Result is the cleaned form of one input file.
type Result struct {
	JobName    string
	OutputName string
	Column     string
	Rows       int
	Data       []byte
	Checksum   string
	Dataset    *domain.Dataset
}

// Processor cleans one file at a time. It is safe for concurrent use.
type Processor struct {
	match  ColumnMatcher
	logger *slog.Logger
}

// NewProcessor creates a processor that cleans the first column accepted by match.
func NewProcessor(match ColumnMatcher, logger *slog.Logger) *Processor {
	if match == nil {
		match = ContainsMarker(CampaignMarker)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		match:  match,
		logger: logger.With("component", "processor"),
	}
}

// Process reads src, normalizes the campaign column and returns the cleaned
// file. Every error is a *ProcessError and no partial output is returned.
func (p *Processor) Process(ctx context.Context, src io.Reader, jobName string) (*Result, error) {
	ds, err := ParseDataset(src)
	if err != nil {
		if errors.Is(err, errReadInput) {
			return nil, NewProcessError(domain.FailureUnexpectedError, jobName, err)
		}
		return nil, NewProcessError(domain.FailureParseError, jobName, err)
	}

	cleaned, column, err := p.CleanDataset(ds)
	if err != nil {
		return nil, NewProcessError(domain.FailureColumnNotFound, jobName, err)
	}

	data, err := exporter.EncodeDataset(cleaned)
	if err != nil {
		return nil, NewProcessError(domain.FailureUnexpectedError, jobName, fmt.Errorf("encode output: %w", err))
	}

	p.logger.DebugContext(ctx, "file cleaned",
		slog.String("job", jobName),
		slog.String("column", column),
		slog.Int("rows", len(cleaned.Rows)))

	return &Result{
		JobName:    jobName,
		OutputName: OutputName(jobName),
		Column:     column,
		Rows:       len(cleaned.Rows),
		Data:       data,
		Checksum:   Checksum(data),
		Dataset:    cleaned,
	}, nil
}

// CleanDataset normalizes the column chosen by match and returns a new
// dataset with the name of that column. ds is left untouched, including when
// the column is missing.
func (p *Processor) CleanDataset(ds *domain.Dataset) (*domain.Dataset, string, error) {
	idx := FindColumn(ds.Header, p.match)
	if idx < 0 {
		return nil, "", fmt.Errorf("%w in header %q", ErrColumnNotFound, ds.Header)
	}
	return Clean(ds, idx), ds.Header[idx], nil
}

// Clean returns a copy of ds with column idx normalized row by row.
func Clean(ds *domain.Dataset, idx int) *domain.Dataset {
	out := ds.Clone()
	for _, row := range out.Rows {
		row[idx] = Normalize(row[idx])
	}
	return out
}

// Checksum returns the hex BLAKE2b-256 digest of data.
func Checksum(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
