package dataprocessing

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"

	"campaignclean/pkg/contracts/domain"
)

var (
	errReadInput    = errors.New("read input")
	errEmptyInput   = errors.New("file is empty")
	errInvalidUTF8  = errors.New("file is not valid UTF-8")
	errDuplicateCol = errors.New("duplicate column name")
)

// ParseDataset reads a UTF-8 CSV table with an optional leading byte order
// mark. The first record is the header. Empty fields become missing cells,
// short rows are padded with missing cells and long rows are rejected.
func ParseDataset(r io.Reader) (*domain.Dataset, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errReadInput, err)
	}
	return parseBytes(raw)
}

func parseBytes(raw []byte) (*domain.Dataset, error) {
	if !utf8.Valid(raw) {
		return nil, errInvalidUTF8
	}

	text, err := unicode.UTF8BOM.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, fmt.Errorf("decode input: %w", err)
	}
	if len(bytes.TrimSpace(text)) == 0 {
		return nil, errEmptyInput
	}

	reader := csv.NewReader(bytes.NewReader(text))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	header, err = normalizeHeader(header)
	if err != nil {
		return nil, err
	}

	ds := &domain.Dataset{Header: header, Rows: [][]domain.Cell{}}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		if len(record) > len(header) {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("line %d: expected %d fields, saw %d", line, len(header), len(record))
		}

		row := make([]domain.Cell, len(header))
		for i := range row {
			if i < len(record) && record[i] != "" {
				row[i] = domain.Text(record[i])
			} else {
				row[i] = domain.Missing()
			}
		}
		ds.Rows = append(ds.Rows, row)
	}

	return ds, nil
}

// normalizeHeader names blank headers after their position and rejects duplicates.
func normalizeHeader(header []string) ([]string, error) {
	out := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, name := range header {
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: %q", errDuplicateCol, name)
		}
		seen[name] = true
		out[i] = name
	}
	return out, nil
}
