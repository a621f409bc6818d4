package exporter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"campaignclean/pkg/contracts/domain"
)

// BOM is the UTF-8 byte order mark written at the start of every file.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteDataset writes ds to w as BOM-prefixed UTF-8 CSV.
func WriteDataset(w io.Writer, ds *domain.Dataset) error {
	if ds == nil || len(ds.Header) == 0 {
		return fmt.Errorf("dataset has no header")
	}

	encoded := transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
	writer := csv.NewWriter(encoded)

	if err := writer.Write(ds.Header); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	record := make([]string, len(ds.Header))
	for i, row := range ds.Rows {
		if len(row) != len(ds.Header) {
			return fmt.Errorf("record %d has %d fields, header has %d", i, len(row), len(ds.Header))
		}
		for j, cell := range row {
			record[j] = cell.String
		}

		// A lone empty field would be written as a blank line, which readers skip.
		if len(record) == 1 && record[0] == "" {
			writer.Flush()
			if err := writer.Error(); err != nil {
				return fmt.Errorf("failed to write record %d: %w", i, err)
			}
			if _, err := io.WriteString(encoded, "\"\"\n"); err != nil {
				return fmt.Errorf("failed to write record %d: %w", i, err)
			}
			continue
		}

		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return encoded.Close()
}

// EncodeDataset returns ds as BOM-prefixed UTF-8 CSV bytes.
func EncodeDataset(ds *domain.Dataset) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteDataset(&buf, ds); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
