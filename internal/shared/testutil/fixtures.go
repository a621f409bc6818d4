package testutil

import (
	"bytes"
	"encoding/csv"
	"mime/multipart"
	"strconv"
	"testing"
)

// UTF8BOM is the byte order mark written at the start of cleaned files.
const UTF8BOM = "\ufeff"

// CampaignHeader is the header used by the sample files.
var CampaignHeader = []string{"id", "キャンペーン名", "clicks"}

// CampaignCSV builds a CSV file with CampaignHeader and one row per campaign name.
func CampaignCSV(t testing.TB, names ...string) []byte {
	t.Helper()
	rows := make([][]string, 0, len(names))
	for i, name := range names {
		rows = append(rows, []string{strconv.Itoa(i + 1), name, strconv.Itoa((i + 1) * 10)})
	}
	return BuildCSV(t, CampaignHeader, rows...)
}

// BuildCSV encodes header and rows as CSV without a BOM.
func BuildCSV(t testing.TB, header []string, rows ...[]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		t.Fatalf("write header: %v", err)
	}
	if err := w.WriteAll(rows); err != nil {
		t.Fatalf("write rows: %v", err)
	}
	return buf.Bytes()
}

// MultipartFile is one part of a multipart upload.
type MultipartFile struct {
	Field   string
	Name    string
	Content []byte
}

// MultipartBody encodes files as a multipart/form-data body and returns it
// with its content type.
func MultipartBody(t testing.TB, files ...MultipartFile) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		field := f.Field
		if field == "" {
			field = "files[]"
		}
		part, err := mw.CreateFormFile(field, f.Name)
		if err != nil {
			t.Fatalf("create part %s: %v", f.Name, err)
		}
		if _, err := part.Write(f.Content); err != nil {
			t.Fatalf("write part %s: %v", f.Name, err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

