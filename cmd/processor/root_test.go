package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaignclean/internal/shared/testutil"
	"campaignclean/pkg/contracts/domain"
)

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(strings.NewReader(stdin), &stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestCleanCommand(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "cleaned")

	good := writeFile(t, in, "good.csv", testutil.CampaignCSV(t, "123/Spring Sale", "　Promo　"))
	writeFile(t, in, "nocol.csv", testutil.BuildCSV(t, []string{"id", "name"}, []string{"1", "x"}))

	stdout, _, err := execute(t, "", "clean", "--out", out, "--workers", "2", in)
	require.ErrorIs(t, err, errJobsFailed)

	var summary domain.BatchSummary
	require.NoError(t, json.Unmarshal([]byte(stdout), &summary))
	assert.NotEmpty(t, summary.ID)
	assert.Equal(t, []string{"cleaned_good.csv"}, summary.Succeeded)
	require.Len(t, summary.Failed, 1)
	assert.Equal(t, "nocol.csv", summary.Failed[0].Name)
	assert.Equal(t, domain.FailureColumnNotFound, summary.Failed[0].Kind)

	data, err := os.ReadFile(filepath.Join(out, "cleaned_good.csv"))
	require.NoError(t, err)
	assert.Equal(t, testutil.UTF8BOM+"id,キャンペーン名,clicks\n1,Spring Sale,10\n2,Promo,20\n", string(data))
	assert.NoFileExists(t, filepath.Join(out, "cleaned_nocol.csv"))

	// input files are never modified
	original, err := os.ReadFile(good)
	require.NoError(t, err)
	assert.Equal(t, testutil.CampaignCSV(t, "123/Spring Sale", "　Promo　"), original)
}

func TestCleanCommandSucceeds(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	path := writeFile(t, in, "a.csv", testutil.CampaignCSV(t, "1/a"))

	stdout, _, err := execute(t, "", "clean", "-o", out, path)
	require.NoError(t, err)
	assert.Contains(t, stdout, `"cleaned_a.csv"`)
	assert.FileExists(t, filepath.Join(out, "cleaned_a.csv"))
}

func TestCleanCommandSkipsDuplicateNames(t *testing.T) {
	first := writeFile(t, t.TempDir(), "a.csv", testutil.CampaignCSV(t, "1/a"))
	second := writeFile(t, t.TempDir(), "a.csv", testutil.CampaignCSV(t, "2/b"))

	stdout, _, err := execute(t, "", "clean", "-o", t.TempDir(), first, second)
	require.NoError(t, err)

	var summary domain.BatchSummary
	require.NoError(t, json.Unmarshal([]byte(stdout), &summary))
	assert.Equal(t, []string{"cleaned_a.csv"}, summary.Succeeded)
	assert.Equal(t, []string{second}, summary.Skipped)
}

func TestCleanCommandErrors(t *testing.T) {
	dir := t.TempDir()
	txt := writeFile(t, dir, "notes.txt", []byte("hello"))
	empty := t.TempDir()

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no args", []string{"clean"}, "requires at least 1 arg"},
		{"missing file", []string{"clean", filepath.Join(dir, "nope.csv")}, "failed to stat"},
		{"not csv", []string{"clean", txt}, "not a CSV file"},
		{"empty directory", []string{"clean", "-o", t.TempDir(), empty}, "no CSV files to clean"},
		{"bad workers", []string{"clean", "--workers", "0", dir}, "--workers must be at least 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, "", tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNormalizeCommand(t *testing.T) {
	stdout, _, err := execute(t, "", "normalize", "123/Spring Sale", "／Promo", "　春　")
	require.NoError(t, err)
	assert.Equal(t, "Spring Sale\nPromo\n春\n", stdout)
}

func TestNormalizeCommandReadsStdin(t *testing.T) {
	stdout, _, err := execute(t, "１２/A\n\n 45 / B \n", "normalize")
	require.NoError(t, err)
	assert.Equal(t, "A\n\nB\n", stdout)
}
