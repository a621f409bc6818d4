package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "report.csv", want: "report.csv"},
		{name: "unsafe characters", input: `a<b>c:d"e/f\g|h?i*j.csv`, want: "abcdefghij.csv"},
		{name: "null byte", input: "rep\x00ort.csv", want: "report.csv"},
		{name: "surrounding whitespace", input: "  report.csv \t", want: "report.csv"},
		{name: "japanese kept", input: "キャンペーン一覧.csv", want: "キャンペーン一覧.csv"},
		{name: "only unsafe", input: "<>|", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeName(tt.input))
		})
	}
}

func TestOutputName(t *testing.T) {
	assert.Equal(t, "cleaned_report.csv", OutputName("report.csv"))
	assert.Equal(t, "cleaned_2024report.csv", OutputName(" 2024/report.csv "))
}
