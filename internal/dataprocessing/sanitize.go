package dataprocessing

import (
	"strings"
)

// OutputPrefix is prepended to every cleaned file name.
const OutputPrefix = "cleaned_"

const unsafeNameChars = "<>:\"/\\|?*\x00"

// SanitizeName removes characters that are unsafe in file names and trims
// surrounding whitespace.
func SanitizeName(name string) string {
	clean := strings.Map(func(r rune) rune {
		if strings.ContainsRune(unsafeNameChars, r) {
			return -1
		}
		return r
	}, name)
	return trimText(clean)
}

// OutputName derives the artifact name for a job.
func OutputName(jobName string) string {
	return OutputPrefix + SanitizeName(jobName)
}
