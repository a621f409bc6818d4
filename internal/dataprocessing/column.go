package dataprocessing

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// CampaignMarker is the header fragment that identifies the campaign-name column.
const CampaignMarker = "キャンペーン"

// ColumnMatcher decides whether a header name is the column to clean.
type ColumnMatcher func(name string) bool

// ContainsMarker matches headers that contain marker verbatim.
func ContainsMarker(marker string) ColumnMatcher {
	return func(name string) bool {
		return strings.Contains(name, marker)
	}
}

// ContainsMarkerFolded matches after NFKC folding both sides, so half-width
// katakana headers such as "ｷｬﾝﾍﾟｰﾝ名" are accepted too.
func ContainsMarkerFolded(marker string) ColumnMatcher {
	folded := norm.NFKC.String(marker)
	return func(name string) bool {
		return strings.Contains(norm.NFKC.String(name), folded)
	}
}

// MatchAny matches when any of the given matchers does.
func MatchAny(matchers ...ColumnMatcher) ColumnMatcher {
	return func(name string) bool {
		for _, m := range matchers {
			if m(name) {
				return true
			}
		}
		return false
	}
}

// NewColumnMatcher builds the matcher for a configured mode ("contains" or "nfkc").
func NewColumnMatcher(mode, marker string) ColumnMatcher {
	if marker == "" {
		marker = CampaignMarker
	}
	if strings.EqualFold(mode, "nfkc") {
		return ContainsMarkerFolded(marker)
	}
	return ContainsMarker(marker)
}

// FindColumn returns the index of the first header accepted by match, or -1.
func FindColumn(header []string, match ColumnMatcher) int {
	for i, name := range header {
		if match(cleanHeader(name)) {
			return i
		}
	}
	return -1
}

func cleanHeader(name string) string {
	return strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
}
