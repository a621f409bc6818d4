package dataprocessing

import (
	"regexp"
	"strings"
	"unicode"

	"campaignclean/pkg/contracts/domain"
)

// Character classes shared by the prefix rules. Digits and whitespace are
// Unicode-aware so full-width digits and ideographic spaces are covered, and
// the whitespace class is the same set trimText removes.
const (
	digit = `\p{Nd}`
	space = `[\t\n\v\f\r\x1c-\x1f\x{85}\p{Z}]`
	slash = `[/／]`
)

// prefixRules are applied once each, in order. The compound digit/slash rule
// is kept even though the run rule before it usually consumes the same text.
var prefixRules = []*regexp.Regexp{
	regexp.MustCompile(`^` + digit + `+` + slash),
	regexp.MustCompile(`^` + digit + `+` + space + `*` + slash),
	regexp.MustCompile(`^(?:` + digit + `|` + space + `|` + slash + `)+`),
	regexp.MustCompile(`^` + slash + `+`),
	regexp.MustCompile(`^` + digit + `+` + slash + digit + `+` + slash),
}

// leadingSlashes removes whatever slash run survived the rules above.
var leadingSlashes = regexp.MustCompile(`^` + slash + `+`)

// Normalize cleans a campaign-name cell. Missing cells are returned as is.
func Normalize(c domain.Cell) domain.Cell {
	if !c.Valid {
		return c
	}
	return domain.Text(NormalizeText(c.String))
}

// NormalizeText strips the recognised numeric and slash prefixes from s and
// trims surrounding whitespace. It never fails and NormalizeText(NormalizeText(s))
// equals NormalizeText(s).
func NormalizeText(s string) string {
	cleaned := s
	for _, rule := range prefixRules {
		cleaned = rule.ReplaceAllLiteralString(cleaned, "")
	}
	cleaned = leadingSlashes.ReplaceAllLiteralString(cleaned, "")
	return trimText(cleaned)
}

func trimText(s string) string {
	return strings.TrimFunc(s, isSpace)
}

func isSpace(r rune) bool {
	return unicode.IsSpace(r) || unicode.Is(unicode.Z, r) || (r >= 0x1c && r <= 0x1f)
}
