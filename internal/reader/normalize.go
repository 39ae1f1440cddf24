package reader

import (
	"strings"
	"unicode"
)

// NormalizeHeader converts a raw CSV header cell into the canonical
// lower-case, underscore-separated form used everywhere downstream, so no
// later stage depends on the exact header text the tag firmware emitted.
// Runs of whitespace and punctuation collapse to one underscore, and
// camel-case boundaries are split.
//
//	"DeployID"              -> "deploy_id"
//	"Error Semi-major axis" -> "error_semi_major_axis"
//	"Time Offset"           -> "time_offset"
func NormalizeHeader(raw string) string {
	var b strings.Builder
	lastSep := true
	var prev rune
	for _, r := range strings.TrimSpace(raw) {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			if !lastSep {
				b.WriteByte('_')
				lastSep = true
			}
			prev = r
			continue
		}
		if unicode.IsUpper(r) && (unicode.IsLower(prev) || unicode.IsDigit(prev)) && !lastSep {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
		lastSep = false
		prev = r
	}
	return strings.TrimRight(b.String(), "_")
}

// NormalizeHeaders normalizes every cell of a header row.
func NormalizeHeaders(raw []string) []string {
	out := make([]string, len(raw))
	for i, h := range raw {
		out[i] = NormalizeHeader(h)
	}
	return out
}
