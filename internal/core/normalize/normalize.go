// Package normalize cleans free text reviewers attach to decisions
// Pipeline order
// 1 UTF-8 repair drop invalid bytes
// 2 Unicode NFC normalization
// 3 Remove format characters (ZWJ, ZWNJ, BOM, bidi overrides)
// 4 Width fold fullwidth forms
// 5 Drop control characters except line breaks and tabs
// 6 Collapse horizontal whitespace per line, keep at most one blank line, trim
package normalize

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// chains are stateful so each caller borrows its own
var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFC,
			runes.Remove(runes.In(unicode.Cf)),
			width.Fold,
			runes.Remove(runes.Predicate(func(r rune) bool {
				return unicode.IsControl(r) && r != '\n' && r != '\t'
			})),
		)
	},
}

// Text returns the normalized form of s following the pipeline above
func Text(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToValidUTF8(s, "")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	tr := chainPool.Get().(transform.Transformer)
	ns, _, err := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)
	if err != nil {
		ns = s
	}
	return collapse(ns)
}

// Len counts runes, which is what length limits are expressed in
func Len(s string) int { return utf8.RuneCountInString(s) }

// collapse folds blanks inside lines and squeezes blank line runs to one
func collapse(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, ln := range lines {
		ln = strings.Join(strings.Fields(ln), " ")
		if ln == "" {
			if blank || len(out) == 0 {
				continue
			}
			blank = true
			out = append(out, "")
			continue
		}
		blank = false
		out = append(out, ln)
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}
