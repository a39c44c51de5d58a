// Package normalize canonicalizes raw query text and extracts intent labels.
// Normalization is idempotent: Normalize(Normalize(s)) == Normalize(s), which
// keeps exact-match keys stable no matter how often a caller re-normalizes.
package normalize

import (
	"strings"
	"unicode"
)

// Filler tokens that carry no retrieval signal. Kept deliberately small;
// aggressive stopword removal collapses distinct questions onto one key.
var fillers = map[string]struct{}{
	"a": {}, "an": {}, "the": {},
	"please": {}, "pls": {}, "kindly": {},
	"could": {}, "would": {}, "can": {},
	"you": {}, "me": {}, "i": {},
}

// Normalize lowercases, trims and collapses whitespace, strips punctuation at
// token edges, and drops filler tokens.
func Normalize(s string) string {
	fields := strings.Fields(strings.ToLower(s))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool {
			return unicode.IsPunct(r) && r != '_' && r != '-'
		})
		if f == "" {
			continue
		}
		if _, skip := fillers[f]; skip {
			continue
		}
		out = append(out, f)
	}
	return strings.Join(out, " ")
}
