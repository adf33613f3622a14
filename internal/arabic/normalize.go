// Package arabic normalizes Arabic question text before it enters the
// pipeline, so prompts, classification, and excerpt comparison all see
// one canonical form.
package arabic

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const tatweel = 'ـ'

// normalizer applies NFKC so Arabic presentation forms fold to their
// base letters, then strips combining marks (the harakat diacritics).
var normalizer = transform.Chain(
	norm.NFKC,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Normalize canonicalizes Arabic text: presentation forms are folded,
// diacritics and tatweel are removed, and runs of whitespace collapse
// to single spaces. Non-Arabic text passes through mostly unchanged,
// so mixed-language questions stay intact.
func Normalize(s string) string {
	out, _, err := transform.String(normalizer, s)
	if err != nil {
		// The chain cannot fail on valid UTF-8; fall back to the input
		// rather than losing the question.
		out = s
	}

	var sb strings.Builder
	sb.Grow(len(out))
	space := false
	for _, r := range out {
		switch {
		case r == tatweel:
		case unicode.IsSpace(r):
			space = true
		default:
			if space && sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			space = false
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
