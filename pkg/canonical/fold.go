package canonical

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold maps s to the form free-text search compares: combining marks
// stripped and case folded, so "Ёлка" and "елка" fold to the same string.
// Works store the folded title and summary; queries are folded the same way.
func Fold(s string) string {
	// Transformers and casers carry state and are not safe to share.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return cases.Fold().String(out)
}

// SearchText builds the stored search column for a work.
func SearchText(title, summary string) string {
	return Fold(strings.TrimSpace(title)) + "\n" + Fold(strings.TrimSpace(summary))
}
