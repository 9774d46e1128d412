package shared

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// FoldText lowercases s, strips combining marks after NFKD decomposition and collapses whitespace.
//
// "  Beyoncé   Knowles " becomes "beyonce knowles".
func FoldText(s string) string {
	decomposed := norm.NFKD.String(s)

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
