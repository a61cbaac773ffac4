// Package strings holds small text helpers shared by the CLI and the
// authorities.
package strings

import (
	"strings"
)

// TokenLabelMaxLen bounds the names the helper gives tokens it creates on
// a provider (DevOps display names, GitHub notes).
const TokenLabelMaxLen = 100

// minLabelLen leaves room for one character plus the ellipsis.
const minLabelLen = 4

// Label returns s on a single line, with runs of whitespace collapsed to
// one space, cut to at most maxLen runes. A cut is marked with "...".
func Label(s string, maxLen int) string {
	if maxLen < minLabelLen {
		maxLen = minLabelLen
	}

	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
