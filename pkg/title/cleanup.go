package title

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// isBidiMark matches the directional marks browsers and editors paste into
// link text.
func isBidiMark(r rune) bool {
	switch {
	case r == '\u200e', r == '\u200f':
		return true
	case r >= '\u202a' && r <= '\u202e':
		return true
	case r >= '\u2066' && r <= '\u2069':
		return true
	}
	return false
}

// cleanup turns raw link text into the form the splitter works on:
// underscores and any Unicode space become a single ASCII space, control
// characters and bidi marks are dropped, and the result is NFC-normalized
// and trimmed.
func cleanup(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	pendingSpace := false
	for _, r := range norm.NFC.String(text) {
		switch {
		case r == '_' || unicode.IsSpace(r):
			pendingSpace = sb.Len() > 0
			continue
		case isBidiMark(r), unicode.IsControl(r), r == '\ufeff':
			continue
		}
		if pendingSpace {
			sb.WriteByte(' ')
			pendingSpace = false
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// cleanFragment reads underscores as spaces and trims the ends.
func cleanFragment(fragment string) string {
	return strings.TrimSpace(strings.ReplaceAll(fragment, "_", " "))
}
