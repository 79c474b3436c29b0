package metatags

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// referencePattern matches something shaped like a character reference at
// the start of a string. isReference decides whether it is one.
var referencePattern = regexp.MustCompile(`^&(?:#[0-9]{1,7}|#[xX][0-9a-fA-F]{1,6}|[a-zA-Z][a-zA-Z0-9]{1,31});`)

// isReference reports whether ref decodes as a single character reference.
// Unknown names stay unchanged when unescaped. Names that start with a
// legacy entity ("&copyshop;") decode only partly and leave the rest of the
// name behind as ASCII letters or digits.
func isReference(ref string) bool {
	if ref[1] == '#' {
		return true
	}
	decoded := html.UnescapeString(ref)
	if decoded == ref {
		return false
	}
	for i := 0; i < len(decoded); i++ {
		c := decoded[i]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' {
			return false
		}
	}
	return true
}

// EscapeHTML escapes & < > " and ' for use in text or a quoted attribute.
// Valid character references are left alone, so
// EscapeHTML(EscapeHTML(s)) == EscapeHTML(s).
func EscapeHTML(s string) string {
	if !strings.ContainsAny(s, `&<>"'`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 16)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '&':
			if ref := referencePattern.FindString(s[i:]); ref != "" && isReference(ref) {
				b.WriteString(ref)
				i += len(ref) - 1
				continue
			}
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		case '\'':
			b.WriteString("&#039;")
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
