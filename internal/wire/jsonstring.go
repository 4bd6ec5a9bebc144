package wire

import "strings"

// EscapeJSONString escapes s for embedding inside a JSON string literal
// (the quotes are NOT added). Backslash and double-quote are escaped;
// newline, carriage return and tab become their standard short escapes;
// every other control byte (0x00-0x1F) is replaced with a single space so
// console transcripts and part headers can never break JSON framing.
//
// Ported from the original's NUL-terminated C buffer convention: Go strings
// carry their own length, so there is no trailing NUL to produce here.
func EscapeJSONString(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"' || c == '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\r':
			b.WriteString(`\r`)
		case c == '\t':
			b.WriteString(`\t`)
		case c < 0x20:
			b.WriteByte(' ')
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
