// Package wire implements the small, size-capped hex and JSON-string
// encoding helpers the recovery endpoints use to put raw flash bytes and
// console text on the wire. Both are hand-rolled rather than delegated
// to encoding/json: the endpoint catalog bounds read/write sizes (4 KiB
// reads, 64 KiB writes) and the parser must reject oversized input before
// allocating the decoded output, which a generic decoder does not do for us.
package wire

import (
	"errors"
	"strings"
)

// ErrTooLarge is returned when decoded or requested data would exceed the
// caller-supplied size cap.
var ErrTooLarge = errors.New("wire: data exceeds size cap")

// ErrMalformed is returned for hex input that is not well-formed.
var ErrMalformed = errors.New("wire: malformed hex data")

const hexDigits = "0123456789abcdef"

// EncodeHexSpaced renders data as lowercase, space-separated hex byte pairs,
// e.g. []byte{0xde, 0xad} -> "de ad". This is the format /flash/read puts in
// its JSON "data" field.
func EncodeHexSpaced(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	var b strings.Builder
	b.Grow(len(data)*3 - 1)
	for i, v := range data {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteByte(hexDigits[v>>4])
		b.WriteByte(hexDigits[v&0x0f])
	}
	return b.String()
}

// DecodeHex decodes a hex string into bytes, rejecting the request outright
// if the decoded length would exceed maxLen. Whitespace between byte pairs
// (as produced by EncodeHexSpaced) is tolerated; a run of hex digits with no
// separators (as /flash/write's "data" field uses) is accepted the same way.
func DecodeHex(s string, maxLen int) ([]byte, error) {
	digits := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			continue
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
			digits = append(digits, c)
		default:
			return nil, ErrMalformed
		}
	}
	if len(digits)%2 != 0 {
		return nil, ErrMalformed
	}
	n := len(digits) / 2
	if maxLen >= 0 && n > maxLen {
		return nil, ErrTooLarge
	}

	out := make([]byte, n)
	for i := 0; i < n; i++ {
		hi, ok := hexVal(digits[2*i])
		if !ok {
			return nil, ErrMalformed
		}
		lo, ok := hexVal(digits[2*i+1])
		if !ok {
			return nil, ErrMalformed
		}
		out[i] = hi<<4 | lo
	}
	return out, nil
}

func hexVal(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}
