package multipart

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func buildBody(boundary string, parts ...string) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, []byte("--"+boundary+"\r\n")...)
		out = append(out, []byte(p)...)
	}
	out = append(out, []byte("--"+boundary+"--\r\n")...)
	return out
}

func TestParseSingleFilePart(t *testing.T) {
	const boundary = "X-BOUNDARY-1"
	body := buildBody(boundary,
		"Content-Disposition: form-data; name=\"firmware\"; filename=\"fw.bin\"\r\n"+
			"Content-Type: application/octet-stream\r\n\r\n"+
			"\x00\x01\x02binarydata\xff\r\n",
	)

	values, err := Parse(boundary, body)
	require.NoError(t, err)
	require.Len(t, values, 1)
	require.Equal(t, "firmware", values[0].Name)
	require.Equal(t, "fw.bin", values[0].Filename)
	require.Equal(t, "application/octet-stream", values[0].ContentType)
	require.Equal(t, []byte("\x00\x01\x02binarydata\xff"), values[0].Data)
}

func TestParseMultiplePartsPreservesOrder(t *testing.T) {
	const boundary = "BBB"
	body := buildBody(boundary,
		"Content-Disposition: form-data; name=\"a\"\r\n\r\nfirst\r\n",
		"Content-Disposition: form-data; name=\"b\"\r\n\r\nsecond\r\n",
	)

	values, err := Parse(boundary, body)
	require.NoError(t, err)
	require.Len(t, values, 2)
	require.Equal(t, "a", values[0].Name)
	require.Equal(t, "first", string(values[0].Data))
	require.Equal(t, "b", values[1].Name)
	require.Equal(t, "second", string(values[1].Data))
}

func TestParseDataAliasesOriginalBuffer(t *testing.T) {
	const boundary = "ZZZ"
	body := buildBody(boundary,
		"Content-Disposition: form-data; name=\"f\"\r\n\r\nhello\r\n",
	)

	values, err := Parse(boundary, body)
	require.NoError(t, err)
	require.Len(t, values, 1)

	body[bytesIndex(body, "hello")] = 'H'
	require.Equal(t, byte('H'), values[0].Data[0], "Data must alias body, not copy it")
}

func bytesIndex(body []byte, s string) int {
	for i := 0; i+len(s) <= len(body); i++ {
		if string(body[i:i+len(s)]) == s {
			return i
		}
	}
	return -1
}

func TestParseMissingOpeningBoundaryFails(t *testing.T) {
	_, err := Parse("NOPE", []byte("garbage with no boundary markers"))
	require.ErrorIs(t, err, ErrMalformed)
}

func TestParseMissingContentDispositionFails(t *testing.T) {
	const boundary = "Q"
	body := buildBody(boundary, "Content-Type: text/plain\r\n\r\nbody\r\n")

	_, err := Parse(boundary, body)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestParseEmptyBodyNoParts(t *testing.T) {
	const boundary = "EMPTY"
	body := []byte("--" + boundary + "--\r\n")

	values, err := Parse(boundary, body)
	require.NoError(t, err)
	require.Empty(t, values)
}
