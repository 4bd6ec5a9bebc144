package httpd

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRequestSimpleGET(t *testing.T) {
	raw := "GET /version?foo=bar HTTP/1.1\r\nHost: 10.0.0.1\r\nConnection: close\r\n\r\n"
	req, err := ParseRequest(bufio.NewReader(strings.NewReader(raw)), 1<<20)
	require.NoError(t, err)
	require.Equal(t, MethodGet, req.Method)
	require.Equal(t, "/version", req.Path)
	require.Equal(t, "bar", req.Query.Get("foo"))

	host, ok := req.Header("host")
	require.True(t, ok)
	require.Equal(t, "10.0.0.1", host)
}

func TestParseRequestWithBody(t *testing.T) {
	raw := "POST /env/set HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello"
	req, err := ParseRequest(bufio.NewReader(strings.NewReader(raw)), 1<<20)
	require.NoError(t, err)
	require.Equal(t, MethodPost, req.Method)
	require.Equal(t, []byte("hello"), req.Body)
}

func TestParseRequestRejectsBodyOverCap(t *testing.T) {
	raw := "POST /upload HTTP/1.1\r\nContent-Length: 100\r\n\r\n" + strings.Repeat("x", 100)
	_, err := ParseRequest(bufio.NewReader(strings.NewReader(raw)), 10)
	require.Error(t, err)
}

func TestParseRequestMultipartForm(t *testing.T) {
	boundary := "XYZ"
	body := "--" + boundary + "\r\n" +
		"Content-Disposition: form-data; name=\"firmware\"; filename=\"fw.bin\"\r\n" +
		"Content-Type: application/octet-stream\r\n\r\n" +
		"\x01\x02\x03\r\n" +
		"--" + boundary + "--\r\n"

	raw := "POST /upload HTTP/1.1\r\n" +
		"Content-Type: multipart/form-data; boundary=" + boundary + "\r\n" +
		"Content-Length: " + itoa(len(body)) + "\r\n\r\n" + body

	req, err := ParseRequest(bufio.NewReader(strings.NewReader(raw)), 1<<20)
	require.NoError(t, err)
	require.Len(t, req.Form, 1)

	fv, ok := req.FormValue("firmware")
	require.True(t, ok)
	require.Equal(t, "fw.bin", fv.Filename)
	require.Equal(t, []byte{0x01, 0x02, 0x03}, fv.Data)
}

func TestParseRequestMalformedRequestLineFails(t *testing.T) {
	_, err := ParseRequest(bufio.NewReader(strings.NewReader("garbage\r\n\r\n")), 1<<20)
	require.Error(t, err)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
