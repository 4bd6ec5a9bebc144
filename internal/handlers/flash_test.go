package handlers

import (
	"bytes"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/httpd"
	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/multipart"
)

func TestFlashReadHandlerReturnsHexDump(t *testing.T) {
	d := testDeps()
	d.Storage = testFacade()

	target, err := d.Storage.Open("auto", "firmware")
	require.NoError(t, err)
	payload := []byte{0xde, 0xad, 0xbe, 0xef}
	require.NoError(t, target.WriteRange(0, payload))

	req := &httpd.Request{
		Method: httpd.MethodPost,
		Query:  url.Values{"target": {"firmware"}, "start": {"0"}, "end": {"4"}},
	}
	resp := &httpd.Response{}
	d.flashReadHandler()(httpd.StatusNew, req, resp)

	require.Equal(t, 200, resp.Info.Code)
	require.Contains(t, string(resp.Data), `"data":"de ad be ef"`)
}

func TestFlashReadHandlerRejectsOversizedRange(t *testing.T) {
	d := testDeps()
	d.Storage = testFacade()

	req := &httpd.Request{
		Method: httpd.MethodPost,
		Query:  url.Values{"target": {"firmware"}, "start": {"0"}, "end": {"100000"}},
	}
	resp := &httpd.Response{}
	d.flashReadHandler()(httpd.StatusNew, req, resp)

	require.Equal(t, 413, resp.Info.Code)
}

func TestFlashWriteHandlerWritesDecodedHex(t *testing.T) {
	d := testDeps()
	d.Storage = testFacade()

	req := &httpd.Request{
		Method: httpd.MethodPost,
		Query: url.Values{
			"target": {"firmware"},
			"start":  {"0x1000"},
			"data":   {"deadbeef"},
		},
	}
	resp := &httpd.Response{}
	d.flashWriteHandler()(httpd.StatusNew, req, resp)

	require.Equal(t, 200, resp.Info.Code)
	require.Contains(t, string(resp.Data), `"written":4`)

	target, err := d.Storage.Open("auto", "firmware")
	require.NoError(t, err)
	got, err := target.ReadRange(0x1000, 0x1004)
	require.NoError(t, err)
	require.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, got)
}

func TestFlashWriteHandlerRejectsBadHex(t *testing.T) {
	d := testDeps()
	d.Storage = testFacade()

	req := &httpd.Request{
		Method: httpd.MethodPost,
		Query:  url.Values{"target": {"firmware"}, "start": {"0"}, "data": {"zz"}},
	}
	resp := &httpd.Response{}
	d.flashWriteHandler()(httpd.StatusNew, req, resp)

	require.Equal(t, 400, resp.Info.Code)
	require.Contains(t, string(resp.Data), "bad_hex")
}

func TestFlashRestoreHandlerInfersTargetFromFilename(t *testing.T) {
	d := testDeps()
	d.Storage = testFacade()

	payload := bytes.Repeat([]byte{0x11}, 0x1000)
	req := &httpd.Request{
		Method: httpd.MethodPost,
		Form: []multipart.FormValue{
			{Name: "backup", Filename: "backup_mtd_generic_firmware_0x0-0x1000.bin", Data: payload},
		},
	}
	resp := &httpd.Response{}
	d.flashRestoreHandler()(httpd.StatusNew, req, resp)

	require.Equal(t, 200, resp.Info.Code)
	require.Contains(t, string(resp.Data), `"restored":4096`)

	target, err := d.Storage.Open("auto", "firmware")
	require.NoError(t, err)
	got, err := target.ReadRange(0, 0x1000)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestFlashRestoreHandlerFallsBackToExplicitFields(t *testing.T) {
	d := testDeps()
	d.Storage = testFacade()

	payload := bytes.Repeat([]byte{0x22}, 0x1000)
	req := &httpd.Request{
		Method: httpd.MethodPost,
		Query:  url.Values{"target": {"firmware"}, "start": {"0"}, "end": {"0x1000"}},
		Form: []multipart.FormValue{
			{Name: "backup", Filename: "not_parseable.bin", Data: payload},
		},
	}
	resp := &httpd.Response{}
	d.flashRestoreHandler()(httpd.StatusNew, req, resp)

	require.Equal(t, 200, resp.Info.Code)
	require.Contains(t, string(resp.Data), `"restored":4096`)
}

func TestFlashRestoreHandlerRejectsSizeMismatch(t *testing.T) {
	d := testDeps()
	d.Storage = testFacade()

	req := &httpd.Request{
		Method: httpd.MethodPost,
		Query:  url.Values{"target": {"firmware"}, "start": {"0"}, "end": {"0x1000"}},
		Form: []multipart.FormValue{
			{Name: "backup", Filename: "not_parseable.bin", Data: []byte{1, 2, 3}},
		},
	}
	resp := &httpd.Response{}
	d.flashRestoreHandler()(httpd.StatusNew, req, resp)

	require.Equal(t, 400, resp.Info.Code)
}
