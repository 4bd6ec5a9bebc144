package handlers

import (
	"bytes"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/httpd"
	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/multipart"
)

func TestBackupInfoHandlerListsConfiguredPartitions(t *testing.T) {
	d := testDeps()
	d.Storage = testFacade()

	req := &httpd.Request{Method: httpd.MethodGet}
	resp := &httpd.Response{}
	d.backupInfoHandler()(httpd.StatusNew, req, resp)

	require.Equal(t, 200, resp.Info.Code)
	body := string(resp.Data)
	require.Contains(t, body, `"mtd":{"present":true`)
	require.Contains(t, body, `"firmware"`)
	require.Contains(t, body, `"mmc":{"present":false,"parts":[]}`)
}

func TestBackupMainHandlerStreamsWholePartition(t *testing.T) {
	d := testDeps()
	d.Config = testConfig()
	d.Storage = testFacade()

	target, err := d.Storage.Open("auto", "firmware")
	require.NoError(t, err)
	payload := bytes.Repeat([]byte{0x5a}, int(target.Size))
	require.NoError(t, target.WriteRange(0, payload))

	req := &httpd.Request{
		Method: httpd.MethodGet,
		Query:  url.Values{"mode": {"part"}, "target": {"firmware"}},
	}
	resp := &httpd.Response{}

	h := d.backupMainHandler()
	h(httpd.StatusNew, req, resp)
	require.Equal(t, httpd.RespCustom, resp.Tag)
	header := string(resp.Data)
	require.Contains(t, header, "200 OK")
	require.Contains(t, header, "attachment; filename=\"backup_mtd_")

	var got []byte
	for {
		h(httpd.StatusResponding, req, resp)
		if resp.Tag != httpd.RespCustom {
			break
		}
		got = append(got, resp.Data...)
	}
	require.Equal(t, payload, got)
}

func TestBackupMainHandlerRejectsUnknownTarget(t *testing.T) {
	d := testDeps()
	d.Config = testConfig()
	d.Storage = testFacade()

	req := &httpd.Request{
		Method: httpd.MethodGet,
		Query:  url.Values{"mode": {"part"}, "target": {"nope"}},
	}
	resp := &httpd.Response{}
	d.backupMainHandler()(httpd.StatusNew, req, resp)

	require.Equal(t, 404, resp.Info.Code)
}

func TestBackupMainHandlerRejectsRangeBeyondTargetSize(t *testing.T) {
	d := testDeps()
	d.Config = testConfig()
	d.Storage = testFacade()

	req := &httpd.Request{
		Method: httpd.MethodGet,
		Query: url.Values{
			"mode":   {"range"},
			"target": {"firmware"},
			"start":  {"0"},
			"end":    {"999999999"},
		},
	}
	resp := &httpd.Response{}
	d.backupMainHandler()(httpd.StatusNew, req, resp)

	require.Equal(t, 400, resp.Info.Code)
}

func TestBackupMainHandlerHonorsTargetPrefixOverride(t *testing.T) {
	d := testDeps()
	d.Config = testConfig()
	d.Storage = testFacade()

	req := &httpd.Request{
		Method: httpd.MethodGet,
		Form: []multipart.FormValue{
			{Name: "mode", Data: []byte("part")},
			{Name: "target", Data: []byte("mtd:firmware")},
		},
	}
	resp := &httpd.Response{}
	d.backupMainHandler()(httpd.StatusNew, req, resp)

	require.Equal(t, httpd.RespCustom, resp.Tag)
}
