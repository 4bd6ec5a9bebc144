package handlers

import (
	"fmt"

	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/httpd"
	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/wire"
)

const (
	flashEditMaxRead  = 4 * 1024
	flashEditMaxWrite = 64 * 1024
)

// flashReadHandler implements POST /flash/read: a bounded raw read from a
// named target, returned as a space-separated hex dump.
func (d *Deps) flashReadHandler() httpd.HandlerFunc {
	return func(status httpd.Status, req *httpd.Request, resp *httpd.Response) {
		if status != httpd.StatusNew {
			return
		}
		if req.Method != httpd.MethodPost {
			flashErr(resp, 405, "method")
			return
		}

		storageSel, target, ok := flashTargetParams(req)
		if !ok {
			flashErr(resp, 400, "bad_request")
			return
		}
		startStr, sOK := formString(req, "start")
		endStr, eOK := formString(req, "end")
		if !sOK || !eOK {
			flashErr(resp, 400, "bad_request")
			return
		}
		start, err1 := parseSizeLen(startStr)
		end, err2 := parseSizeLen(endStr)
		if err1 != nil || err2 != nil || end <= start {
			flashErr(resp, 400, "bad_range")
			return
		}
		if end-start > flashEditMaxRead {
			flashErr(resp, 413, "too_large")
			return
		}

		t, err := d.Storage.Open(storageSel, target)
		if err != nil {
			flashErr(resp, 404, "target_not_found")
			return
		}
		if end > t.Size {
			flashErr(resp, 400, "bad_range")
			return
		}

		data, err := t.ReadRange(start, end)
		if err != nil {
			d.Metrics.ObserveFlashOp("read", false)
			flashErr(resp, 500, "io")
			return
		}
		d.Metrics.ObserveFlashOp("read", true)

		body := fmt.Sprintf(`{"ok":true,"start":"0x%x","end":"0x%x","size":%d,"data":"%s"}`,
			start, end, len(data), wire.EncodeHexSpaced(data))
		replyJSON(resp, 200, body)
	}
}

// flashWriteHandler implements POST /flash/write: a bounded read-modify-write
// of hex-encoded bytes at a target-relative offset.
func (d *Deps) flashWriteHandler() httpd.HandlerFunc {
	return func(status httpd.Status, req *httpd.Request, resp *httpd.Response) {
		if status != httpd.StatusNew {
			return
		}
		if req.Method != httpd.MethodPost {
			flashErr(resp, 405, "method")
			return
		}

		storageSel, target, ok := flashTargetParams(req)
		if !ok {
			flashErr(resp, 400, "bad_request")
			return
		}
		startStr, sOK := formString(req, "start")
		dataStr, dOK := formString(req, "data")
		if !sOK || !dOK {
			flashErr(resp, 400, "bad_request")
			return
		}

		start, err := parseSizeLen(startStr)
		if err != nil {
			flashErr(resp, 400, "bad_range")
			return
		}
		data, err := wire.DecodeHex(dataStr, flashEditMaxWrite)
		if err != nil {
			flashErr(resp, 400, "bad_hex")
			return
		}

		t, err := d.Storage.Open(storageSel, target)
		if err != nil {
			flashErr(resp, 404, "target_not_found")
			return
		}
		if start+uint64(len(data)) > t.Size {
			flashErr(resp, 400, "bad_range")
			return
		}

		if err := t.WriteRange(start, data); err != nil {
			d.Metrics.ObserveFlashOp("write", false)
			flashErr(resp, 500, "io")
			return
		}
		d.Metrics.ObserveFlashOp("write", true)

		replyJSON(resp, 200, fmt.Sprintf(`{"ok":true,"written":%d}`, len(data)))
	}
}

// flashRestoreHandler implements POST /flash/restore: replace a whole
// [start, end) region with an uploaded backup image. The target, storage
// kind and range are recovered from the uploaded file's name (as produced
// by GET /backup/main) when present, falling back to explicit
// storage/target/start/end form fields otherwise.
func (d *Deps) flashRestoreHandler() httpd.HandlerFunc {
	return func(status httpd.Status, req *httpd.Request, resp *httpd.Response) {
		if status != httpd.StatusNew {
			return
		}
		if req.Method != httpd.MethodPost {
			flashErr(resp, 405, "method")
			return
		}

		fv, ok := req.FormValue("backup")
		if !ok {
			fv, ok = req.FormValue("file")
		}
		if !ok || len(fv.Data) == 0 {
			flashErr(resp, 400, "bad_request")
			return
		}

		var storageSel, target string
		var start, end uint64
		if fv.Filename != "" {
			storageSel, target, start, end, err := parseBackupFilename(fv.Filename)
			if err == nil {
				restoreWithRange(d, resp, storageSel, target, start, end, fv.Data)
				return
			}
		}

		storageSel, target, ok = flashTargetParams(req)
		if !ok {
			flashErr(resp, 400, "bad_request")
			return
		}
		startStr, sOK := formString(req, "start")
		endStr, eOK := formString(req, "end")
		if !sOK || !eOK {
			flashErr(resp, 400, "bad_request")
			return
		}
		var err error
		start, err = parseSizeLen(startStr)
		if err != nil {
			flashErr(resp, 400, "bad_range")
			return
		}
		end, err = parseSizeLen(endStr)
		if err != nil || end <= start {
			flashErr(resp, 400, "bad_range")
			return
		}

		restoreWithRange(d, resp, storageSel, target, start, end, fv.Data)
	}
}

func restoreWithRange(d *Deps, resp *httpd.Response, storageSel, target string, start, end uint64, data []byte) {
	if uint64(len(data)) != end-start {
		flashErr(resp, 400, "bad_range")
		return
	}

	t, err := d.Storage.Open(storageSel, target)
	if err != nil {
		flashErr(resp, 404, "target_not_found")
		return
	}
	if end > t.Size {
		flashErr(resp, 400, "bad_range")
		return
	}

	if err := t.Restore(start, end, data); err != nil {
		d.Metrics.ObserveFlashOp("restore", false)
		flashErr(resp, 500, "io")
		return
	}
	d.Metrics.ObserveFlashOp("restore", true)

	replyJSON(resp, 200, fmt.Sprintf(`{"ok":true,"restored":%d}`, len(data)))
}

// flashTargetParams reads the common storage/target pair, honoring the
// "mtd:<name>"/"mmc:<name>" prefix override convention.
func flashTargetParams(req *httpd.Request) (storageSel, target string, ok bool) {
	storageSel, _ = formString(req, "storage")
	if storageSel == "" {
		storageSel = "auto"
	}
	target, ok = formString(req, "target")
	if !ok || target == "" {
		return "", "", false
	}
	storageSel, target = applyTargetPrefix(storageSel, target)
	return storageSel, target, true
}

func flashErr(resp *httpd.Response, code int, reason string) {
	replyJSON(resp, code, fmt.Sprintf(`{"ok":false,"error":"%s"}`, reason))
}
