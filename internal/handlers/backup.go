package handlers

import (
	"fmt"
	"strings"

	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/httpd"
	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/storage"
)

const backupChunkSize = 64 * 1024

// backupInfoHandler implements GET /backup/info: a JSON inventory of the
// configured MTD and MMC backends and their partition tables, so the web UI
// can populate its target picker without guessing device names.
func (d *Deps) backupInfoHandler() httpd.HandlerFunc {
	return func(status httpd.Status, req *httpd.Request, resp *httpd.Response) {
		if status != httpd.StatusNew {
			return
		}

		var b strings.Builder
		b.WriteString("{")
		writeInventory(&b, "mmc", d.Storage, storage.KindBlock)
		b.WriteString(",")
		writeInventory(&b, "mtd", d.Storage, storage.KindFlash)
		b.WriteString("}")

		replyJSON(resp, 200, b.String())
	}
}

func writeInventory(b *strings.Builder, key string, f *storage.Facade, kind storage.Kind) {
	fmt.Fprintf(b, `"%s":{"present":%t,"parts":[`, key, f.Present(kind))
	for i, p := range f.Partitions(kind) {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(b, `{"name":"%s","size":%d}`, jsonSafe(p.Name), p.Size)
	}
	b.WriteString("]}")
}

func jsonSafe(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

// backupSession is the CUSTOM-response state kept across RESPONDING ticks
// of backupMainHandler.
type backupSession struct {
	target *storage.Target
	start  uint64
	total  uint64
	cur    uint64
}

// backupMainHandler implements GET /backup/main: stream [start, end) of a
// named MTD or MMC target as an octet-stream attachment. mode=part backs up
// the whole target; mode=range backs up an explicit [start, end) window.
// The filename embeds the storage kind, board model and target name plus
// the exact range, mirroring the original's backup_handler so
// /flash/restore's filename-derived fallback can parse it back out.
func (d *Deps) backupMainHandler() httpd.HandlerFunc {
	return func(status httpd.Status, req *httpd.Request, resp *httpd.Response) {
		switch status {
		case httpd.StatusNew:
			d.backupMainStart(req, resp)
		case httpd.StatusResponding:
			backupMainNext(resp)
		}
	}
}

func (d *Deps) backupMainStart(req *httpd.Request, resp *httpd.Response) {
	mode, _ := formString(req, "mode")
	storageSel, _ := formString(req, "storage")
	if storageSel == "" {
		storageSel = "auto"
	}
	targetName, ok := formString(req, "target")
	if !ok || targetName == "" {
		replyText(resp, 400, "bad request")
		return
	}
	storageSel, targetName = applyTargetPrefix(storageSel, targetName)

	target, err := d.Storage.Open(storageSel, targetName)
	if err != nil {
		replyText(resp, 404, "target not found")
		return
	}

	var start, end uint64
	switch mode {
	case "part":
		start, end = 0, target.Size
	case "range":
		startStr, sOK := formString(req, "start")
		endStr, eOK := formString(req, "end")
		if !sOK || !eOK {
			replyText(resp, 400, "bad request")
			return
		}
		start, err = parseSizeLen(startStr)
		if err != nil {
			replyText(resp, 400, "bad request")
			return
		}
		end, err = parseSizeLen(endStr)
		if err != nil {
			replyText(resp, 400, "bad request")
			return
		}
	default:
		replyText(resp, 400, "bad request")
		return
	}

	if start >= end || end > target.Size {
		replyText(resp, 400, "invalid range")
		return
	}

	filename := backupFilename(target.Kind, d.Config.Sysinfo.BoardModel, targetName, start, end)
	total := end - start

	header := fmt.Sprintf(
		"HTTP/1.1 200 OK\r\n"+
			"Content-Type: application/octet-stream\r\n"+
			"Content-Length: %d\r\n"+
			"Content-Disposition: attachment; filename=\"%s\"\r\n"+
			"Cache-Control: no-store\r\n"+
			"Connection: close\r\n\r\n",
		total, filename,
	)

	resp.Tag = httpd.RespCustom
	resp.Data = []byte(header)
	resp.SessionData = &backupSession{target: target, start: start, total: total}
}

func backupMainNext(resp *httpd.Response) {
	st, ok := resp.SessionData.(*backupSession)
	if !ok || st == nil {
		resp.Tag = httpd.RespNone
		return
	}

	remain := st.total - st.cur
	if remain == 0 {
		resp.Tag = httpd.RespNone
		return
	}

	toRead := remain
	if toRead > backupChunkSize {
		toRead = backupChunkSize
	}

	chunk, err := st.target.ReadRange(st.start+st.cur, st.start+st.cur+toRead)
	if err != nil || len(chunk) == 0 {
		resp.Tag = httpd.RespNone
		return
	}

	st.cur += uint64(len(chunk))
	resp.Tag = httpd.RespCustom
	resp.Data = chunk
}

// backupFilename synthesizes the attachment name flash_parse_backup_filename
// (mirrored by parseBackupFilename) later recovers storage/target/range from.
func backupFilename(kind storage.Kind, model, target string, start, end uint64) string {
	return fmt.Sprintf("backup_%s_%s_%s_0x%x-0x%x.bin",
		kind.String(), sanitizeComponent(model), sanitizeComponent(target), start, end)
}

// sanitizeComponent replaces every byte outside [A-Za-z0-9._-] with '_',
// mirroring str_sanitize_component.
func sanitizeComponent(s string) string {
	if s == "" {
		return "device"
	}
	b := []byte(s)
	for i, c := range b {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_', c == '.':
		default:
			b[i] = '_'
		}
	}
	return string(b)
}

// applyTargetPrefix honors the "mtd:<name>"/"mmc:<name>" override convention
// the endpoint catalog accepts in its "target" field.
func applyTargetPrefix(storageSel, target string) (string, string) {
	switch {
	case strings.HasPrefix(target, "mtd:"):
		return "mtd", strings.TrimPrefix(target, "mtd:")
	case strings.HasPrefix(target, "mmc:"):
		return "mmc", strings.TrimPrefix(target, "mmc:")
	default:
		return storageSel, target
	}
}

// formString reads a form field from either the parsed multipart form or
// the URL query string, in that order.
func formString(req *httpd.Request, name string) (string, bool) {
	if fv, ok := req.FormValue(name); ok {
		return string(fv.Data), true
	}
	if v := req.Query.Get(name); v != "" {
		return v, true
	}
	return "", false
}
