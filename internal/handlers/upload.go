package handlers

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/fwimage"
	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/httpd"
)

// uploadHandler implements POST /upload: accept exactly one of the
// mutually-exclusive firmware fields, validate it, stage it in the
// process-wide upload context, and reply with its size and MD5 (plus the
// layout label, if one was supplied).
//
// Per SPEC_FULL.md §9 decision 1, validation failures reply 200 "fail"
// rather than 400, preserving the original's legacy client compatibility
// quirk.
func (d *Deps) uploadHandler() httpd.HandlerFunc {
	return func(status httpd.Status, req *httpd.Request, resp *httpd.Response) {
		if status != httpd.StatusNew {
			return
		}
		if req.Method != httpd.MethodPost {
			replyText(resp, 405, "method")
			return
		}

		var field, fieldName string
		var matched fwimage.Type
		count := 0
		for name, t := range fwimage.FieldToType {
			if fv, ok := req.FormValue(name); ok {
				count++
				fieldName = name
				matched = t
				field = string(fv.Data)
			}
		}
		if count != 1 {
			replyText(resp, 200, "fail")
			return
		}

		data := []byte(field)
		if err := fwimage.ValidateHeader(matched, data); err != nil {
			d.Log.Warn("upload validation failed", "field", fieldName, "error", err)
			replyText(resp, 200, "fail")
			return
		}

		layout := ""
		if fv, ok := req.FormValue("mtd_layout"); ok {
			layout = string(fv.Data)
		}

		d.Upload.Stage(data, matched, layout)
		if d.Metrics != nil {
			d.Metrics.UploadBytesTotal.Add(float64(len(data)))
		}
		sum := md5.Sum(data)

		out := fmt.Sprintf("%d %s", len(data), hex.EncodeToString(sum[:]))
		if layout != "" {
			out += " " + layout
		}
		replyText(resp, 200, out)
	}
}
