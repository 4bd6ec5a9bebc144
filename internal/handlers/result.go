package handlers

import (
	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/fwimage"
	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/httpd"
)

// resultHandler implements GET /result: commit whatever image is currently
// staged in the upload context. GPT and firmware-family images are written
// to their flash partition; initramfs has no storage target of its own in
// this repository (booting it directly is out of scope — see
// SPEC_FULL.md §1) and is accepted but not persisted anywhere besides the
// upload context having been drained.
func (d *Deps) resultHandler() httpd.HandlerFunc {
	return func(status httpd.Status, req *httpd.Request, resp *httpd.Response) {
		if status != httpd.StatusNew {
			return
		}

		id, ok := d.Upload.Pending()
		if !ok {
			replyHTML(resp, 200, []byte("failed"))
			return
		}

		data, t, layout, ok := d.Upload.Take(id)
		if !ok {
			replyHTML(resp, 200, []byte("failed"))
			return
		}

		if t == fwimage.TypeInitramfs {
			replyHTML(resp, 200, []byte("success"))
			return
		}

		target, err := d.Storage.Open("auto", t.String())
		if err != nil {
			d.Log.Error("result: no storage target for image type", "type", t.String(), "error", err)
			replyHTML(resp, 200, []byte("failed"))
			return
		}

		if err := target.WriteRange(0, data); err != nil {
			d.Metrics.ObserveFlashOp("write", false)
			d.Log.Error("result: commit write failed", "error", err)
			replyHTML(resp, 200, []byte("failed"))
			return
		}
		d.Metrics.ObserveFlashOp("write", true)

		if layout != "" {
			if err := d.Env.Set("mtd_layout", layout); err != nil {
				d.Log.Warn("result: persist mtd_layout failed", "error", err)
			}
		}

		replyHTML(resp, 200, []byte("success"))
	}
}
