package handlers

import (
	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/envstore"
	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/httpd"
)

// envListHandler implements GET /env/list: the full environment as sorted
// "KEY=VALUE\n" text.
func (d *Deps) envListHandler() httpd.HandlerFunc {
	return func(status httpd.Status, req *httpd.Request, resp *httpd.Response) {
		if status != httpd.StatusNew {
			return
		}
		if req.Method != httpd.MethodGet {
			replyText(resp, 405, "method")
			return
		}
		replyText(resp, 200, d.Env.List())
	}
}

// envSetHandler implements POST /env/set: assign the "name" key to "value".
func (d *Deps) envSetHandler() httpd.HandlerFunc {
	return func(status httpd.Status, req *httpd.Request, resp *httpd.Response) {
		if status != httpd.StatusNew {
			return
		}
		if req.Method != httpd.MethodPost {
			replyText(resp, 405, "method")
			return
		}

		name, ok := formString(req, "name")
		if !ok {
			replyText(resp, 400, "bad name")
			return
		}
		value, _ := formString(req, "value")

		if err := d.Env.Set(name, value); err != nil {
			code, text := envStatusFor(err)
			replyText(resp, code, text)
			return
		}
		replyText(resp, 200, "ok")
	}
}

// envUnsetHandler implements POST /env/unset: remove the "name" key.
func (d *Deps) envUnsetHandler() httpd.HandlerFunc {
	return func(status httpd.Status, req *httpd.Request, resp *httpd.Response) {
		if status != httpd.StatusNew {
			return
		}
		if req.Method != httpd.MethodPost {
			replyText(resp, 405, "method")
			return
		}

		name, ok := formString(req, "name")
		if !ok {
			replyText(resp, 400, "bad name")
			return
		}

		if err := d.Env.Unset(name); err != nil {
			code, text := envStatusFor(err)
			replyText(resp, code, text)
			return
		}
		replyText(resp, 200, "ok")
	}
}

// envResetHandler implements POST /env/reset: restore the built-in defaults.
func (d *Deps) envResetHandler() httpd.HandlerFunc {
	return func(status httpd.Status, req *httpd.Request, resp *httpd.Response) {
		if status != httpd.StatusNew {
			return
		}
		if req.Method != httpd.MethodPost {
			replyText(resp, 405, "method")
			return
		}

		if err := d.Env.Reset(); err != nil {
			replyText(resp, 500, "save failed")
			return
		}
		replyText(resp, 200, "ok")
	}
}

// envRestoreHandler implements POST /env/restore: replace the environment
// wholesale from an uploaded CRC-framed env blob (the "envfile" field).
func (d *Deps) envRestoreHandler() httpd.HandlerFunc {
	return func(status httpd.Status, req *httpd.Request, resp *httpd.Response) {
		if status != httpd.StatusNew {
			return
		}
		if req.Method != httpd.MethodPost {
			replyText(resp, 405, "method")
			return
		}

		fv, ok := req.FormValue("envfile")
		if !ok || len(fv.Data) == 0 {
			replyText(resp, 400, "bad file")
			return
		}

		if err := d.Env.Import(fv.Data); err != nil {
			code, text := envStatusFor(err)
			replyText(resp, code, text)
			return
		}
		replyText(resp, 200, "ok")
	}
}

// envStatusFor maps an envstore error to the HTTP status/text pair the
// original's handlers would have produced for the equivalent failure.
func envStatusFor(err error) (int, string) {
	switch err {
	case envstore.ErrBadName:
		return 400, "bad name"
	case envstore.ErrRecordTooSmall:
		return 400, "bad file"
	case envstore.ErrBadCRC:
		return 400, "bad file"
	default:
		return 500, "save failed"
	}
}
