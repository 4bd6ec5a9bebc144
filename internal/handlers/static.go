package handlers

import (
	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/assets"
	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/httpd"
)

// staticHandler serves one fixed asset path verbatim with its MIME type.
func (d *Deps) staticHandler(path string) httpd.HandlerFunc {
	return func(status httpd.Status, req *httpd.Request, resp *httpd.Response) {
		if status != httpd.StatusNew {
			return
		}
		asset, ok := assets.Lookup(path)
		if !ok {
			replyText(resp, 404, "not found")
			return
		}
		resp.Tag = httpd.RespStd
		resp.Info = httpd.Info{Code: 200, ContentType: asset.Mime, ConnectionClose: true}
		resp.Data = asset.Data
	}
}

// notFoundHandler serves the catalog's 404 fallback: a static asset lookup
// by request path (so "/foo.html" still resolves if present in the asset
// table), then a plain 404 otherwise.
func (d *Deps) notFoundHandler() httpd.HandlerFunc {
	return func(status httpd.Status, req *httpd.Request, resp *httpd.Response) {
		if status != httpd.StatusNew {
			return
		}
		if asset, ok := assets.Lookup(req.Path); ok {
			resp.Tag = httpd.RespStd
			resp.Info = httpd.Info{Code: 200, ContentType: asset.Mime, ConnectionClose: true}
			resp.Data = asset.Data
			return
		}
		replyHTML(resp, 404, []byte("<html><body>404 not found</body></html>"))
	}
}
