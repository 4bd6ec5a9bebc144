package handlers

import (
	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/httpd"
)

// mtdLayoutHandler implements GET /getmtdlayout: a ";"-separated list
// whose first element is the currently active layout label (read from the
// env store's "mtd_layout" key, defaulting to "default") followed by every
// label this build knows about.
func (d *Deps) mtdLayoutHandler() httpd.HandlerFunc {
	return func(status httpd.Status, req *httpd.Request, resp *httpd.Response) {
		if status != httpd.StatusNew {
			return
		}
		current, ok := d.Env.Get("mtd_layout")
		if !ok || current == "" {
			current = "default"
		}
		available := []string{"default", "alternate"}

		out := current
		for _, l := range available {
			out += ";" + l
		}
		replyText(resp, 200, out)
	}
}
