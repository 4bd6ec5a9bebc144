package handlers

import "github.com/mitsukileung/bl-mt798x-dhcpd/internal/httpd"

// rebootHandler implements POST /reboot: reply "rebooting" immediately, then
// once the response has actually been flushed to the client (CLOSED), ask
// the server to restart. Splitting the reply from the restart this way is
// what lets the client see the acknowledgement before the connection drops.
func (d *Deps) rebootHandler() httpd.HandlerFunc {
	return func(status httpd.Status, req *httpd.Request, resp *httpd.Response) {
		switch status {
		case httpd.StatusNew:
			if req.Method != httpd.MethodPost {
				replyText(resp, 405, "method")
				return
			}
			replyText(resp, 200, "rebooting")
		case httpd.StatusClosed:
			if d.RequestReboot != nil {
				d.RequestReboot()
			}
		}
	}
}
