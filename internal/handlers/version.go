package handlers

import (
	"fmt"

	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/httpd"
	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/wire"
)

// versionHandler implements GET /version: the configured firmware version
// string, text/plain.
func (d *Deps) versionHandler() httpd.HandlerFunc {
	return func(status httpd.Status, req *httpd.Request, resp *httpd.Response) {
		if status != httpd.StatusNew {
			return
		}
		replyText(resp, 200, d.Config.Server.Version)
	}
}

// sysinfoHandler implements GET /sysinfo: board model/compatible, CPU
// compatible and clock, RAM size, as a hand-built JSON object.
func (d *Deps) sysinfoHandler() httpd.HandlerFunc {
	return func(status httpd.Status, req *httpd.Request, resp *httpd.Response) {
		if status != httpd.StatusNew {
			return
		}
		si := d.Config.Sysinfo
		body := fmt.Sprintf(
			`{"board_model":"%s","board_compatible":"%s","cpu_compatible":"%s","cpu_clock_hz":%d,"ram_size_bytes":%d}`,
			wire.EscapeJSONString(si.BoardModel),
			wire.EscapeJSONString(si.BoardCompatible),
			wire.EscapeJSONString(si.CPUCompatible),
			si.CPUClockHz,
			si.RAMSizeBytes,
		)
		replyJSON(resp, 200, body)
	}
}
