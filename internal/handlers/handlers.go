// Package handlers implements the recovery server's endpoint catalog
// (spec.md §4.3): upload, result, backup, flash, env, console, reboot,
// sysinfo, version, getmtdlayout and the static asset/404 pages. Every
// handler is an httpd.HandlerFunc closed over a shared Deps, following the
// NEW/RESPONDING/CLOSED contract described in internal/httpd.
package handlers

import (
	"log/slog"

	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/config"
	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/consolering"
	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/envstore"
	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/httpd"
	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/interpreter"
	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/metrics"
	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/storage"
	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/sysreboot"
	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/upload"
)

// Deps bundles every collaborator the endpoint catalog needs. A single
// Deps is constructed once at server start and closed over by every
// registered handler.
type Deps struct {
	Config      *config.Config
	Storage     *storage.Facade
	Env         *envstore.Store
	Console     *consolering.Ring
	Upload      *upload.Context
	Metrics     *metrics.Recovery
	Rebooter    sysreboot.Rebooter
	Interpreter interpreter.Interpreter
	Log         *slog.Logger

	// RequestReboot is called by the /reboot handler's CLOSED phase, after
	// the response has been flushed to the client, so the TCP session
	// closes cleanly before the board restarts.
	RequestReboot func()
}

// replyText sets resp to a STD text/plain response, matching
// failsafe_http_reply_text in the original.
func replyText(resp *httpd.Response, code int, text string) {
	resp.Tag = httpd.RespStd
	resp.Info = httpd.Info{Code: code, ContentType: "text/plain", ConnectionClose: true}
	resp.Data = []byte(text)
}

// replyJSON sets resp to a STD application/json response. body must
// already be valid JSON text (this repository hand-builds JSON via
// internal/wire rather than via encoding/json, matching the original's
// json_escape-based construction).
func replyJSON(resp *httpd.Response, code int, body string) {
	resp.Tag = httpd.RespStd
	resp.Info = httpd.Info{Code: code, ContentType: "application/json", ConnectionClose: true}
	resp.Data = []byte(body)
}

// replyHTML sets resp to a STD text/html response.
func replyHTML(resp *httpd.Response, code int, body []byte) {
	resp.Tag = httpd.RespStd
	resp.Info = httpd.Info{Code: code, ContentType: "text/html", ConnectionClose: true}
	resp.Data = body
}

// Register binds every endpoint in the catalog to router.
func Register(router *httpd.Router, d *Deps) {
	router.Register("/", d.staticHandler("/"))
	router.Register("/index.html", d.staticHandler("/index.html"))
	router.Register("/cgi-bin/luci", d.staticHandler("/cgi-bin/luci"))
	router.Register("/cgi-bin/luci/", d.staticHandler("/cgi-bin/luci/"))
	router.Register("/style.css", d.staticHandler("/style.css"))
	router.Register("/main.js", d.staticHandler("/main.js"))
	router.Register("/i18n.js", d.staticHandler("/i18n.js"))
	router.RegisterNotFound(d.notFoundHandler())

	router.Register("/version", d.versionHandler())
	router.Register("/sysinfo", d.sysinfoHandler())
	router.Register("/getmtdlayout", d.mtdLayoutHandler())
	router.Register("/upload", d.uploadHandler())
	router.Register("/result", d.resultHandler())
	router.Register("/reboot", d.rebootHandler())

	router.Register("/backup/info", d.backupInfoHandler())
	router.Register("/backup/main", d.backupMainHandler())

	router.Register("/flash/read", d.flashReadHandler())
	router.Register("/flash/write", d.flashWriteHandler())
	router.Register("/flash/restore", d.flashRestoreHandler())

	router.Register("/env/list", d.envListHandler())
	router.Register("/env/set", d.envSetHandler())
	router.Register("/env/unset", d.envUnsetHandler())
	router.Register("/env/reset", d.envResetHandler())
	router.Register("/env/restore", d.envRestoreHandler())

	router.Register("/console/poll", d.consolePollHandler())
	router.Register("/console/exec", d.consoleExecHandler())
	router.Register("/console/clear", d.consoleClearHandler())
}

// checkConsoleToken enforces spec.md §4.3's shared-secret token: an empty
// configured token disables the check entirely.
func (d *Deps) checkConsoleToken(req *httpd.Request) bool {
	token := d.Config.Server.ConsoleToken
	if token == "" {
		return true
	}
	got, ok := formString(req, "token")
	if !ok {
		return false
	}
	return got == token
}
