package handlers

import (
	"fmt"
	"strings"

	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/httpd"
	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/wire"
)

const webConsolePollMax = 8 * 1024

// defaultPrompt mirrors the original's CONFIG_SYS_PROMPT fallback.
const defaultPrompt = "MTK> "

func (d *Deps) prompt() string {
	if p, ok := d.Env.Get("prompt"); ok && p != "" {
		return p
	}
	return defaultPrompt
}

// consoleForbidden replies 403 when checkConsoleToken rejects the request.
func consoleForbidden(resp *httpd.Response) {
	replyJSON(resp, 403, `{"error":"forbidden"}`)
}

// consolePollHandler implements POST /console/poll: drain up to 8 KiB of
// unread console output as a JSON string plus the bytes still available.
func (d *Deps) consolePollHandler() httpd.HandlerFunc {
	return func(status httpd.Status, req *httpd.Request, resp *httpd.Response) {
		if status != httpd.StatusNew {
			return
		}
		if req.Method != httpd.MethodPost {
			replyJSON(resp, 405, `{"error":"method"}`)
			return
		}
		if !d.checkConsoleToken(req) {
			consoleForbidden(resp)
			return
		}

		chunk := d.Console.ReadUpTo(webConsolePollMax)
		avail := d.Console.Available()
		d.Metrics.ObserveConsoleBytes(avail)
		body := fmt.Sprintf(`{"data":"%s","avail":%d}`,
			wire.EscapeJSONString(string(chunk)), avail)
		replyJSON(resp, 200, body)
	}
}

// consoleExecHandler implements POST /console/exec: hand the "cmd" field to
// the interpreter collaborator, echo the prompt and command (and the
// interpreter's own output, if any) into the console ring exactly as a
// real session would see it, and report the command's return code.
func (d *Deps) consoleExecHandler() httpd.HandlerFunc {
	return func(status httpd.Status, req *httpd.Request, resp *httpd.Response) {
		if status != httpd.StatusNew {
			return
		}
		if req.Method != httpd.MethodPost {
			replyJSON(resp, 405, `{"error":"method"}`)
			return
		}
		if !d.checkConsoleToken(req) {
			consoleForbidden(resp)
			return
		}

		cmd, ok := formString(req, "cmd")
		if !ok || cmd == "" {
			replyJSON(resp, 400, `{"error":"no_cmd"}`)
			return
		}
		prompt := d.prompt()

		d.Console.Write([]byte(promptLine(prompt, cmd)))

		var ret int
		var output string
		if d.Interpreter != nil {
			output, ret = d.Interpreter.Run(cmd)
		}
		if output != "" {
			d.Console.Write([]byte(output))
			if !strings.HasSuffix(output, "\n") {
				d.Console.Write([]byte{'\n'})
			}
		}
		d.Console.Write([]byte(prompt))
		d.Metrics.ObserveConsoleBytes(d.Console.Available())

		body := fmt.Sprintf(`{"ok":true,"ret":%d,"cmd":"%s"}`, ret, wire.EscapeJSONString(cmd))
		replyJSON(resp, 200, body)
	}
}

// promptLine renders "<prompt><space><cmd>\n", inserting a space only when
// the prompt doesn't already end in whitespace.
func promptLine(prompt, cmd string) string {
	sep := ""
	if prompt != "" {
		last := prompt[len(prompt)-1]
		if last != ' ' && last != '\t' {
			sep = " "
		}
	}
	return prompt + sep + cmd + "\n"
}

// consoleClearHandler implements POST /console/clear: discard all unread
// console output.
func (d *Deps) consoleClearHandler() httpd.HandlerFunc {
	return func(status httpd.Status, req *httpd.Request, resp *httpd.Response) {
		if status != httpd.StatusNew {
			return
		}
		if req.Method != httpd.MethodPost {
			replyJSON(resp, 405, `{"error":"method"}`)
			return
		}
		if !d.checkConsoleToken(req) {
			consoleForbidden(resp)
			return
		}

		d.Console.Reset()
		d.Metrics.ObserveConsoleBytes(0)
		replyJSON(resp, 200, `{"ok":true}`)
	}
}
