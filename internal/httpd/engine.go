package httpd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
)

// Serve drives a single dispatched request through its full handler
// lifecycle and writes the result to w: exactly one StatusNew call, then
// StatusResponding while the handler keeps returning RespCustom, then
// exactly one StatusClosed call — even when a write fails partway through,
// so handlers can always release session state deterministically.
//
// For RespStd the full framed response (status line, headers, body) is
// written in one shot. For RespCustom the handler's own Data for NEW is
// written verbatim (it must already contain the status line and headers),
// then each RESPONDING chunk is written until the handler reports RespNone.
//
// Serve returns the response code it observed (0 for a RespCustom stream,
// whose NEW chunk wrote its own status line directly), so a caller can
// feed it to request metrics without duplicating the state machine.
func Serve(w io.Writer, req *Request, h HandlerFunc, log *slog.Logger) int {
	connID := uuid.NewString()
	log = log.With("conn_id", connID, "path", req.Path)

	resp := &Response{}
	defer func() {
		h(StatusClosed, req, resp)
		log.Debug("connection closed")
	}()

	h(StatusNew, req, resp)
	switch resp.Tag {
	case RespStd:
		if err := writeStd(w, resp); err != nil {
			log.Warn("write std response failed", "error", err)
		}
		return resp.Info.Code
	case RespNone:
		return 0
	case RespCustom:
		if err := writeAll(w, resp.Data); err != nil {
			log.Warn("write custom chunk failed", "error", err)
			return 0
		}
	}

	for resp.Tag == RespCustom {
		h(StatusResponding, req, resp)
		if resp.Tag != RespCustom {
			break
		}
		if err := writeAll(w, resp.Data); err != nil {
			log.Warn("write custom chunk failed", "error", err)
			return 0
		}
	}
	return 0
}

func writeStd(w io.Writer, resp *Response) error {
	header := fmt.Sprintf("HTTP/1.1 %d %s\r\n", resp.Info.Code, statusText(resp.Info.Code))
	header += fmt.Sprintf("Content-Type: %s\r\n", orDefault(resp.Info.ContentType, "text/plain"))
	header += fmt.Sprintf("Content-Length: %d\r\n", len(resp.Data))
	header += "Connection: close\r\n\r\n"

	if err := writeAll(w, []byte(header)); err != nil {
		return err
	}
	return writeAll(w, resp.Data)
}

func writeAll(w io.Writer, data []byte) error {
	for len(data) > 0 {
		n, err := w.Write(data)
		if err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func statusText(code int) string {
	switch code {
	case 200:
		return "OK"
	case 400:
		return "Bad Request"
	case 403:
		return "Forbidden"
	case 404:
		return "Not Found"
	case 405:
		return "Method Not Allowed"
	case 413:
		return "Payload Too Large"
	case 500:
		return "Internal Server Error"
	case 503:
		return "Service Unavailable"
	default:
		return "Unknown"
	}
}
