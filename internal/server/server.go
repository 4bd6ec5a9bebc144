// Package server wires the HTTP router, the DHCP responder and the
// cooperative scheduler together into one running recovery server. It is
// the composition root cmd/failsafed drives; nothing here is reusable
// outside that one process.
package server

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/config"
	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/dhcp"
	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/handlers"
	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/httpd"
	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/loop"
)

// tickInterval bounds how long one scheduler iteration blocks waiting on
// the listener's Accept or the DHCP socket's Read before yielding back to
// the loop, matching the cooperative model described in spec.md §5.
const tickInterval = 200 * time.Millisecond

// Server bundles the listener, the router and (optionally) the DHCP
// responder into the one cooperative Scheduler that drives them.
type Server struct {
	cfg *config.Config
	log *slog.Logger

	deps *handlers.Deps
	ln   net.Listener
	dhcp *dhcp.Responder

	sched *loop.Scheduler
}

// New binds the HTTP listener (and, if enabled, the DHCP socket) and
// registers every endpoint in deps against a fresh router. It does not
// start serving until Run is called.
func New(cfg *config.Config, deps *handlers.Deps, log *slog.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", cfg.Server.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("server: listen on %s: %w", cfg.Server.ListenAddr, err)
	}

	router := httpd.NewRouter()
	handlers.Register(router, deps)

	s := &Server{cfg: cfg, log: log, deps: deps, ln: ln, sched: loop.New(tickInterval, log)}

	s.sched.Register("http-accept", loop.AcceptTick(ln, func(conn net.Conn) {
		s.handleConn(conn, router)
	}))

	if cfg.DHCP.Enabled {
		responder, err := newDHCPResponder(cfg.DHCP)
		if err != nil {
			_ = ln.Close()
			return nil, fmt.Errorf("server: start dhcp responder: %w", err)
		}
		s.dhcp = responder
		s.sched.Register("dhcp", func(deadline time.Time) error {
			return responder.ServeOnce(deadline)
		})
	}

	return s, nil
}

// Addr returns the address the HTTP listener is bound to.
func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Run blocks, driving the scheduler until ctx is cancelled, then closes the
// listener and DHCP socket.
func (s *Server) Run(ctx context.Context) {
	s.log.Info("recovery server listening", "addr", s.ln.Addr().String(), "dhcp", s.cfg.DHCP.Enabled)
	s.sched.Run(ctx)

	if err := s.ln.Close(); err != nil {
		s.log.Warn("close listener failed", "error", err)
	}
	if s.dhcp != nil {
		if err := s.dhcp.Stop(); err != nil {
			s.log.Warn("close dhcp socket failed", "error", err)
		}
	}
}

// handleConn parses one request off conn and drives it through the
// router's matched handler to completion, then closes the connection: the
// server speaks Connection: close only, matching the recovery UI's
// one-request-per-connection usage pattern.
func (s *Server) handleConn(conn net.Conn, router *httpd.Router) {
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(30 * time.Second))

	req, err := httpd.ParseRequest(bufio.NewReader(conn), s.cfg.Server.MaxUploadSize)
	if err != nil {
		s.log.Warn("malformed request", "remote", conn.RemoteAddr().String(), "error", err)
		fmt.Fprint(conn, "HTTP/1.1 400 Bad Request\r\nConnection: close\r\nContent-Length: 0\r\n\r\n")
		return
	}

	h := router.Lookup(req.Path)
	if h == nil {
		fmt.Fprint(conn, "HTTP/1.1 404 Not Found\r\nConnection: close\r\nContent-Length: 0\r\n\r\n")
		return
	}

	code := httpd.Serve(conn, req, h, s.log)
	if code != 0 {
		s.deps.Metrics.ObserveRequest(req.Path, code)
	}
}

func newDHCPResponder(cfg config.DHCPConfig) (*dhcp.Responder, error) {
	serverIP := net.ParseIP(cfg.ServerIP)
	clientIP := net.ParseIP(cfg.ClientIP)
	mask := net.ParseIP(cfg.SubnetMask)
	if serverIP == nil || clientIP == nil || mask == nil {
		return nil, fmt.Errorf("server: invalid dhcp ip/mask configuration")
	}
	return dhcp.New(dhcp.Config{
		Interface:  cfg.Interface,
		ServerIP:   serverIP,
		ClientIP:   clientIP,
		SubnetMask: mask,
		LeaseTime:  cfg.LeaseTime,
	})
}
