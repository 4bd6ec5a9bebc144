package server

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/config"
	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/handlers"
	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/upload"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.ListenAddr = "127.0.0.1:0"
	cfg.DHCP.Enabled = false
	return cfg
}

func TestNewBindsListenerAndRegistersRoutes(t *testing.T) {
	cfg := testConfig()
	deps := &handlers.Deps{Config: cfg, Upload: &upload.Context{}, Log: testLogger()}

	srv, err := New(cfg, deps, testLogger())
	require.NoError(t, err)
	require.NotNil(t, srv.Addr())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	srv.Run(ctx)
}

func TestHandleConnServesVersionOverRawConn(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Version = "failsafe-test"
	deps := &handlers.Deps{Config: cfg, Upload: &upload.Context{}, Log: testLogger()}

	srv, err := New(cfg, deps, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		srv.Run(ctx)
		close(done)
	}()

	conn, err := net.DialTimeout("tcp", srv.Addr().String(), time.Second)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("GET /version HTTP/1.1\r\n\r\n"))
	require.NoError(t, err)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	status, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	require.Contains(t, status, "200")

	cancel()
	<-done
}
