// Package metrics tracks Prometheus counters and gauges for the recovery
// server's internal state. Per SPEC_FULL.md §3, these are process-internal
// only — the recovery server has no /metrics endpoint in its own listener,
// since Non-goals exclude observability surfaces beyond the console; a
// separate management process can still scrape them from the default
// registry if one is wired up.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Recovery tracks the server's request, upload, flash and DHCP counters.
// All metrics use the "failsafe_" prefix. Methods handle a nil receiver
// gracefully, so a nil *Recovery acts as a no-op.
type Recovery struct {
	// RequestsTotal counts dispatched requests by path and outcome.
	// Labels: path, code
	RequestsTotal *prometheus.CounterVec

	// UploadBytesTotal sums bytes accepted across all /upload calls.
	UploadBytesTotal prometheus.Counter

	// FlashOpsTotal counts flash read/write/restore operations by result.
	// Labels: op=[read,write,restore], result=[ok,error]
	FlashOpsTotal *prometheus.CounterVec

	// ConsoleRingBytes tracks the console ring's current occupancy.
	ConsoleRingBytes prometheus.Gauge

	// DHCPLeasesTotal is registered for DHCP leases handed out; the DHCP
	// responder does not update it, so it stays at zero.
	DHCPLeasesTotal prometheus.Counter
}

var (
	once     sync.Once
	instance *Recovery
)

// New creates and registers the recovery server's Prometheus metrics. If
// registerer is nil, prometheus.DefaultRegisterer is used. Idempotent: uses
// sync.Once so repeated calls (e.g. on a warm restart) return the same
// instance rather than panicking on duplicate registration.
func New(registerer prometheus.Registerer) *Recovery {
	once.Do(func() {
		if registerer == nil {
			registerer = prometheus.DefaultRegisterer
		}

		m := &Recovery{
			RequestsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "failsafe_requests_total",
					Help: "Total dispatched HTTP requests by path and response code",
				},
				[]string{"path", "code"},
			),
			UploadBytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "failsafe_upload_bytes_total",
				Help: "Total bytes accepted by the /upload endpoint",
			}),
			FlashOpsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "failsafe_flash_ops_total",
					Help: "Total flash operations by kind and result",
				},
				[]string{"op", "result"},
			),
			ConsoleRingBytes: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "failsafe_console_ring_bytes",
				Help: "Current number of unread bytes in the console ring",
			}),
			DHCPLeasesTotal: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "failsafe_dhcp_leases_total",
				Help: "Total DHCP leases handed out",
			}),
		}

		registerer.MustRegister(
			m.RequestsTotal,
			m.UploadBytesTotal,
			m.FlashOpsTotal,
			m.ConsoleRingBytes,
			m.DHCPLeasesTotal,
		)
		instance = m
	})
	return instance
}

// ObserveRequest records one dispatched request's outcome.
func (m *Recovery) ObserveRequest(path string, code int) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(path, itoa(code)).Inc()
}

// ObserveFlashOp records one flash operation's outcome.
func (m *Recovery) ObserveFlashOp(op string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.FlashOpsTotal.WithLabelValues(op, result).Inc()
}

// ObserveConsoleBytes records the console ring's current occupancy.
func (m *Recovery) ObserveConsoleBytes(n int) {
	if m == nil {
		return
	}
	m.ConsoleRingBytes.Set(float64(n))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
