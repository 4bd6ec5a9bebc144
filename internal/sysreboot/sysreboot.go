// Package sysreboot implements the final step of the /reboot endpoint: once
// the HTTP session driving the request has closed, the process restarts
// the board. The real reboot syscall is wrapped behind an interface so
// tests never actually reboot the host running them.
package sysreboot

import "golang.org/x/sys/unix"

// Rebooter issues the board restart. Production code uses Linux; Reboot
// wraps unix.Reboot directly since bootloader recovery builds only ever
// target Linux-capable SoCs.
type Rebooter interface {
	Reboot() error
}

// Linux is the production Rebooter, backed by the reboot(2) syscall.
type Linux struct{}

// Reboot issues RB_AUTOBOOT, restarting the board immediately.
func (Linux) Reboot() error {
	return unix.Reboot(unix.LINUX_REBOOT_CMD_RESTART)
}

// Fake is a Rebooter for tests: it records that Reboot was called instead
// of touching the host.
type Fake struct {
	Called bool
	Err    error
}

// Reboot records the call and returns the configured error, if any.
func (f *Fake) Reboot() error {
	f.Called = true
	return f.Err
}
