// Command failsafed runs the MT798x bootloader's failsafe recovery HTTP
// server: firmware upload, flash/backup editing, environment management,
// a limited web console, and a minimal DHCPv4 responder for the recovery
// LAN.
package main

import (
	"os"

	"github.com/mitsukileung/bl-mt798x-dhcpd/cmd/failsafed/commands"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version = version
	commands.Commit = commit
	commands.Date = date

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
