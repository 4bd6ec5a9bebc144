// Package commands implements the failsafed CLI.
package commands

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "failsafed",
	Short: "MT798x failsafe recovery HTTP server",
	Long: `failsafed serves the bootloader's failsafe recovery web UI: firmware
upload, flash/backup editing, environment management and a limited web
console, plus a minimal DHCPv4 responder for the recovery LAN.

Use "failsafed [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and runs it. Called
// once from main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file (default: built-in defaults)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(startCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}

// Exit prints an error to stderr and exits with code 1.
func Exit(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
	os.Exit(1)
}
