package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hashnav",
		Short: "Hash router for stateful page applications",
		Long: `hashnav resolves location hashes to long-lived pages.

The CLI checks a routes file against sample hashes and runs a headless
router that can be driven over HTTP, a websocket or key events.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringP("config", "c", "", "TOML configuration file")
	cmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")
	cmd.PersistentFlags().String("log-path", "", "also write logs to this file")

	cmd.AddCommand(
		matchCmd(),
		serveCmd(),
		versionCmd(),
	)

	return cmd
}
