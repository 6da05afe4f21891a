package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mapsync-dev/mapsync/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "mapsync",
		Short: "Live level synchronization between editors",
		Long: `MapSync keeps the levels of several editor instances in sync.

One peer serves, the others connect. Every selected object that
changes locally is sent to the server, which applies it and relays
it to all other peers.

  mapsync serve --port 7777
  mapsync connect 10.0.0.5:7777 --resync
  mapsync inspect capture.bin`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	opts.register(rootCmd)

	rootCmd.AddCommand(
		serveCmd(opts),
		connectCmd(opts),
		inspectCmd(),
		initCmd(opts),
		versionCmd(),
	)
	return rootCmd
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
