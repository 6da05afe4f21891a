package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func connectCmd(opts *globalOptions) *cobra.Command {
	var resync bool

	cmd := &cobra.Command{
		Use:   "connect <address>",
		Short: "Join a session hosted by another peer",
		Long: `Join a session.

The address is host:port for TCP, or a ws:// URL for WebSocket.
With --resync the full level of the server is requested right after
connecting, creating any objects missing here.

Examples:
  mapsync connect 10.0.0.5:7777
  mapsync connect ws://10.0.0.5:7778/sync --resync`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := a.ctl.Connect(ctx, args[0]); err != nil {
				return err
			}
			success("Connected to %s as level %q", args[0], cfg.Level)

			if resync {
				if err := a.ctl.RequestResync(); err != nil {
					return err
				}
				info("Resync requested")
			}
			a.serveAdmin(ctx)

			return a.run(ctx, true)
		},
	}

	cmd.Flags().BoolVarP(&resync, "resync", "r", false, "Request the full level after connecting")
	return cmd
}
