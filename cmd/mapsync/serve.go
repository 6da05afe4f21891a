package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func serveCmd(opts *globalOptions) *cobra.Command {
	var (
		port int
		ws   string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Host a session and relay changes between peers",
		Long: `Host a session on the local scene.

Peers connect over TCP, or over WebSocket when --ws is set. Changes
from one peer are applied here and relayed to every other peer.

Examples:
  mapsync serve
  mapsync serve --port 9000 --ws :9001 --admin :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if ws != "" {
				cfg.Server.WebSocket = ws
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			a, err := newApp(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := a.ctl.Bind(ctx, cfg.Server.Port); err != nil {
				return err
			}
			success("Serving level %q on %s", cfg.Level, a.ctl.Addr())
			if cfg.Server.WebSocket != "" {
				info("WebSocket: ws://%s/sync", cfg.Server.WebSocket)
			}
			a.serveAdmin(ctx)

			return a.run(ctx, false)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "TCP port to listen on (default from config, 7777)")
	cmd.Flags().StringVar(&ws, "ws", "", "Also accept WebSocket peers on this address")
	return cmd
}
